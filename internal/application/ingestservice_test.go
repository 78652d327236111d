package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efisher/mailhub/internal/domain/model"
	"github.com/efisher/mailhub/internal/domain/port/driven"
)

func rawMessage(sender, subject, body, date string) *model.RawMessage {
	return &model.RawMessage{
		Headers: []model.RawHeader{
			{Name: "From", Value: sender},
			{Name: "Subject", Value: subject},
			{Name: "Date", Value: date},
		},
		Body: model.RawPart{MIMEType: "text/plain", Data: b64url(body)},
	}
}

// newTestIngestService wires an IngestService with a fetch rate high enough
// that the throttle never slows the test down.
func newTestIngestService(t *testing.T, provider *fakeProvider) (*IngestService, *fakeCredentialStore, *fakeMessageStore) {
	t.Helper()

	credStore := &fakeCredentialStore{}
	msgStore := &fakeMessageStore{}
	tokens := newTestTokenService(t, credStore, provider)
	svc := NewIngestService(tokens, provider, msgStore, 50, 10000, slog.Default())

	return svc, credStore, msgStore
}

func TestIngestService_NotConnectedFailsFast(t *testing.T) {
	provider := &fakeProvider{}
	svc, _, _ := newTestIngestService(t, provider)

	_, err := svc.FetchAndClassify(context.Background(), 1)
	assert.ErrorIs(t, err, model.ErrNotConnected)

	// Fail fast: no provider traffic at all.
	assert.Equal(t, 0, provider.listCalls)
	assert.Equal(t, 0, provider.getCalls)
}

func TestIngestService_EndToEnd(t *testing.T) {
	provider := &fakeProvider{
		exchangeGrant: driven.TokenGrant{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpiresIn:    3600,
		},
		listIDs: []string{"m1"},
		messages: map[string]*model.RawMessage{
			"m1": rawMessage("Recruiter <recruiter@example.com>", "Urgent: action required",
				"Please reply today.", "Mon, 27 Jul 2026 10:30:00 +0000"),
		},
	}
	svc, _, msgStore := newTestIngestService(t, provider)

	cred, err := svc.tokens.CompleteAuthorization(context.Background(), 1, "abc")
	require.NoError(t, err)
	assert.False(t, cred.ExpiresAt.Before(time.Now().Add(59*time.Minute)))

	stored, err := svc.FetchAndClassify(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	assert.Equal(t, "Urgent: action required", stored[0].Subject)
	assert.Equal(t, model.PriorityHigh, stored[0].Priority)
	assert.Equal(t, "recruiter@example.com", stored[0].Sender)
	assert.Equal(t, model.MessageSourceGmail, stored[0].Source)
	assert.Equal(t, 1, msgStore.count(1))
}

func TestIngestService_SecondRunStoresNothing(t *testing.T) {
	provider := &fakeProvider{
		listIDs: []string{"m1", "m2"},
		messages: map[string]*model.RawMessage{
			"m1": rawMessage("a@example.com", "Interview invitation", "hi", "Mon, 27 Jul 2026 10:30:00 +0000"),
			"m2": rawMessage("b@example.com", "Weekly Newsletter", "unsubscribe", "Mon, 27 Jul 2026 11:00:00 +0000"),
		},
	}
	svc, credStore, msgStore := newTestIngestService(t, provider)
	seedCredential(t, svc.tokens, credStore, 1, time.Hour)

	first, err := svc.FetchAndClassify(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := svc.FetchAndClassify(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, second, "an unchanged inbox yields no new rows")
	assert.Equal(t, 2, msgStore.count(1))
}

func TestIngestService_PerItemFailureSkipsItem(t *testing.T) {
	provider := &fakeProvider{
		listIDs: []string{"m1", "m2", "m3"},
		messages: map[string]*model.RawMessage{
			"m1": rawMessage("a@example.com", "First", "one", "Mon, 27 Jul 2026 10:00:00 +0000"),
			"m3": rawMessage("c@example.com", "Third", "three", "Mon, 27 Jul 2026 12:00:00 +0000"),
		},
		getErr: map[string]error{"m2": errors.New("backend error")},
	}
	svc, credStore, _ := newTestIngestService(t, provider)
	seedCredential(t, svc.tokens, credStore, 1, time.Hour)

	stored, err := svc.FetchAndClassify(context.Background(), 1)
	require.NoError(t, err, "a single bad item never fails the batch")
	require.Len(t, stored, 2)
	assert.Equal(t, "First", stored[0].Subject)
	assert.Equal(t, "Third", stored[1].Subject)
}

func TestIngestService_PreservesListingOrder(t *testing.T) {
	provider := &fakeProvider{}
	provider.listIDs = make([]string, 5)
	provider.messages = make(map[string]*model.RawMessage, 5)
	for i := range 5 {
		id := fmt.Sprintf("m%d", i)
		provider.listIDs[i] = id
		provider.messages[id] = rawMessage(
			fmt.Sprintf("s%d@example.com", i),
			fmt.Sprintf("Subject %d", i),
			"body",
			fmt.Sprintf("Mon, 27 Jul 2026 10:0%d:00 +0000", i),
		)
	}
	svc, credStore, _ := newTestIngestService(t, provider)
	seedCredential(t, svc.tokens, credStore, 1, time.Hour)

	stored, err := svc.FetchAndClassify(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored, 5)
	for i := range 5 {
		assert.Equal(t, fmt.Sprintf("Subject %d", i), stored[i].Subject)
	}
}

func TestIngestService_ListFailure(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("quota exceeded")}
	svc, credStore, _ := newTestIngestService(t, provider)
	seedCredential(t, svc.tokens, credStore, 1, time.Hour)

	_, err := svc.FetchAndClassify(context.Background(), 1)

	var fetchErr *model.MessageFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, model.CodeMessageListFailed, fetchErr.Code)
}

func TestIngestService_RespectsMaxMessages(t *testing.T) {
	provider := &fakeProvider{}
	provider.messages = make(map[string]*model.RawMessage)
	for i := range 10 {
		id := fmt.Sprintf("m%d", i)
		provider.listIDs = append(provider.listIDs, id)
		provider.messages[id] = rawMessage(
			fmt.Sprintf("s%d@example.com", i),
			fmt.Sprintf("Subject %d", i),
			"body",
			fmt.Sprintf("Mon, 27 Jul 2026 10:0%d:00 +0000", i),
		)
	}

	credStore := &fakeCredentialStore{}
	msgStore := &fakeMessageStore{}
	tokens := newTestTokenService(t, credStore, provider)
	svc := NewIngestService(tokens, provider, msgStore, 3, 10000, slog.Default())
	seedCredential(t, tokens, credStore, 1, time.Hour)

	stored, err := svc.FetchAndClassify(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestIngestService_DuplicateInsideToleranceWindow(t *testing.T) {
	provider := &fakeProvider{
		listIDs: []string{"m1"},
		messages: map[string]*model.RawMessage{
			// One second away from the stored row: still a duplicate.
			"m1": rawMessage("a@example.com", "Same subject", "body", "Mon, 27 Jul 2026 10:00:01 +0000"),
		},
	}
	svc, credStore, msgStore := newTestIngestService(t, provider)
	seedCredential(t, svc.tokens, credStore, 1, time.Hour)

	_, err := msgStore.Insert(context.Background(), model.Message{
		AccountID: 1,
		Sender:    "a@example.com",
		Subject:   "Same subject",
		Priority:  model.PriorityMedium,
		Source:    model.MessageSourceGmail,
		Timestamp: time.Date(2026, 7, 27, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	stored, err := svc.FetchAndClassify(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Equal(t, 1, msgStore.count(1))
}
