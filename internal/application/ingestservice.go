package application

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/efisher/mailhub/internal/domain/model"
	"github.com/efisher/mailhub/internal/domain/port/driven"
)

const (
	// DefaultMaxMessages caps how many inbox messages one ingestion call lists.
	DefaultMaxMessages = 50

	// DefaultFetchRate is the fixed per-item throttle in requests per second.
	// A flat rate with no backoff or jitter: the sequential loop keeps it
	// honest without a shared limiter.
	DefaultFetchRate = 10

	// dedupTolerance is the half-width of the duplicate-detection window
	// around a candidate's timestamp (inclusive bounds).
	dedupTolerance = time.Second
)

// IngestService pulls recent mailbox messages, classifies them into priority
// tiers and persists the ones not already stored. Items are processed
// strictly sequentially; a single item's failure is logged and skipped, never
// aborting the batch.
type IngestService struct {
	tokens       *TokenService
	provider     driven.MailProvider
	messageStore driven.MessageStore
	maxMessages  int64
	fetchRate    rate.Limit
	logger       *slog.Logger
	now          func() time.Time
}

// NewIngestService creates an IngestService. Non-positive maxMessages or
// fetchRate select the defaults.
func NewIngestService(
	tokens *TokenService,
	provider driven.MailProvider,
	messageStore driven.MessageStore,
	maxMessages int64,
	fetchRate float64,
	logger *slog.Logger,
) *IngestService {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if fetchRate <= 0 {
		fetchRate = DefaultFetchRate
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IngestService{
		tokens:       tokens,
		provider:     provider,
		messageStore: messageStore,
		maxMessages:  maxMessages,
		fetchRate:    rate.Limit(fetchRate),
		logger:       logger,
		now:          time.Now,
	}
}

// FetchAndClassify ingests up to the configured number of recent inbox
// messages for the account and returns the newly stored ones in the
// provider's listing order. Accounts without a usable credential fail fast
// with model.ErrNotConnected before any network call.
func (s *IngestService) FetchAndClassify(ctx context.Context, accountID int64) ([]model.Message, error) {
	if !s.tokens.HasValidAuthorization(ctx, accountID) {
		return nil, model.ErrNotConnected
	}

	accessToken, err := s.tokens.GetValidAccessToken(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ids, err := s.provider.ListMessageIDs(ctx, accessToken, s.maxMessages)
	if err != nil {
		return nil, &model.MessageFetchError{
			Code:    model.CodeMessageListFailed,
			Message: "listing inbox messages failed",
			Err:     err,
		}
	}

	start := s.now()
	limiter := rate.NewLimiter(s.fetchRate, 1)

	stored := make([]model.Message, 0, len(ids))
	var skippedDuplicates, skippedErrors int

	for _, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			return stored, err
		}

		msg, err := s.ingestOne(ctx, accountID, accessToken, id)
		switch {
		case err != nil:
			// Per-item fault isolation: log and move on.
			s.logger.Warn("message skipped", "account_id", accountID, "message_id", id, "error", err)
			skippedErrors++
		case msg == nil:
			skippedDuplicates++
		default:
			stored = append(stored, *msg)
		}
	}

	s.logger.Info("ingestion complete",
		"account_id", accountID,
		"listed", len(ids),
		"stored", len(stored),
		"duplicates", skippedDuplicates,
		"errors", skippedErrors,
		"duration", s.now().Sub(start).Round(time.Millisecond),
	)

	return stored, nil
}

// ingestOne fetches, extracts, classifies and persists a single message.
// Returns nil, nil for duplicates.
func (s *IngestService) ingestOne(ctx context.Context, accountID int64, accessToken, id string) (*model.Message, error) {
	raw, err := s.provider.GetMessage(ctx, accessToken, id)
	if err != nil {
		return nil, err
	}

	content := extractMessage(raw, s.now())
	priority := Classify(content.Subject, content.Body, content.Sender)

	dup, err := s.messageStore.FindDuplicate(ctx, accountID, content.Sender, content.Subject,
		content.Timestamp.Add(-dedupTolerance), content.Timestamp.Add(dedupTolerance))
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return nil, nil
	}

	msg, err := s.messageStore.Insert(ctx, model.Message{
		AccountID: accountID,
		Sender:    content.Sender,
		Subject:   content.Subject,
		Body:      content.Body,
		Priority:  priority,
		Source:    model.MessageSourceGmail,
		Timestamp: content.Timestamp,
	})
	if err != nil {
		return nil, err
	}

	return &msg, nil
}
