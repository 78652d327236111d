package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/efisher/mailhub/internal/domain/model"
	"github.com/efisher/mailhub/internal/domain/port/driven"
)

// fakeCredentialStore is an in-memory CredentialStore.
type fakeCredentialStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []model.Credential
	err    error
}

var _ driven.CredentialStore = (*fakeCredentialStore)(nil)

func (f *fakeCredentialStore) Save(_ context.Context, cred model.Credential) (model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.Credential{}, f.err
	}

	now := time.Now().UTC()
	if cred.ID == 0 {
		f.nextID++
		cred.ID = f.nextID
		cred.CreatedAt = now
		cred.UpdatedAt = now
		f.rows = append(f.rows, cred)
		return cred, nil
	}

	for i := range f.rows {
		if f.rows[i].ID == cred.ID {
			cred.CreatedAt = f.rows[i].CreatedAt
			cred.UpdatedAt = now
			f.rows[i] = cred
			return cred, nil
		}
	}
	return model.Credential{}, errors.New("no such credential")
}

func (f *fakeCredentialStore) FindCurrentValid(_ context.Context, accountID int64, now time.Time) (*model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var best *model.Credential
	for i := range f.rows {
		row := f.rows[i]
		if row.AccountID != accountID || !row.ExpiresAt.After(now) {
			continue
		}
		if best == nil || row.CreatedAt.After(best.CreatedAt) || (row.CreatedAt.Equal(best.CreatedAt) && row.ID > best.ID) {
			cp := row
			best = &cp
		}
	}
	return best, nil
}

func (f *fakeCredentialStore) FindMostRecent(_ context.Context, accountID int64) (*model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var best *model.Credential
	for i := range f.rows {
		row := f.rows[i]
		if row.AccountID != accountID {
			continue
		}
		if best == nil || row.CreatedAt.After(best.CreatedAt) || (row.CreatedAt.Equal(best.CreatedAt) && row.ID > best.ID) {
			cp := row
			best = &cp
		}
	}
	return best, nil
}

func (f *fakeCredentialStore) HasValid(ctx context.Context, accountID int64, now time.Time) (bool, error) {
	cred, err := f.FindCurrentValid(ctx, accountID, now)
	if err != nil {
		return false, err
	}
	return cred != nil, nil
}

func (f *fakeCredentialStore) DeleteAll(_ context.Context, accountID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}

	var kept []model.Credential
	var deleted int64
	for _, row := range f.rows {
		if row.AccountID == accountID {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeCredentialStore) count(accountID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.AccountID == accountID {
			n++
		}
	}
	return n
}

// fakeProvider is a scriptable MailProvider that counts calls.
type fakeProvider struct {
	mu sync.Mutex

	exchangeGrant driven.TokenGrant
	exchangeErr   error
	exchangeCalls int

	refreshGrant driven.TokenGrant
	refreshErr   error
	refreshCalls int
	refreshDelay time.Duration

	listIDs   []string
	listErr   error
	listCalls int

	messages map[string]*model.RawMessage
	getErr   map[string]error
	getCalls int
}

var _ driven.MailProvider = (*fakeProvider)(nil)

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/auth?state=" + state
}

func (f *fakeProvider) ExchangeCode(_ context.Context, code string) (driven.TokenGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return driven.TokenGrant{}, f.exchangeErr
	}
	return f.exchangeGrant, nil
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (driven.TokenGrant, error) {
	f.mu.Lock()
	f.refreshCalls++
	delay := f.refreshDelay
	grant, err := f.refreshGrant, f.refreshErr
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return driven.TokenGrant{}, err
	}
	return grant, nil
}

func (f *fakeProvider) ListMessageIDs(_ context.Context, accessToken string, max int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := f.listIDs
	if int64(len(ids)) > max {
		ids = ids[:max]
	}
	return ids, nil
}

func (f *fakeProvider) GetMessage(_ context.Context, accessToken, id string) (*model.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if err, ok := f.getErr[id]; ok {
		return nil, err
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, errors.New("no such message")
	}
	return msg, nil
}

func (f *fakeProvider) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// fakeMessageStore is an in-memory MessageStore.
type fakeMessageStore struct {
	mu        sync.Mutex
	nextID    int64
	rows      []model.Message
	insertErr error
}

var _ driven.MessageStore = (*fakeMessageStore)(nil)

func (f *fakeMessageStore) Insert(_ context.Context, msg model.Message) (model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return model.Message{}, f.insertErr
	}

	f.nextID++
	msg.ID = f.nextID
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	f.rows = append(f.rows, msg)
	return msg, nil
}

func (f *fakeMessageStore) FindDuplicate(_ context.Context, accountID int64, sender, subject string, from, to time.Time) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.rows {
		row := f.rows[i]
		if row.AccountID != accountID || row.Sender != sender || row.Subject != subject {
			continue
		}
		if row.Timestamp.Before(from) || row.Timestamp.After(to) {
			continue
		}
		cp := row
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeMessageStore) ListByAccount(_ context.Context, accountID int64, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Message
	for _, row := range f.rows {
		if row.AccountID == accountID {
			out = append(out, row)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMessageStore) ListByAccountAndPriority(_ context.Context, accountID int64, priority model.Priority, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Message
	for _, row := range f.rows {
		if row.AccountID == accountID && row.Priority == priority {
			out = append(out, row)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMessageStore) CountByPriority(_ context.Context, accountID int64) (map[model.Priority]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[model.Priority]int64)
	for _, row := range f.rows {
		if row.AccountID == accountID {
			counts[row.Priority]++
		}
	}
	return counts, nil
}

func (f *fakeMessageStore) DeleteAll(_ context.Context, accountID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kept []model.Message
	var deleted int64
	for _, row := range f.rows {
		if row.AccountID == accountID {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeMessageStore) count(accountID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.AccountID == accountID {
			n++
		}
	}
	return n
}
