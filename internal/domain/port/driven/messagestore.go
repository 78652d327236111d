package driven

import (
	"context"
	"time"

	"github.com/efisher/mailhub/internal/domain/model"
)

// MessageStore persists classified messages and answers the deduplication
// query used during ingestion.
type MessageStore interface {
	// Insert stores a freshly classified message and returns it with the
	// generated ID and audit timestamps populated.
	Insert(ctx context.Context, msg model.Message) (model.Message, error)

	// FindDuplicate looks up an existing message for the account with the
	// same sender and subject whose timestamp falls inside [from, to]
	// (inclusive bounds). Returns nil when no duplicate exists.
	FindDuplicate(ctx context.Context, accountID int64, sender, subject string, from, to time.Time) (*model.Message, error)

	// ListByAccount returns up to limit messages for the account ordered by
	// message timestamp descending.
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]model.Message, error)

	// ListByAccountAndPriority is ListByAccount restricted to one tier.
	ListByAccountAndPriority(ctx context.Context, accountID int64, priority model.Priority, limit int) ([]model.Message, error)

	// CountByPriority returns the number of stored messages per tier for the
	// account. Tiers with no messages are absent from the map.
	CountByPriority(ctx context.Context, accountID int64) (map[model.Priority]int64, error)

	// DeleteAll removes every message for the account and returns the count.
	DeleteAll(ctx context.Context, accountID int64) (int64, error)
}
