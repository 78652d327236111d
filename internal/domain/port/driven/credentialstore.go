// Package driven defines the driven ports (outbound dependencies) of the
// application core.
package driven

import (
	"context"
	"time"

	"github.com/efisher/mailhub/internal/domain/model"
)

// CredentialStore is the persistence façade for OAuth credential rows. It
// carries no business rules: validity and refresh decisions belong to the
// lifecycle manager. All operations are scoped to a single account; there is
// no cross-account visibility.
type CredentialStore interface {
	// Save inserts the credential when ID is zero, otherwise updates the
	// existing row in place (bumping updated_at). The stored row, including
	// generated ID and audit timestamps, is returned.
	Save(ctx context.Context, cred model.Credential) (model.Credential, error)

	// FindCurrentValid returns the most-recently-created credential whose
	// expiry is strictly after now, or nil when the account has none.
	FindCurrentValid(ctx context.Context, accountID int64, now time.Time) (*model.Credential, error)

	// FindMostRecent returns the most-recently-created credential regardless
	// of expiry (the refresh candidate), or nil when the account has none.
	FindMostRecent(ctx context.Context, accountID int64) (*model.Credential, error)

	// HasValid reports whether at least one unexpired credential exists.
	HasValid(ctx context.Context, accountID int64, now time.Time) (bool, error)

	// DeleteAll removes every credential row for the account and returns the
	// number of rows removed.
	DeleteAll(ctx context.Context, accountID int64) (int64, error)
}
