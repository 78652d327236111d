package driven

import (
	"context"

	"github.com/efisher/mailhub/internal/domain/model"
)

// AccountResolver maps a verified identity token from the request boundary to
// an account-holder id. Implementations must return
// model.ErrNoAuthenticatedAccount for absent or unknown tokens.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, identityToken string) (int64, error)
}

// AccountStore is the minimal identity directory consumed by the core.
type AccountStore interface {
	AccountResolver

	// Create registers an account and returns it with the generated ID.
	Create(ctx context.Context, account model.Account) (model.Account, error)

	// FindByEmail returns the account with the given email, or nil.
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// Delete removes the account row. Credential and message cleanup is the
	// caller's responsibility (the application layer fans out the deletes).
	Delete(ctx context.Context, accountID int64) error
}
