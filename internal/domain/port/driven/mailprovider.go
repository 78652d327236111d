package driven

import (
	"context"

	"github.com/efisher/mailhub/internal/domain/model"
)

// TokenGrant is the provider's response to a code exchange or a refresh.
type TokenGrant struct {
	AccessToken string
	// RefreshToken is empty on a refresh response unless the provider
	// rotated the refresh secret.
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}

// MailProvider is the boundary to the external mailbox provider. The core
// depends only on this request/response contract; transport, retries beyond
// the provider SDK's own, and API versioning live in the adapter.
type MailProvider interface {
	// AuthCodeURL builds the user-facing authorization URL carrying the
	// given correlation state (response_type=code, offline access, forced
	// consent).
	AuthCodeURL(state string) string

	// ExchangeCode swaps an authorization code for an initial token grant.
	ExchangeCode(ctx context.Context, code string) (TokenGrant, error)

	// Refresh swaps a refresh secret for a new access secret.
	Refresh(ctx context.Context, refreshToken string) (TokenGrant, error)

	// ListMessageIDs returns up to max most-recent inbox message ids in the
	// provider's listing order (typically reverse-chronological).
	ListMessageIDs(ctx context.Context, accessToken string, max int64) ([]string, error)

	// GetMessage fetches the full content of one message.
	GetMessage(ctx context.Context, accessToken, id string) (*model.RawMessage, error)
}
