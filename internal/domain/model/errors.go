package model

import "errors"

// Sentinel conditions surfaced to callers. ErrNotConnected ("never linked a
// mailbox, or all grants revoked") is deliberately distinct from a failed
// refresh so the caller can decide between silently retrying and prompting
// re-authorization.
var (
	ErrNoValidCredential      = errors.New("no valid mailbox credential")
	ErrNotConnected           = errors.New("mailbox not connected")
	ErrNoAuthenticatedAccount = errors.New("no authenticated account")
)

// AuthorizationError reports a failed authorization-code exchange or a
// provider-side denial during the OAuth flow.
type AuthorizationError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthorizationError) Error() string {
	return "authorization failed (" + e.Code + "): " + e.Message
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// TokenRefreshError reports a refresh call that failed or returned unusable
// data. The stored credential is left untouched when this is raised.
type TokenRefreshError struct {
	Code    string
	Message string
	Err     error
}

func (e *TokenRefreshError) Error() string {
	return "token refresh failed (" + e.Code + "): " + e.Message
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// MessageFetchError reports a listing or batch-level ingestion failure.
// Single-item failures are recovered locally and never carry this type.
type MessageFetchError struct {
	Code    string
	Message string
	Err     error
}

func (e *MessageFetchError) Error() string {
	return "message fetch failed (" + e.Code + "): " + e.Message
}

func (e *MessageFetchError) Unwrap() error { return e.Err }

// Stable machine-readable error codes carried by the typed errors above.
const (
	CodeOAuthInitiationFailed = "OAUTH_INITIATION_FAILED"
	CodeOAuthCallbackFailed   = "OAUTH_CALLBACK_FAILED"
	CodeInvalidAuthCode       = "INVALID_AUTH_CODE"
	CodeTokenRefreshFailed    = "TOKEN_REFRESH_FAILED"
	CodeMessageListFailed     = "MESSAGE_LIST_FAILED"
	CodeMessageFetchFailed    = "MESSAGE_FETCH_FAILED"
)
