// Package model contains the domain entities shared across ports and adapters.
package model

import "time"

// Credential holds one issued OAuth grant for an account. The access and
// refresh secrets are stored as ciphertext only; plaintext exists transiently
// in the lifecycle manager. An account may accumulate many rows over time --
// "the current credential" is the most-recently-created one.
type Credential struct {
	ID                 int64
	AccountID          int64
	AccessTokenCipher  string
	RefreshTokenCipher string
	ExpiresAt          time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsExpired reports whether the access secret is unusable at the given instant.
func (c Credential) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// IsExpiringSoon reports whether the credential falls inside the refresh
// window: now + threshold is past the expiry.
func (c Credential) IsExpiringSoon(now time.Time, threshold time.Duration) bool {
	return now.Add(threshold).After(c.ExpiresAt)
}
