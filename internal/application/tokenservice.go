package application

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/efisher/mailhub/internal/cipher"
	"github.com/efisher/mailhub/internal/domain/model"
	"github.com/efisher/mailhub/internal/domain/port/driven"
)

// DefaultRefreshThreshold is how close to expiry a credential may get before
// an access-token request triggers a refresh.
const DefaultRefreshThreshold = 5 * time.Minute

// TokenService owns the credential lifecycle: authorization, storage of the
// encrypted secrets, lazy refresh on access, and revocation. Refreshes for
// one account are collapsed through a singleflight group so concurrent
// callers never race N redundant refresh calls against the provider.
type TokenService struct {
	credStore driven.CredentialStore
	provider  driven.MailProvider
	cipher    *cipher.Cipher
	states    *StateStore
	threshold time.Duration
	refreshes singleflight.Group
	logger    *slog.Logger
	now       func() time.Time
}

// NewTokenService creates a TokenService. threshold <= 0 selects
// DefaultRefreshThreshold.
func NewTokenService(
	credStore driven.CredentialStore,
	provider driven.MailProvider,
	c *cipher.Cipher,
	states *StateStore,
	threshold time.Duration,
	logger *slog.Logger,
) *TokenService {
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TokenService{
		credStore: credStore,
		provider:  provider,
		cipher:    c,
		states:    states,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

// InitiateAuthorization builds the provider authorization URL for the account,
// registering a fresh random correlation token for the callback.
func (s *TokenService) InitiateAuthorization(ctx context.Context, accountID int64) (string, error) {
	state := uuid.NewString()
	s.states.Put(state, accountID)

	url := s.provider.AuthCodeURL(state)
	s.logger.Info("authorization initiated", "account_id", accountID)

	return url, nil
}

// ConsumeAuthorizationState resolves a callback's correlation token to the
// account that initiated the flow. Each token is valid once.
func (s *TokenService) ConsumeAuthorizationState(state string) (int64, bool) {
	return s.states.Consume(state)
}

// CompleteAuthorization exchanges the authorization code, encrypts the
// returned secrets and persists a new credential row for the account.
func (s *TokenService) CompleteAuthorization(ctx context.Context, accountID int64, code string) (*model.Credential, error) {
	if code == "" {
		return nil, &model.AuthorizationError{
			Code:    model.CodeInvalidAuthCode,
			Message: "authorization code is empty",
		}
	}

	grant, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Error("authorization code exchange failed", "account_id", accountID, "error", err)
		return nil, &model.AuthorizationError{
			Code:    model.CodeOAuthCallbackFailed,
			Message: "authorization code exchange failed",
			Err:     err,
		}
	}

	accessCipher, err := s.cipher.Encrypt(grant.AccessToken)
	if err != nil {
		return nil, err
	}
	refreshCipher, err := s.cipher.Encrypt(grant.RefreshToken)
	if err != nil {
		return nil, err
	}

	cred, err := s.credStore.Save(ctx, model.Credential{
		AccountID:          accountID,
		AccessTokenCipher:  accessCipher,
		RefreshTokenCipher: refreshCipher,
		ExpiresAt:          s.now().Add(time.Duration(grant.ExpiresIn) * time.Second),
	})
	if err != nil {
		return nil, &model.AuthorizationError{
			Code:    model.CodeOAuthCallbackFailed,
			Message: "storing credential failed",
			Err:     err,
		}
	}

	s.logger.Info("authorization completed", "account_id", accountID, "expires_at", cred.ExpiresAt)

	return &cred, nil
}

// GetValidAccessToken returns a usable plaintext access secret for the
// account, refreshing through the provider when the stored credential is
// expiring soon (now + threshold past expiry) or already expired. Returns
// model.ErrNoValidCredential when the account has no credential rows at all;
// a failed refresh surfaces as *model.TokenRefreshError and leaves the stored
// rows untouched.
func (s *TokenService) GetValidAccessToken(ctx context.Context, accountID int64) (string, error) {
	now := s.now()

	cred, err := s.credStore.FindCurrentValid(ctx, accountID, now)
	if err != nil {
		return "", err
	}

	if cred != nil && !cred.IsExpiringSoon(now, s.threshold) {
		return s.cipher.Decrypt(cred.AccessTokenCipher)
	}

	// Expiring soon, or no valid credential left: try the most recent row's
	// refresh secret. The refresh secret usually outlives the access secret.
	return s.refreshAccessToken(ctx, accountID)
}

// refreshAccessToken performs a provider refresh for the account, collapsed
// per account: concurrent callers share one in-flight refresh and all receive
// its result.
func (s *TokenService) refreshAccessToken(ctx context.Context, accountID int64) (string, error) {
	v, err, _ := s.refreshes.Do(strconv.FormatInt(accountID, 10), func() (any, error) {
		return s.doRefresh(ctx, accountID)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (s *TokenService) doRefresh(ctx context.Context, accountID int64) (string, error) {
	// Re-read inside the flight: a refresh that completed while we waited on
	// the singleflight key must not be repeated.
	now := s.now()
	cred, err := s.credStore.FindMostRecent(ctx, accountID)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", model.ErrNoValidCredential
	}
	if !cred.IsExpiringSoon(now, s.threshold) {
		return s.cipher.Decrypt(cred.AccessTokenCipher)
	}

	refreshToken, err := s.cipher.Decrypt(cred.RefreshTokenCipher)
	if err != nil {
		return "", err
	}

	grant, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		s.logger.Error("token refresh failed", "account_id", accountID, "error", err)
		return "", &model.TokenRefreshError{
			Code:    model.CodeTokenRefreshFailed,
			Message: "provider refresh call failed",
			Err:     err,
		}
	}

	accessCipher, err := s.cipher.Encrypt(grant.AccessToken)
	if err != nil {
		return "", err
	}

	// Overwrite in place: the row keeps its identity across refreshes. The
	// refresh secret is replaced only when the provider rotated it.
	cred.AccessTokenCipher = accessCipher
	cred.ExpiresAt = s.now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	if grant.RefreshToken != "" {
		rotated, err := s.cipher.Encrypt(grant.RefreshToken)
		if err != nil {
			return "", err
		}
		cred.RefreshTokenCipher = rotated
	}

	if _, err := s.credStore.Save(ctx, *cred); err != nil {
		return "", &model.TokenRefreshError{
			Code:    model.CodeTokenRefreshFailed,
			Message: "storing refreshed credential failed",
			Err:     err,
		}
	}

	s.logger.Info("access token refreshed", "account_id", accountID, "expires_at", cred.ExpiresAt)

	return grant.AccessToken, nil
}

// HasValidAuthorization reports whether the account holds at least one
// unexpired credential. Store errors degrade to false.
func (s *TokenService) HasValidAuthorization(ctx context.Context, accountID int64) bool {
	ok, err := s.credStore.HasValid(ctx, accountID, s.now())
	if err != nil {
		s.logger.Error("authorization check failed", "account_id", accountID, "error", err)
		return false
	}

	return ok
}

// Revoke deletes every credential row for the account.
func (s *TokenService) Revoke(ctx context.Context, accountID int64) error {
	n, err := s.credStore.DeleteAll(ctx, accountID)
	if err != nil {
		return err
	}

	s.logger.Info("authorization revoked", "account_id", accountID, "deleted", n)

	return nil
}
