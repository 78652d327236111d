package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/efisher/mailhub/internal/domain/model"
	"github.com/efisher/mailhub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// Rows hold ciphertext only; encryption happens in the lifecycle manager
// before values reach this layer.
type CredentialRepo struct {
	db  *DB
	now func() time.Time
}

// NewCredentialRepo creates a CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db, now: time.Now}
}

// Save inserts the credential when ID is zero, otherwise updates the row in
// place and bumps updated_at.
func (r *CredentialRepo) Save(ctx context.Context, cred model.Credential) (model.Credential, error) {
	now := r.now().UTC()

	if cred.ID == 0 {
		const query = `
			INSERT INTO credentials (account_id, access_token_cipher, refresh_token_cipher, expires_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		cred.CreatedAt = now
		cred.UpdatedAt = now

		res, err := r.db.Writer.ExecContext(ctx, query,
			cred.AccountID, cred.AccessTokenCipher, cred.RefreshTokenCipher,
			formatTime(cred.ExpiresAt), formatTime(cred.CreatedAt), formatTime(cred.UpdatedAt),
		)
		if err != nil {
			return model.Credential{}, fmt.Errorf("insert credential for account %d: %w", cred.AccountID, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return model.Credential{}, fmt.Errorf("insert credential for account %d: %w", cred.AccountID, err)
		}
		cred.ID = id

		return cred, nil
	}

	const query = `
		UPDATE credentials
		SET access_token_cipher = ?, refresh_token_cipher = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND account_id = ?
	`
	cred.UpdatedAt = now

	res, err := r.db.Writer.ExecContext(ctx, query,
		cred.AccessTokenCipher, cred.RefreshTokenCipher,
		formatTime(cred.ExpiresAt), formatTime(cred.UpdatedAt),
		cred.ID, cred.AccountID,
	)
	if err != nil {
		return model.Credential{}, fmt.Errorf("update credential %d: %w", cred.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Credential{}, fmt.Errorf("update credential %d: no such row", cred.ID)
	}

	return cred, nil
}

// FindCurrentValid returns the most-recently-created credential with
// expires_at strictly after now. Returns nil, nil when none exists.
func (r *CredentialRepo) FindCurrentValid(ctx context.Context, accountID int64, now time.Time) (*model.Credential, error) {
	const query = `
		SELECT id, account_id, access_token_cipher, refresh_token_cipher, expires_at, created_at, updated_at
		FROM credentials
		WHERE account_id = ? AND expires_at > ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, accountID, formatTime(now)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find valid credential for account %d: %w", accountID, err)
	}

	return cred, nil
}

// FindMostRecent returns the most-recently-created credential regardless of
// expiry. Returns nil, nil when the account has no rows.
func (r *CredentialRepo) FindMostRecent(ctx context.Context, accountID int64) (*model.Credential, error) {
	const query = `
		SELECT id, account_id, access_token_cipher, refresh_token_cipher, expires_at, created_at, updated_at
		FROM credentials
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find credential for account %d: %w", accountID, err)
	}

	return cred, nil
}

// HasValid reports whether at least one unexpired credential exists.
func (r *CredentialRepo) HasValid(ctx context.Context, accountID int64, now time.Time) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM credentials WHERE account_id = ? AND expires_at > ?)`

	var exists int
	if err := r.db.Reader.QueryRowContext(ctx, query, accountID, formatTime(now)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check valid credential for account %d: %w", accountID, err)
	}

	return exists == 1, nil
}

// DeleteAll removes every credential row for the account.
func (r *CredentialRepo) DeleteAll(ctx context.Context, accountID int64) (int64, error) {
	const query = `DELETE FROM credentials WHERE account_id = ?`

	res, err := r.db.Writer.ExecContext(ctx, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("delete credentials for account %d: %w", accountID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete credentials for account %d: %w", accountID, err)
	}

	return n, nil
}

// scanCredential reads one credential row.
func scanCredential(row *sql.Row) (*model.Credential, error) {
	var cred model.Credential
	var expiresAt, createdAt, updatedAt string

	if err := row.Scan(
		&cred.ID, &cred.AccountID, &cred.AccessTokenCipher, &cred.RefreshTokenCipher,
		&expiresAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if cred.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	if cred.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &cred, nil
}
