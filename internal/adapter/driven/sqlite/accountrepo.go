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
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port. It backs
// the AccountResolver boundary: identity tokens map 1:1 to account rows.
type AccountRepo struct {
	db  *DB
	now func() time.Time
}

// NewAccountRepo creates an AccountRepo backed by the given DB.
func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db, now: time.Now}
}

// ResolveAccount maps an identity token to an account id. Absent or unknown
// tokens return model.ErrNoAuthenticatedAccount.
func (r *AccountRepo) ResolveAccount(ctx context.Context, identityToken string) (int64, error) {
	if identityToken == "" {
		return 0, model.ErrNoAuthenticatedAccount
	}

	const query = `SELECT id FROM accounts WHERE api_token = ?`

	var id int64
	err := r.db.Reader.QueryRowContext(ctx, query, identityToken).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrNoAuthenticatedAccount
	}
	if err != nil {
		return 0, fmt.Errorf("resolve account: %w", err)
	}

	return id, nil
}

// Create registers a new account.
func (r *AccountRepo) Create(ctx context.Context, account model.Account) (model.Account, error) {
	const query = `INSERT INTO accounts (email, api_token, created_at) VALUES (?, ?, ?)`

	account.CreatedAt = r.now().UTC()

	res, err := r.db.Writer.ExecContext(ctx, query, account.Email, account.APIToken, formatTime(account.CreatedAt))
	if err != nil {
		return model.Account{}, fmt.Errorf("create account %q: %w", account.Email, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Account{}, fmt.Errorf("create account %q: %w", account.Email, err)
	}
	account.ID = id

	return account, nil
}

// FindByEmail returns the account with the given email, or nil, nil.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	const query = `SELECT id, email, api_token, created_at FROM accounts WHERE email = ?`

	var account model.Account
	var createdAt string
	err := r.db.Reader.QueryRowContext(ctx, query, email).Scan(&account.ID, &account.Email, &account.APIToken, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account %q: %w", email, err)
	}

	if account.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &account, nil
}

// Delete removes the account row.
func (r *AccountRepo) Delete(ctx context.Context, accountID int64) error {
	const query = `DELETE FROM accounts WHERE id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("delete account %d: %w", accountID, err)
	}

	return nil
}
