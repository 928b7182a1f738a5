package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"b2bcatalog/internal/domain"
	"b2bcatalog/internal/supplier"
)

// TokenRepo is a supplier.TokenStore backed by the supplier_tokens table,
// one row per credential.
type TokenRepo struct {
	db         *sqlx.DB
	credential string
}

func NewTokenRepo(db *sqlx.DB, credential string) *TokenRepo {
	return &TokenRepo{db: db, credential: credential}
}

type tokenRow struct {
	AccessToken  string `db:"access_token"`
	RefreshToken string `db:"refresh_token"`
	ExpiresAt    string `db:"expires_at"`
}

func (r *TokenRepo) Load(ctx context.Context) (supplier.Token, error) {
	var row tokenRow
	err := r.db.GetContext(ctx, &row, `
		SELECT access_token, refresh_token, expires_at
		FROM supplier_tokens WHERE credential = ?`, r.credential)
	if errors.Is(err, sql.ErrNoRows) {
		return supplier.Token{}, supplier.ErrNoToken
	}
	if err != nil {
		return supplier.Token{}, err
	}
	exp, err := time.Parse(domain.TimeLayout, row.ExpiresAt)
	if err != nil {
		return supplier.Token{}, err
	}
	return supplier.Token{AccessToken: row.AccessToken, RefreshToken: row.RefreshToken, ExpiresAt: exp}, nil
}

func (r *TokenRepo) Save(ctx context.Context, t supplier.Token) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO supplier_tokens(credential, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(credential) DO UPDATE SET
		  access_token = excluded.access_token,
		  refresh_token = excluded.refresh_token,
		  expires_at = excluded.expires_at,
		  updated_at = excluded.updated_at`,
		r.credential, t.AccessToken, t.RefreshToken, stamp(t.ExpiresAt), stamp(time.Now()))
	return err
}
