package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
)

type tokensRepo struct {
	db dbtx
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.AuthToken) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_tokens (id, token, link_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Token, t.LinkID, created, t.ExpiresAt,
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetTokenByString(ctx context.Context, token string) (domain.AuthToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, token, link_id, created_at, expires_at
		FROM auth_tokens WHERE token = ?`, token)
	return scanToken(row)
}

func (r *tokensRepo) GetTokenByLink(ctx context.Context, linkID string) (domain.AuthToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, token, link_id, created_at, expires_at
		FROM auth_tokens WHERE link_id = ?`, linkID)
	return scanToken(row)
}

func (r *tokensRepo) UpdateTokenExpiry(ctx context.Context, tokenID string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE auth_tokens SET expires_at = ? WHERE id = ?`, expiresAt, tokenID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *tokensRepo) DeleteToken(ctx context.Context, tokenID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE id = ?`, tokenID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *tokensRepo) PurgeExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE expires_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanToken(row scanTarget) (domain.AuthToken, error) {
	var t domain.AuthToken
	if err := row.Scan(&t.ID, &t.Token, &t.LinkID, &t.CreatedAt, &t.ExpiresAt); err != nil {
		return domain.AuthToken{}, mapNotFound(err)
	}
	return t, nil
}
