package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gate/store"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `
	c.id, c.name, c.token_ttl_seconds, s.throttle_rate, c.created_at, c.updated_at
`

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, token_ttl_seconds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, int64(c.TokenTTL.Seconds()), now, now,
	)
	return mapConstraint(err)
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients c
		LEFT JOIN client_settings s ON s.client_id = c.id
		WHERE c.id = ?`, id)
	return scanClient(row)
}

func (r *clientsRepo) GetClientByName(ctx context.Context, name string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients c
		LEFT JOIN client_settings s ON s.client_id = c.id
		WHERE c.name = ?`, name)
	return scanClient(row)
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients c
		LEFT JOIN client_settings s ON s.client_id = c.id
		ORDER BY c.created_at DESC, c.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *clientsRepo) UpdateClientTTL(ctx context.Context, clientID string, ttl time.Duration) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE clients SET token_ttl_seconds = ?, updated_at = ? WHERE id = ?`,
		int64(ttl.Seconds()), time.Now().UTC(), clientID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *clientsRepo) SetThrottleRate(ctx context.Context, clientID string, rate *string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO client_settings (client_id, throttle_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (client_id) DO UPDATE SET
			throttle_rate = excluded.throttle_rate,
			updated_at = excluded.updated_at`,
		clientID, mapOptionalString(rate), now, now,
	)
	return mapConstraint(err)
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, clientID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// scanTarget lets scanClient work for both QueryRow and Rows.
type scanTarget interface {
	Scan(dest ...any) error
}

func scanClient(row scanTarget) (domain.Client, error) {
	var (
		c          domain.Client
		ttlSeconds int64
		rate       sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &ttlSeconds, &rate, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Client{}, mapNotFound(err)
	}

	c.TokenTTL = time.Duration(ttlSeconds) * time.Second
	c.ThrottleRate = mapNullStringPtr(rate)
	return c, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
