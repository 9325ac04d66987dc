package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
)

type linksRepo struct {
	db dbtx
}

func (r *linksRepo) CreateLink(ctx context.Context, l domain.UserClient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_clients (id, user_id, client_id, created_at)
		VALUES (?, ?, ?, ?)`,
		l.ID, l.UserID, l.ClientID, time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *linksRepo) GetLinkByID(ctx context.Context, id string) (domain.UserClient, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, client_id, created_at
		FROM user_clients WHERE id = ?`, id)

	var l domain.UserClient
	if err := row.Scan(&l.ID, &l.UserID, &l.ClientID, &l.CreatedAt); err != nil {
		return domain.UserClient{}, mapNotFound(err)
	}
	return l, nil
}

func (r *linksRepo) GetLinkByUserClient(ctx context.Context, userID, clientID string) (domain.UserClient, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, client_id, created_at
		FROM user_clients WHERE user_id = ? AND client_id = ?`, userID, clientID)

	var l domain.UserClient
	if err := row.Scan(&l.ID, &l.UserID, &l.ClientID, &l.CreatedAt); err != nil {
		return domain.UserClient{}, mapNotFound(err)
	}
	return l, nil
}

func (r *linksRepo) ListLinksByUser(ctx context.Context, userID string) ([]domain.UserClient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, client_id, created_at
		FROM user_clients WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.UserClient
	for rows.Next() {
		var l domain.UserClient
		if err := rows.Scan(&l.ID, &l.UserID, &l.ClientID, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *linksRepo) DeleteLink(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_clients WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *linksRepo) DeleteLinksByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_clients WHERE user_id = ?`, userID)
	return err
}
