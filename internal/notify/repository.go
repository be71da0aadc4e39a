package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("notification not found")

// Repository describes notification persistence operations.
type Repository interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	Get(ctx context.Context, id uuid.UUID) (Notification, error)
	MarkStatus(ctx context.Context, id uuid.UUID, status Status) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const notificationColumns = `id, recipient_ids, kind, delivery_mode, title, body, related_entity_id, status, created_at, sent_at`

func (r *repository) Insert(ctx context.Context, n Notification) (Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = StatusQueued
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO notifications (id, recipient_ids, kind, delivery_mode, title, body, related_entity_id, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+notificationColumns, n.ID, n.RecipientIDs, string(n.Kind), string(n.DeliveryMode), n.Title, n.Body, n.RelatedEntityID, string(n.Status))
	saved, err := scanNotification(row)
	if err != nil {
		return Notification{}, fmt.Errorf("notify: insert: %w", err)
	}
	return saved, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, err
	}
	return n, nil
}

func (r *repository) MarkStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET status = $2, sent_at = CASE WHEN $2 = 'SENT' THEN NOW() ELSE sent_at END WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("notify: mark status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	var kind, mode, status string
	var sentAt pgtype.Timestamptz
	if err := row.Scan(&n.ID, &n.RecipientIDs, &kind, &mode, &n.Title, &n.Body, &n.RelatedEntityID, &status, &n.CreatedAt, &sentAt); err != nil {
		return Notification{}, err
	}
	n.Kind = Kind(kind)
	n.DeliveryMode = DeliveryMode(mode)
	n.Status = Status(status)
	if sentAt.Valid {
		val := sentAt.Time
		n.SentAt = &val
	}
	return n, nil
}
