package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/boardlab/notify-api/pkg/errors"

	"github.com/boardlab/notify-api/internal/model"
	"github.com/boardlab/notify-api/internal/repository"
)

type deliveryQueueRepository struct {
	BaseRepository
}

func NewDeliveryQueueRepository(base BaseRepository) repository.DeliveryQueueRepository {
	return &deliveryQueueRepository{base}
}

func (r *deliveryQueueRepository) Enqueue(ctx context.Context, item *model.DeliveryQueueItem) error {
	query := `
		INSERT INTO delivery_queue (
			id, user_id, method, payload, status, retry_count, requested_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	item.ID = uuid.New()
	item.Status = model.DeliveryStatusPending
	item.RetryCount = 0
	item.RequestedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.UserID,
		item.Method,
		item.Payload,
		item.Status,
		item.RetryCount,
		item.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue delivery: %w", err)
	}
	return nil
}

func (r *deliveryQueueRepository) Get(ctx context.Context, id uuid.UUID) (*model.DeliveryQueueItem, error) {
	query := `SELECT * FROM delivery_queue WHERE id = $1`

	var item model.DeliveryQueueItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("delivery queue item", err)
		}
		return nil, fmt.Errorf("failed to get delivery queue item: %w", err)
	}

	return &item, nil
}

// SelectPending returns eligible rows oldest first. SKIP LOCKED keeps a
// second dispatcher instance from picking up rows a concurrent transaction
// already claimed.
func (r *deliveryQueueRepository) SelectPending(ctx context.Context, retryCeiling int) ([]*model.DeliveryQueueItem, error) {
	query := `
		SELECT * FROM delivery_queue
		WHERE status = $1 AND retry_count < $2
		ORDER BY requested_at ASC, id ASC
		FOR UPDATE SKIP LOCKED
	`

	items := []*model.DeliveryQueueItem{}
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &items, query, model.DeliveryStatusPending, retryCeiling)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select pending deliveries: %w", err)
	}

	return items, nil
}

func (r *deliveryQueueRepository) MarkSent(ctx context.Context, item *model.DeliveryQueueItem) error {
	query := `
		UPDATE delivery_queue
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`

	now := time.Now()
	if _, err := r.db.ExecContext(ctx, query, model.DeliveryStatusSent, now, item.ID); err != nil {
		return fmt.Errorf("failed to mark delivery sent: %w", err)
	}

	item.Status = model.DeliveryStatusSent
	item.LastAttemptAt = &now
	return nil
}

// MarkFailed increments the retry counter. FAILED is reserved for retries
// exhausted, an attempt short of the ceiling keeps the row PENDING so the
// next tick can retry it.
func (r *deliveryQueueRepository) MarkFailed(ctx context.Context, item *model.DeliveryQueueItem, retryCeiling int) error {
	status := model.DeliveryStatusPending
	if item.RetryCount+1 >= retryCeiling {
		status = model.DeliveryStatusFailed
	}

	query := `
		UPDATE delivery_queue
		SET status = $1, retry_count = retry_count + 1, last_attempt_at = $2
		WHERE id = $3
	`

	now := time.Now()
	if _, err := r.db.ExecContext(ctx, query, status, now, item.ID); err != nil {
		return fmt.Errorf("failed to mark delivery failed: %w", err)
	}

	item.Status = status
	item.RetryCount++
	item.LastAttemptAt = &now
	return nil
}
