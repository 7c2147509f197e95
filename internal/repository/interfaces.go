package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/boardlab/notify-api/internal/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error)
}

type DeliveryQueueRepository interface {
	Enqueue(ctx context.Context, item *model.DeliveryQueueItem) error
	Get(ctx context.Context, id uuid.UUID) (*model.DeliveryQueueItem, error)
	SelectPending(ctx context.Context, retryCeiling int) ([]*model.DeliveryQueueItem, error)
	MarkSent(ctx context.Context, item *model.DeliveryQueueItem) error
	MarkFailed(ctx context.Context, item *model.DeliveryQueueItem, retryCeiling int) error
}

type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateChannelPreference(ctx context.Context, id uuid.UUID, pref model.ChannelPreference) error
}
