package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	apperrors "github.com/boardlab/notify-api/pkg/errors"
	"github.com/boardlab/notify-api/pkg/logger"
	"github.com/boardlab/notify-api/pkg/messaging"

	"github.com/boardlab/notify-api/internal/hub"
	"github.com/boardlab/notify-api/internal/model"
	"github.com/boardlab/notify-api/internal/repository"
)

const (
	unreadCacheTTL     = 30 * time.Second
	unreadCacheCleanup = 5 * time.Minute
)

type CreateInput struct {
	RecipientID uuid.UUID
	ActorID     *uuid.UUID
	Type        model.NotificationType
	SourceType  string
	SourceID    string
	Message     string
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*model.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	GetPreference(ctx context.Context, userID uuid.UUID) (model.ChannelPreference, error)
	UpdatePreference(ctx context.Context, userID uuid.UUID, pref model.ChannelPreference) error
}

type service struct {
	notifications repository.NotificationRepository
	queue         repository.DeliveryQueueRepository
	users         repository.UserRepository
	hub           *hub.Hub
	broker        messaging.Broker
	logger        *logger.Logger
	unreadCache   *gocache.Cache
}

// NewService wires the notification orchestrator. broker may be nil; when set,
// live publishes go through it and the hub bridge fans them back into every
// instance's local hub.
func NewService(
	notifications repository.NotificationRepository,
	queue repository.DeliveryQueueRepository,
	users repository.UserRepository,
	h *hub.Hub,
	broker messaging.Broker,
	log *logger.Logger,
) Service {
	return &service{
		notifications: notifications,
		queue:         queue,
		users:         users,
		hub:           h,
		broker:        broker,
		logger:        log,
		unreadCache:   gocache.New(unreadCacheTTL, unreadCacheCleanup),
	}
}

// Create persists the notification, then pushes it to any live stream and,
// when the recipient prefers an out-of-band channel, enqueues a delivery.
// Persistence is the durable record; everything after it is best-effort and
// must not fail the request.
func (s *service) Create(ctx context.Context, input CreateInput) (*model.Notification, error) {
	recipient, err := s.users.Get(ctx, input.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if input.ActorID != nil {
		if _, err := s.users.Get(ctx, *input.ActorID); err != nil {
			return nil, fmt.Errorf("invalid actor: %w", err)
		}
	}

	n := &model.Notification{
		RecipientID: input.RecipientID,
		ActorID:     input.ActorID,
		Type:        input.Type,
		SourceType:  input.SourceType,
		SourceID:    input.SourceID,
		Message:     input.Message,
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	s.unreadCache.Delete(input.RecipientID.String())

	s.publishLive(ctx, n)

	if method, ok := deliveryMethodFor(recipient.ChannelPreference); ok {
		item := &model.DeliveryQueueItem{
			UserID:  recipient.ID,
			Method:  method,
			Payload: n.Message,
		}
		if err := s.queue.Enqueue(ctx, item); err != nil {
			// The notification row is already durable; a lost enqueue is
			// reported for operators, not surfaced to the caller.
			s.logger.Error(err, "failed to enqueue delivery",
				"notification_id", n.ID.String(),
				"method", string(method))
		}
	}

	return n, nil
}

func (s *service) publishLive(ctx context.Context, n *model.Notification) {
	if s.broker != nil {
		env := hub.Envelope{RecipientID: n.RecipientID, Notification: n}
		if err := s.broker.Publish(ctx, hub.Channel, env); err != nil {
			s.logger.Error(err, "failed to publish live notification, falling back to local hub",
				"notification_id", n.ID.String())
			s.hub.Publish(n.RecipientID, n)
		}
		return
	}
	s.hub.Publish(n.RecipientID, n)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.notifications.ListByRecipient(ctx, userID, limit, offset)
}

// MarkRead is idempotent; marking an already-read notification is a no-op.
func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	n, err := s.notifications.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.RecipientID != userID {
		return apperrors.Forbidden("notification belongs to another user")
	}
	if n.Read {
		return nil
	}

	if err := s.notifications.MarkRead(ctx, notificationID); err != nil {
		return err
	}
	s.unreadCache.Delete(userID.String())
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	s.unreadCache.Delete(userID.String())
	return nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	key := userID.String()
	if cached, ok := s.unreadCache.Get(key); ok {
		return cached.(int), nil
	}

	count, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.unreadCache.Set(key, count, gocache.DefaultExpiration)
	return count, nil
}

func (s *service) GetPreference(ctx context.Context, userID uuid.UUID) (model.ChannelPreference, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.ChannelPreference, nil
}

func (s *service) UpdatePreference(ctx context.Context, userID uuid.UUID, pref model.ChannelPreference) error {
	switch pref {
	case model.ChannelPreferenceNone, model.ChannelPreferenceEmail,
		model.ChannelPreferencePush, model.ChannelPreferenceSMS:
	default:
		return apperrors.BadRequest(fmt.Sprintf("invalid channel preference: %s", pref), nil)
	}
	return s.users.UpdateChannelPreference(ctx, userID, pref)
}

func deliveryMethodFor(pref model.ChannelPreference) (model.DeliveryMethod, bool) {
	switch pref {
	case model.ChannelPreferenceEmail:
		return model.DeliveryMethodEmail, true
	case model.ChannelPreferencePush:
		return model.DeliveryMethodPush, true
	case model.ChannelPreferenceSMS:
		return model.DeliveryMethodSMS, true
	}
	return "", false
}
