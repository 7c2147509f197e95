package hub

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/boardlab/notify-api/pkg/logger"
	"github.com/boardlab/notify-api/pkg/messaging"

	"github.com/boardlab/notify-api/internal/model"
)

// Channel is the broker channel live notifications travel on between
// processes.
const Channel = "notifications.live"

// Envelope is the wire form of a live notification on the broker channel.
type Envelope struct {
	RecipientID  uuid.UUID           `json:"recipient_id"`
	Notification *model.Notification `json:"notification"`
}

// Bridge republishes broker messages into the local hub so that a
// notification created on one API instance reaches subscribers connected to
// another. With a single instance the bridge is simply not run and the
// service publishes into the hub directly.
type Bridge struct {
	hub    *Hub
	broker messaging.Broker
	logger *logger.Logger
}

func NewBridge(h *Hub, broker messaging.Broker, logger *logger.Logger) *Bridge {
	return &Bridge{
		hub:    h,
		broker: broker,
		logger: logger,
	}
}

// Run consumes the broker channel until ctx is cancelled. Malformed messages
// are logged and skipped, they never stop the bridge.
func (b *Bridge) Run(ctx context.Context) error {
	messages, err := b.broker.Subscribe(ctx, Channel)
	if err != nil {
		return err
	}

	b.logger.Info("notification bridge started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("notification bridge stopped")
			return nil
		case payload, ok := <-messages:
			if !ok {
				b.logger.Info("notification bridge channel closed")
				return nil
			}

			var env Envelope
			if err := json.Unmarshal(payload, &env); err != nil {
				b.logger.Error(err, "failed to decode live notification")
				continue
			}
			if env.Notification == nil {
				continue
			}
			b.hub.Publish(env.RecipientID, env.Notification)
		}
	}
}
