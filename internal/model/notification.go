package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeComment NotificationType = "COMMENT"
	NotificationTypeLike    NotificationType = "LIKE"
	NotificationTypeMention NotificationType = "MENTION"
	NotificationTypeReply   NotificationType = "REPLY"
	NotificationTypeSystem  NotificationType = "SYSTEM"
)

// Notification is one event delivered to one recipient. Created once by the
// notification service, mutated only by the read flag (false to true), never
// deleted here.
type Notification struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	RecipientID uuid.UUID        `db:"recipient_id" json:"recipient_id"`
	ActorID     *uuid.UUID       `db:"actor_id" json:"actor_id,omitempty"`
	Type        NotificationType `db:"type" json:"type"`
	SourceType  string           `db:"source_type" json:"source_type"`
	SourceID    string           `db:"source_id" json:"source_id"`
	Message     string           `db:"message" json:"message"`
	Read        bool             `db:"read" json:"read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

type CreateNotificationRequest struct {
	RecipientID string `json:"recipient_id" binding:"required"`
	ActorID     string `json:"actor_id,omitempty"`
	Type        string `json:"type" binding:"required"`
	SourceType  string `json:"source_type" binding:"required"`
	SourceID    string `json:"source_id" binding:"required"`
	Message     string `json:"message" binding:"required"`
}
