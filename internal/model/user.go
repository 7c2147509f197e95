package model

import (
	"time"

	"github.com/google/uuid"
)

// ChannelPreference decides whether creating a notification also enqueues an
// out-of-band delivery, and through which method. NONE keeps delivery
// in-app only.
type ChannelPreference string

const (
	ChannelPreferenceNone  ChannelPreference = "NONE"
	ChannelPreferenceEmail ChannelPreference = "EMAIL"
	ChannelPreferencePush  ChannelPreference = "PUSH"
	ChannelPreferenceSMS   ChannelPreference = "SMS"
)

// User is the minimal recipient record this core needs: existence checks,
// channel preference and address resolution. Account management lives
// elsewhere.
type User struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	Email             string            `db:"email" json:"email"`
	PushToken         string            `db:"push_token" json:"-"`
	Phone             string            `db:"phone" json:"-"`
	ChannelPreference ChannelPreference `db:"channel_preference" json:"channel_preference"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
}

// Address returns the delivery address for a method, empty when the user has
// none on file.
func (u *User) Address(method DeliveryMethod) string {
	switch method {
	case DeliveryMethodEmail:
		return u.Email
	case DeliveryMethodPush:
		return u.PushToken
	case DeliveryMethodSMS:
		return u.Phone
	}
	return ""
}

type UpdatePreferenceRequest struct {
	ChannelPreference string `json:"channel_preference" binding:"required"`
}
