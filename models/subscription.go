package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PushSubscription is one device's push address. The platform is decided once
// at registration time and stored discriminated; dispatch never re-parses the
// raw address string.
type PushSubscription struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID   string             `json:"userId" bson:"userId"`
	Platform string             `json:"platform" bson:"platform"` // apns, fcm
	Token    string             `json:"-" bson:"token"`
	Address  string             `json:"address" bson:"address"` // raw tagged form, kept for audit snapshots
	IsActive bool               `json:"isActive" bson:"isActive"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Delivery is the outcome of sending one notification to one device.
// Rows are append-only: written once per fan-out attempt, never updated.
type Delivery struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	NotificationID primitive.ObjectID `json:"notificationId" bson:"notificationId"`
	SubscriptionID primitive.ObjectID `json:"subscriptionId" bson:"subscriptionId"`
	Address        string             `json:"address" bson:"address"`
	Status         string             `json:"status" bson:"status"` // sent, failed, deactivated
	Error          string             `json:"error,omitempty" bson:"error,omitempty"`
	ClickToken     string             `json:"clickToken" bson:"clickToken"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

// Subscription platforms
const (
	PlatformAPNS = "apns"
	PlatformFCM  = "fcm"
)

// Delivery statuses
const (
	DeliveryStatusSent        = "sent"
	DeliveryStatusFailed      = "failed"
	DeliveryStatusDeactivated = "deactivated"
)

type RegisterSubscriptionRequest struct {
	Address string `json:"address" binding:"required,max=512"`
}
