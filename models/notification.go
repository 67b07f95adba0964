package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is one logical broadcast intent. A repeating notification
// occupies a single row whose scheduledFor advances in place; it never
// spawns sibling rows.
type Notification struct {
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	// Content
	Title string `json:"title" bson:"title"`
	Body  string `json:"body" bson:"body"`
	URL   string `json:"url,omitempty" bson:"url,omitempty"`
	Icon  string `json:"icon,omitempty" bson:"icon,omitempty"`
	Badge int    `json:"badge,omitempty" bson:"badge,omitempty"`

	// Audience
	Scope      string   `json:"scope" bson:"scope"` // all, self
	UserIDs    []string `json:"userIds,omitempty" bson:"userIds,omitempty"`
	CreatedBy  string   `json:"createdBy" bson:"createdBy"`
	CampaignID string   `json:"campaignId,omitempty" bson:"campaignId,omitempty"`

	// Scheduling
	ScheduledFor     time.Time       `json:"scheduledFor,omitempty" bson:"scheduledFor,omitempty"`
	RepeatRule       *RecurrenceRule `json:"repeatRule,omitempty" bson:"repeatRule,omitempty"`
	RepeatUntil      time.Time       `json:"repeatUntil,omitempty" bson:"repeatUntil,omitempty"`
	OccurrencesLimit int             `json:"occurrencesLimit,omitempty" bson:"occurrencesLimit,omitempty"`

	// Lifetime delivery history. Counters accumulate across every run of a
	// repeating notification; they are never reset on re-queue.
	TimesSent    int `json:"timesSent" bson:"timesSent"`
	SuccessCount int `json:"successCount" bson:"successCount"`
	FailedCount  int `json:"failedCount" bson:"failedCount"`

	Status string `json:"status" bson:"status"` // queued, sending, sent, failed

	SentAt    time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// RecurrenceRule is a value object embedded in a notification row.
type RecurrenceRule struct {
	Type       string `json:"type" bson:"type" binding:"omitempty,repeat_type"` // none, daily, weekly, monthly
	Every      int    `json:"every" bson:"every"`                               // cadence multiplier, >= 1
	Weekdays   []int  `json:"weekdays,omitempty" bson:"weekdays,omitempty"`     // ISO weekdays 1..7, weekly only
	DayOfMonth int    `json:"dayOfMonth,omitempty" bson:"dayOfMonth,omitempty"` // 1..31, monthly only
}

// Notification status constants
const (
	NotificationStatusQueued  = "queued"
	NotificationStatusSending = "sending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Audience scopes
const (
	ScopeAll  = "all"
	ScopeSelf = "self"
)

// Recurrence types
const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// Request DTOs

type NotificationPayload struct {
	Title string `json:"title" binding:"required,max=200"`
	Body  string `json:"body" binding:"required,max=2000"`
	URL   string `json:"url,omitempty"`
	Icon  string `json:"icon,omitempty"`
	Badge int    `json:"badge,omitempty"`
}

type SendNotificationRequest struct {
	Payload    NotificationPayload `json:"payload" binding:"required"`
	Scope      string              `json:"scope" binding:"required,scope"`
	UserIDs    []string            `json:"userIds,omitempty"`
	CampaignID string              `json:"campaignId,omitempty"`
	DryRun     bool                `json:"dryRun,omitempty"`
}

type ScheduleNotificationRequest struct {
	Payload          NotificationPayload `json:"payload" binding:"required"`
	Scope            string              `json:"scope" binding:"required,scope"`
	UserIDs          []string            `json:"userIds,omitempty"`
	CampaignID       string              `json:"campaignId,omitempty"`
	ScheduledFor     time.Time           `json:"scheduledFor" binding:"required"`
	RepeatRule       *RecurrenceRule     `json:"repeatRule,omitempty"`
	RepeatUntil      *time.Time          `json:"repeatUntil,omitempty"`
	OccurrencesLimit int                 `json:"occurrencesLimit,omitempty"`
}

// Response DTOs

type SendNotificationResponse struct {
	NotificationID string `json:"notification_id,omitempty"`
	Success        int    `json:"success"`
	Failed         int    `json:"failed"`
	Recipients     int    `json:"recipients"`
	Scope          string `json:"scope"`
	DryRun         bool   `json:"dry_run,omitempty"`
}
