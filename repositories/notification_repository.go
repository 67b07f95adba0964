// repositories/notification_repository.go
package repositories

import (
	"context"
	"fmt"
	"time"

	"venuehub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository struct {
	db                     *mongo.Database
	notificationCollection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		db:                     db,
		notificationCollection: db.Collection("notifications"),
	}
}

func (nr *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	notification.CreatedAt = time.Now().UTC()
	notification.UpdatedAt = notification.CreatedAt
	if notification.Status == "" {
		notification.Status = models.NotificationStatusQueued
	}

	result, err := nr.notificationCollection.InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		notification.ID = oid
	}

	return nil
}

func (nr *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed id can never match a stored row.
		return nil, mongo.ErrNoDocuments
	}

	var notification models.Notification
	err = nr.notificationCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return &notification, nil
}

// GetDueNotifications selects up to limit queued notifications whose
// scheduled time has passed, most overdue first.
func (nr *NotificationRepository) GetDueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	filter := bson.M{
		"status":       models.NotificationStatusQueued,
		"scheduledFor": bson.M{"$lte": now},
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "scheduledFor", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := nr.notificationCollection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find due notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode due notifications: %w", err)
	}

	return notifications, nil
}

// MarkSending flips a queued notification to sending for the duration of a
// fan-out. Overlapping dispatcher runs may both claim a row; that is
// acceptable, duplicate sends reconcile through additive counters and the
// append-only delivery log.
func (nr *NotificationRepository) MarkSending(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{
		"status":    models.NotificationStatusSending,
		"updatedAt": time.Now().UTC(),
	}}

	_, err := nr.notificationCollection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to mark notification sending: %w", err)
	}

	return nil
}

// Requeue returns a repeating notification to queued with its next fire time,
// folding this run's outcome into the lifetime counters. Counter updates are
// $inc so concurrent duplicate runs stay commutative.
func (nr *NotificationRepository) Requeue(ctx context.Context, id primitive.ObjectID, next time.Time, success, failed int) error {
	update := bson.M{
		"$set": bson.M{
			"status":       models.NotificationStatusQueued,
			"scheduledFor": next.UTC(),
			"sentAt":       time.Now().UTC(),
			"updatedAt":    time.Now().UTC(),
		},
		"$inc": bson.M{
			"timesSent":    1,
			"successCount": success,
			"failedCount":  failed,
		},
	}

	_, err := nr.notificationCollection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to requeue notification: %w", err)
	}

	return nil
}

// Finalize moves a notification into a terminal state after a completed
// fan-out and clears every recurrence field so the row cannot resume.
func (nr *NotificationRepository) Finalize(ctx context.Context, id primitive.ObjectID, status string, success, failed int) error {
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"sentAt":    time.Now().UTC(),
			"updatedAt": time.Now().UTC(),
		},
		"$inc": bson.M{
			"timesSent":    1,
			"successCount": success,
			"failedCount":  failed,
		},
		"$unset": bson.M{
			"repeatRule":       "",
			"repeatUntil":      "",
			"occurrencesLimit": "",
		},
	}

	_, err := nr.notificationCollection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to finalize notification: %w", err)
	}

	return nil
}

// FinalizeWithoutRun terminates a row without a fan-out having happened, e.g.
// a due row whose occurrences limit was already exhausted or whose recipients
// could not be resolved.
func (nr *NotificationRepository) FinalizeWithoutRun(ctx context.Context, id primitive.ObjectID, status string) error {
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"updatedAt": time.Now().UTC(),
		},
		"$unset": bson.M{
			"repeatRule":       "",
			"repeatUntil":      "",
			"occurrencesLimit": "",
		},
	}

	_, err := nr.notificationCollection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to finalize notification: %w", err)
	}

	return nil
}

func (nr *NotificationRepository) List(ctx context.Context, page, pageSize int) ([]models.Notification, int64, error) {
	filter := bson.M{}

	total, err := nr.notificationCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	skip := (page - 1) * pageSize
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize))

	cursor, err := nr.notificationCollection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return notifications, total, nil
}
