// repositories/delivery_repository.go
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

// DeliveryRepository writes the append-only delivery audit log. Rows are
// inserted once per (notification, device) fan-out attempt and never updated
// or deleted; the campaign dashboards read them to compute delivery rates.
type DeliveryRepository struct {
	db                 *mongo.Database
	deliveryCollection *mongo.Collection
}

func NewDeliveryRepository(db *mongo.Database) *DeliveryRepository {
	return &DeliveryRepository{
		db:                 db,
		deliveryCollection: db.Collection("notification_deliveries"),
	}
}

func (dr *DeliveryRepository) Create(ctx context.Context, delivery *models.Delivery) error {
	delivery.CreatedAt = time.Now().UTC()

	result, err := dr.deliveryCollection.InsertOne(ctx, delivery)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		delivery.ID = oid
	}

	return nil
}

func (dr *DeliveryRepository) GetByNotificationID(ctx context.Context, notificationID string, page, pageSize int) ([]models.Delivery, int64, error) {
	objectID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid notification ID: %w", err)
	}

	filter := bson.M{"notificationId": objectID}

	total, err := dr.deliveryCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count deliveries: %w", err)
	}

	skip := (page - 1) * pageSize
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize))

	cursor, err := dr.deliveryCollection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find deliveries: %w", err)
	}
	defer cursor.Close(ctx)

	var deliveries []models.Delivery
	if err = cursor.All(ctx, &deliveries); err != nil {
		return nil, 0, fmt.Errorf("failed to decode deliveries: %w", err)
	}

	return deliveries, total, nil
}
