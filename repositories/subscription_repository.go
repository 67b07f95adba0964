// repositories/subscription_repository.go
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

type SubscriptionRepository struct {
	db                     *mongo.Database
	subscriptionCollection *mongo.Collection
}

func NewSubscriptionRepository(db *mongo.Database) *SubscriptionRepository {
	return &SubscriptionRepository{
		db:                     db,
		subscriptionCollection: db.Collection("push_subscriptions"),
	}
}

// Upsert registers a device. Re-registering an existing (user, token) pair
// refreshes the row and reactivates it: a re-register is the device telling
// us it is alive again.
func (sr *SubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	now := time.Now().UTC()

	filter := bson.M{"userId": sub.UserID, "token": sub.Token}
	update := bson.M{
		"$set": bson.M{
			"platform":  sub.Platform,
			"address":   sub.Address,
			"isActive":  true,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"userId":    sub.UserID,
			"token":     sub.Token,
			"createdAt": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	err := sr.subscriptionCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(sub)
	if err != nil {
		return fmt.Errorf("failed to upsert push subscription: %w", err)
	}

	return nil
}

func (sr *SubscriptionRepository) GetByID(ctx context.Context, id string) (*models.PushSubscription, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid subscription ID: %w", err)
	}

	var sub models.PushSubscription
	err = sr.subscriptionCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&sub)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("subscription not found")
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// GetAllActive returns every active device registration.
func (sr *SubscriptionRepository) GetAllActive(ctx context.Context) ([]models.PushSubscription, error) {
	return sr.findActive(ctx, bson.M{"isActive": true})
}

// GetActiveByUserIDs returns the active registrations owned by the given users.
func (sr *SubscriptionRepository) GetActiveByUserIDs(ctx context.Context, userIDs []string) ([]models.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return sr.findActive(ctx, bson.M{"isActive": true, "userId": bson.M{"$in": userIDs}})
}

func (sr *SubscriptionRepository) findActive(ctx context.Context, filter bson.M) ([]models.PushSubscription, error) {
	cursor, err := sr.subscriptionCollection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var subscriptions []models.PushSubscription
	if err = cursor.All(ctx, &subscriptions); err != nil {
		return nil, fmt.Errorf("failed to decode subscriptions: %w", err)
	}

	return subscriptions, nil
}

// Deactivate flips isActive to false. The transition is one-way: nothing in
// this service ever sets a dead registration active again, only a fresh
// registration from the device itself does (see Upsert).
func (sr *SubscriptionRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{
		"isActive":  false,
		"updatedAt": time.Now().UTC(),
	}}

	_, err := sr.subscriptionCollection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}

	return nil
}

// DeactivateOwned deactivates a registration only if it belongs to userID.
func (sr *SubscriptionRepository) DeactivateOwned(ctx context.Context, id string, userID string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid subscription ID: %w", err)
	}

	filter := bson.M{"_id": objectID, "userId": userID}
	update := bson.M{"$set": bson.M{
		"isActive":  false,
		"updatedAt": time.Now().UTC(),
	}}

	result, err := sr.subscriptionCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}
