// repositories/user_repository.go
package repositories

import (
	"context"
	"fmt"

	"venuehub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository reads the identity store and the two personalization
// collections. This service never writes any of them.
type UserRepository struct {
	db                   *mongo.Database
	userCollection       *mongo.Collection
	profileCollection    *mongo.Collection
	subscriberCollection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		db:                   db,
		userCollection:       db.Collection("users"),
		profileCollection:    db.Collection("profiles"),
		subscriberCollection: db.Collection("subscribers"),
	}
}

func (ur *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	var user models.User
	err = ur.userCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetProfileByUserID returns the member profile for a user, or nil when none
// exists. A missing profile is not an error, personalization just moves to
// the next tier.
func (ur *UserRepository) GetProfileByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := ur.profileCollection.FindOne(ctx, bson.M{"userId": userID}).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// GetSubscriberByEmail returns the legacy mailing-list record for an email,
// or nil when none exists.
func (ur *UserRepository) GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	err := ur.subscriberCollection.FindOne(ctx, bson.M{"email": email}).Decode(&subscriber)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}

	return &subscriber, nil
}
