package services

import (
	"context"
	"strings"

	"venuehub/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// nameSource is the slice of the user repository that personalization needs.
type nameSource interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetProfileByUserID(ctx context.Context, userID string) (*models.Profile, error)
	GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error)
}

// PersonalizationService resolves a recipient's first name for template
// rendering. Resolution is tiered and best-effort: profile record, then
// account metadata, then the legacy subscriber table; the first hit wins and
// a total miss just renders the placeholder empty.
type PersonalizationService struct {
	users nameSource
}

func NewPersonalizationService(users nameSource) *PersonalizationService {
	return &PersonalizationService{users: users}
}

// FirstName returns the first name for a user, or "" when none of the tiers
// know one. Lookup failures are logged and treated as misses; a flaky
// profile store must never fail a delivery.
func (ps *PersonalizationService) FirstName(ctx context.Context, userID string) string {
	profile, err := ps.users.GetProfileByUserID(ctx, userID)
	if err != nil {
		logrus.Debugf("Profile lookup failed for user %s: %v", userID, err)
	} else if profile != nil && profile.FirstName != "" {
		return profile.FirstName
	}

	user, err := ps.users.GetByID(ctx, userID)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			logrus.Debugf("User lookup failed for user %s: %v", userID, err)
		}
		return ""
	}

	if name := user.Metadata["first_name"]; name != "" {
		return name
	}
	if user.FirstName != "" {
		return user.FirstName
	}

	if user.Email != "" {
		subscriber, err := ps.users.GetSubscriberByEmail(ctx, user.Email)
		if err != nil {
			logrus.Debugf("Subscriber lookup failed for %s: %v", user.Email, err)
		} else if subscriber != nil && subscriber.Name != "" {
			// Legacy records store a full name; the templates only want the
			// first word of it.
			return strings.Fields(subscriber.Name)[0]
		}
	}

	return ""
}
