package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a row in the identity store. This service only reads it: auth
// middleware loads the caller, personalization reads name fields.
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	FirstName string             `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName  string             `json:"lastName,omitempty" bson:"lastName,omitempty"`
	Role      string             `json:"role" bson:"role"`
	IsActive  bool               `json:"isActive" bson:"isActive"`

	// Free-form account metadata written by the CMS; personalization falls
	// back to metadata["first_name"] when no profile row exists.
	Metadata map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Profile is the member-facing profile record, first tier of name resolution.
type Profile struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    string             `json:"userId" bson:"userId"`
	FirstName string             `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName  string             `json:"lastName,omitempty" bson:"lastName,omitempty"`
}

// Subscriber is the legacy mailing-list record, last tier of name resolution.
type Subscriber struct {
	ID    primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email string             `json:"email" bson:"email"`
	Name  string             `json:"name,omitempty" bson:"name,omitempty"`
}
