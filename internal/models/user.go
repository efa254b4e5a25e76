package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName      string             `bson:"firstName" json:"firstName"`
	LastName       string             `bson:"lastName" json:"lastName"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"` // Hide from JSON responses
	Role           Role               `bson:"role" json:"role"`
	Specialization string             `bson:"specialization,omitempty" json:"specialization,omitempty"` // Doctors only
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
