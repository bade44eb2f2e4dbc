package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriptionKeys are the client keys a push service hands out when a
// browser subscribes.
type SubscriptionKeys struct {
	P256dh string `bson:"p256dh" json:"p256dh"`
	Auth   string `bson:"auth" json:"auth"`
}

// Subscription is one browser push registration, identified by its endpoint.
type Subscription struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Endpoint  string             `bson:"endpoint" json:"endpoint"`
	Keys      SubscriptionKeys   `bson:"keys" json:"keys"`
	UserAgent string             `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
