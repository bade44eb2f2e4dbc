package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is a single customer review embedded in a product document.
type Review struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Name      string             `bson:"name" json:"name"`
	Rating    float64            `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Product represents an item in the pharmacy catalogue.
type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	Price        float64            `bson:"price" json:"price"`
	Manufacturer string             `bson:"manufacturer" json:"manufacturer"`
	Usage        string             `bson:"usage,omitempty" json:"usage,omitempty"`
	Categories   []string           `bson:"categories" json:"categories"`
	Image        string             `bson:"image" json:"image"`
	Stock        int                `bson:"stock" json:"stock"`
	Rating       float64            `bson:"rating" json:"rating"`
	NumReviews   int                `bson:"numReviews" json:"numReviews"`
	Reviews      []Review           `bson:"reviews" json:"reviews,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UpdateAverageRating recomputes the aggregate rating fields from the review
// set. The rating is 0 when no reviews exist.
func (p *Product) UpdateAverageRating() {
	if len(p.Reviews) == 0 {
		p.Rating = 0
		p.NumReviews = 0
		return
	}
	var sum float64
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = sum / float64(len(p.Reviews))
	p.NumReviews = len(p.Reviews)
}

// HasReviewFrom reports whether the given user has already reviewed the
// product. One review per (user, product) pair.
func (p *Product) HasReviewFrom(user primitive.ObjectID) bool {
	for _, r := range p.Reviews {
		if r.User == user {
			return true
		}
	}
	return false
}
