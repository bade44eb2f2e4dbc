package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUpdateAverageRating(t *testing.T) {
	p := &Product{Rating: 4.5, NumReviews: 3}

	// No reviews resets the aggregates.
	p.UpdateAverageRating()
	assert.Equal(t, 0.0, p.Rating)
	assert.Equal(t, 0, p.NumReviews)

	p.Reviews = []Review{
		{Rating: 5},
		{Rating: 3},
		{Rating: 4},
	}
	p.UpdateAverageRating()
	assert.Equal(t, 4.0, p.Rating)
	assert.Equal(t, 3, p.NumReviews)
}

func TestHasReviewFrom(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()

	p := &Product{Reviews: []Review{{User: alice, Rating: 5}}}

	assert.True(t, p.HasReviewFrom(alice))
	assert.False(t, p.HasReviewFrom(bob))
}
