package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestUnsubscribeIdempotent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unknown endpoint still succeeds", func(mt *mtest.T) {
		// The delete matches nothing; unsubscribing twice must not error.
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		nc := &NotificationController{Subscriptions: mt.Coll, Validate: validator.New()}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/notifications/unsubscribe",
			strings.NewReader(`{"endpoint":"https://push.example.com/gone"}`))
		nc.Unsubscribe(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Subscription deleted successfully")
	})
}
