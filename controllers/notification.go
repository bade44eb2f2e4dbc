package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/push"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/utils"
)

// NotificationController manages browser push subscriptions.
type NotificationController struct {
	Subscriptions *mongo.Collection
	PublicKey     string
	Push          *push.Sender
	Validate      *validator.Validate
}

// NewNotificationController creates a new NotificationController.
func NewNotificationController(db *mongo.Database, publicKey string, sender *push.Sender, validate *validator.Validate) *NotificationController {
	return &NotificationController{
		Subscriptions: db.Collection("subscriptions"),
		PublicKey:     publicKey,
		Push:          sender,
		Validate:      validate,
	}
}

// VapidPublicKey hands the browser the server's public VAPID key.
func (nc *NotificationController) VapidPublicKey(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"publicKey": nc.PublicKey,
	})
}

type subscribePayload struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
	UserAgent string `json:"userAgent"`
}

// Subscribe stores or refreshes a push subscription, keyed by endpoint.
func (nc *NotificationController) Subscribe(w http.ResponseWriter, r *http.Request) {
	var payload subscribePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := nc.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	_, err := nc.Subscriptions.UpdateOne(
		r.Context(),
		bson.M{"endpoint": payload.Endpoint},
		bson.M{
			"$set": bson.M{
				"keys": bson.M{
					"p256dh": payload.Keys.P256dh,
					"auth":   payload.Keys.Auth,
				},
				"userAgent": payload.UserAgent,
			},
			"$setOnInsert": bson.M{"createdAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteMessage(w, http.StatusOK, "Subscription saved successfully")
}

type unsubscribePayload struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

// Unsubscribe removes a subscription by endpoint. Deleting an endpoint that
// does not exist still succeeds.
func (nc *NotificationController) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var payload unsubscribePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := nc.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	if _, err := nc.Subscriptions.DeleteOne(r.Context(), bson.M{"endpoint": payload.Endpoint}); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteMessage(w, http.StatusOK, "Subscription deleted successfully")
}

// Test fires a test notification at every subscriber (admin only).
func (nc *NotificationController) Test(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		nc.Push.SendToAll(ctx, push.Payload{
			Title: "Test Notification",
			Body:  "Push notifications are working.",
			Icon:  "/logo192.png",
			URL:   "/admin",
		})
	}()

	utils.WriteMessage(w, http.StatusOK, "Test notification queued")
}
