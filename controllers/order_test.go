package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/middleware"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/models"
)

func TestStatusSet(t *testing.T) {
	now := time.Now()

	set := statusSet(models.StatusDelivered, now)
	assert.Equal(t, models.StatusDelivered, set["orderStatus"])
	assert.Equal(t, true, set["isDelivered"])
	assert.Equal(t, now, set["deliveredAt"])

	// Only Delivered stamps the delivery fields.
	for _, next := range []models.OrderStatus{models.StatusConfirmed, models.StatusShipped, models.StatusCancelled} {
		set = statusSet(next, now)
		assert.Equal(t, next, set["orderStatus"])
		assert.NotContains(t, set, "isDelivered")
		assert.NotContains(t, set, "deliveredAt")
	}
}

func orderRequest(method, target string, body string, id primitive.ObjectID, user *models.User) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = mux.SetURLVars(req, map[string]string{"id": id.Hex()})
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, user))
	}
	return req
}

func TestGetOrderByIDOwnership(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	ownerID := primitive.NewObjectID()
	orderID := primitive.NewObjectID()
	orderDoc := bson.D{
		{Key: "_id", Value: orderID},
		{Key: "user", Value: ownerID},
		{Key: "orderStatus", Value: "Processing"},
		{Key: "totalPrice", Value: 200.0},
	}

	mt.Run("stranger is rejected", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "pharmacy.orders", mtest.FirstBatch, orderDoc))

		oc := &OrderController{Orders: mt.Coll}
		stranger := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}

		rec := httptest.NewRecorder()
		oc.GetByID(rec, orderRequest("GET", "/api/orders/"+orderID.Hex(), "", orderID, stranger))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success":false`)
	})

	mt.Run("owner may read it", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "pharmacy.orders", mtest.FirstBatch, orderDoc))

		oc := &OrderController{Orders: mt.Coll}
		owner := &models.User{ID: ownerID, Role: models.RoleUser}

		rec := httptest.NewRecorder()
		oc.GetByID(rec, orderRequest("GET", "/api/orders/"+orderID.Hex(), "", orderID, owner))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success":true`)
	})

	mt.Run("admin may read any order", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "pharmacy.orders", mtest.FirstBatch, orderDoc))

		oc := &OrderController{Orders: mt.Coll}
		admin := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

		rec := httptest.NewRecorder()
		oc.GetByID(rec, orderRequest("GET", "/api/orders/"+orderID.Hex(), "", orderID, admin))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAdminUpdateStatusCancel(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	orderID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	item := bson.D{
		{Key: "product", Value: productID},
		{Key: "name", Value: "Arnica 30C"},
		{Key: "price", Value: 50.0},
		{Key: "quantity", Value: 2},
	}
	processing := bson.D{
		{Key: "_id", Value: orderID},
		{Key: "user", Value: primitive.NewObjectID()},
		{Key: "orderStatus", Value: "Processing"},
		{Key: "orderItems", Value: bson.A{item}},
	}
	cancelled := bson.D{
		{Key: "_id", Value: orderID},
		{Key: "orderStatus", Value: "Cancelled"},
		{Key: "orderItems", Value: bson.A{item}},
	}

	mt.Run("cancel restores stock and reports the new status", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "pharmacy.orders", mtest.FirstBatch, processing),
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: cancelled}},
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		oc := &OrderController{Orders: mt.Coll, Products: mt.Coll}

		rec := httptest.NewRecorder()
		req := orderRequest("PUT", "/api/orders/admin/"+orderID.Hex()+"/status", `{"status":"Cancelled"}`, orderID, nil)
		oc.AdminUpdateStatus(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"orderStatus":"Cancelled"`)
	})

	mt.Run("losing a concurrent transition does not restore stock twice", func(mt *mtest.T) {
		// The guarded update matches nothing because another request already
		// moved the order off Processing.
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "pharmacy.orders", mtest.FirstBatch, processing),
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
		)

		oc := &OrderController{Orders: mt.Coll, Products: mt.Coll}

		rec := httptest.NewRecorder()
		req := orderRequest("PUT", "/api/orders/admin/"+orderID.Hex()+"/status", `{"status":"Cancelled"}`, orderID, nil)
		oc.AdminUpdateStatus(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success":false`)
	})
}
