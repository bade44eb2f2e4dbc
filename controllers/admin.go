package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/middleware"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/models"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/utils"
)

// AdminController serves the dashboard aggregation and user management.
type AdminController struct {
	Users    *mongo.Collection
	Orders   *mongo.Collection
	Products *mongo.Collection
	Stats    *OrderController
	Validate *validator.Validate
}

// NewAdminController creates a new AdminController. It borrows the order
// controller's stats aggregation for the dashboard.
func NewAdminController(db *mongo.Database, orders *OrderController, validate *validator.Validate) *AdminController {
	return &AdminController{
		Users:    db.Collection("users"),
		Orders:   db.Collection("orders"),
		Products: db.Collection("products"),
		Stats:    orders,
		Validate: validate,
	}
}

// topProduct is one row of the top-sellers board.
type topProduct struct {
	Product   *models.Product `bson:"product,omitempty" json:"product,omitempty"`
	ProductID interface{}     `bson:"_id" json:"productId"`
	TotalSold int64           `bson:"totalSold" json:"totalSold"`
}

// Dashboard computes the full admin dashboard in one request: user, order
// and product counters, delivered revenue, recent orders and top sellers.
// Everything is computed fresh; there is no cache to invalidate.
func (ad *AdminController) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalUsers, err := ad.Users.CountDocuments(ctx, bson.M{})
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	weekAgo := time.Now().Add(-7 * 24 * time.Hour)
	newUsers, err := ad.Users.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": weekAgo}})
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	orderStats, err := ad.Stats.collectOrderStats(ctx)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	totalProducts, err := ad.Products.CountDocuments(ctx, bson.M{})
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	lowStock, err := ad.Products.CountDocuments(ctx, bson.M{"stock": bson.M{"$lte": 10}})
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	outOfStock, err := ad.Products.CountDocuments(ctx, bson.M{"stock": 0})
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	recentOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(5)
	cursor, err := ad.Orders.Find(ctx, bson.M{}, recentOpts)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	recentOrders := []models.Order{}
	if err := cursor.All(ctx, &recentOrders); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	// Top 5 products by quantity sold across delivered orders.
	topCursor, err := ad.Orders.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"orderStatus": models.StatusDelivered}}},
		{{Key: "$unwind", Value: "$orderItems"}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$orderItems.product",
			"totalSold": bson.M{"$sum": "$orderItems.quantity"},
		}}},
		{{Key: "$sort", Value: bson.M{"totalSold": -1}}},
		{{Key: "$limit", Value: 5}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "products",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "product",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$product", "preserveNullAndEmptyArrays": true}}},
	})
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	topProducts := []topProduct{}
	if err := topCursor.All(ctx, &topProducts); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteData(w, http.StatusOK, map[string]interface{}{
		"users": map[string]int64{
			"total": totalUsers,
			"new":   newUsers,
		},
		"orders": map[string]int64{
			"total":      orderStats.TotalOrders,
			"processing": orderStats.ProcessingOrders,
			"delivered":  orderStats.DeliveredOrders,
			"cancelled":  orderStats.CancelledOrders,
		},
		"revenue": map[string]float64{
			"total": orderStats.TotalRevenue,
		},
		"products": map[string]int64{
			"total":      totalProducts,
			"lowStock":   lowStock,
			"outOfStock": outOfStock,
		},
		"recentOrders": recentOrders,
		"topProducts":  topProducts,
	})
}

// ListUsers returns every user, newest first, without credential hashes.
func (ad *AdminController) ListUsers(w http.ResponseWriter, r *http.Request) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"password": 0})

	cursor, err := ad.Users.Find(r.Context(), bson.M{}, opts)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	users := []models.User{}
	if err := cursor.All(r.Context(), &users); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteList(w, http.StatusOK, users, int64(len(users)))
}

// GetUser returns one user by id.
func (ad *AdminController) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	var user models.User
	err = ad.Users.FindOne(r.Context(), bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"password": 0})).Decode(&user)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteData(w, http.StatusOK, user)
}

type adminUserPayload struct {
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// UpdateUser edits a user's name or email. Role changes are not allowed
// through this endpoint.
func (ad *AdminController) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	var payload adminUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ad.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	set := bson.M{}
	if payload.Name != nil {
		set["name"] = *payload.Name
	}
	if payload.Email != nil {
		set["email"] = *payload.Email
	}
	if len(set) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "No updatable fields provided")
		return
	}

	var updated models.User
	err = ad.Users.FindOneAndUpdate(
		r.Context(),
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"password": 0}),
	).Decode(&updated)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteData(w, http.StatusOK, updated)
}

// DeleteUser removes a user account. Admins cannot delete themselves.
func (ad *AdminController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	if id == caller.ID {
		utils.WriteError(w, http.StatusBadRequest, "Admin cannot delete their own account")
		return
	}

	result, err := ad.Users.DeleteOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	if result.DeletedCount == 0 {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	utils.WriteMessage(w, http.StatusOK, "User removed successfully")
}
