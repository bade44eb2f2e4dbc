package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/middleware"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/models"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/push"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/realtime"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/utils"
)

// OrderController handles checkout and order management.
type OrderController struct {
	Orders   *mongo.Collection
	Products *mongo.Collection
	Hub      *realtime.Hub
	Push     *push.Sender
	Email    *utils.EmailService
	Validate *validator.Validate
}

// NewOrderController creates a new OrderController.
func NewOrderController(db *mongo.Database, hub *realtime.Hub, sender *push.Sender, email *utils.EmailService, validate *validator.Validate) *OrderController {
	return &OrderController{
		Orders:   db.Collection("orders"),
		Products: db.Collection("products"),
		Hub:      hub,
		Push:     sender,
		Email:    email,
		Validate: validate,
	}
}

type orderItemPayload struct {
	Product  string `json:"product" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

type createOrderPayload struct {
	OrderItems      []orderItemPayload `json:"orderItems" validate:"required,min=1,dive"`
	ShippingAddress struct {
		Address    string `json:"address" validate:"required"`
		City       string `json:"city" validate:"required"`
		PostalCode string `json:"postalCode" validate:"required"`
		Country    string `json:"country" validate:"required"`
		Phone      string `json:"phone"`
	} `json:"shippingAddress"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

// Create places an order for the authenticated user. Stock is decremented
// per item with a conditional update, so concurrent checkouts cannot
// oversell; line items snapshot the product's current name and price. On
// success the admin channel, push subscribers and the customer's inbox are
// notified best effort.
func (oc *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	var payload createOrderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := oc.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	items, err := oc.reserveStock(r.Context(), payload.OrderItems)
	if err != nil {
		var se *stockError
		if errors.As(err, &se) {
			utils.WriteError(w, se.status, se.message)
			return
		}
		utils.WriteStoreError(w, err)
		return
	}

	order := models.Order{
		User:       user.ID,
		OrderItems: items,
		ShippingAddress: models.ShippingAddress{
			Address:    payload.ShippingAddress.Address,
			City:       payload.ShippingAddress.City,
			PostalCode: payload.ShippingAddress.PostalCode,
			Country:    payload.ShippingAddress.Country,
			Phone:      payload.ShippingAddress.Phone,
		},
		PaymentMethod: payload.PaymentMethod,
		TotalPrice:    models.ComputeTotal(items),
		OrderStatus:   models.StatusProcessing,
		CreatedAt:     time.Now(),
	}

	result, err := oc.Orders.InsertOne(r.Context(), order)
	if err != nil {
		oc.restoreStock(context.Background(), items)
		utils.WriteStoreError(w, err)
		return
	}
	order.ID = result.InsertedID.(primitive.ObjectID)

	oc.notifyNewOrder(user, &order)

	utils.WriteData(w, http.StatusCreated, order)
}

// stockError distinguishes checkout failures the client caused from store
// failures.
type stockError struct {
	status  int
	message string
}

func (e *stockError) Error() string { return e.message }

// reserveStock decrements stock for every requested line with a conditional
// update (stock >= quantity). If any line fails, the lines already reserved
// are restored before returning.
func (oc *OrderController) reserveStock(ctx context.Context, lines []orderItemPayload) ([]models.OrderItem, error) {
	reserved := make([]models.OrderItem, 0, len(lines))

	for _, line := range lines {
		productID, err := primitive.ObjectIDFromHex(line.Product)
		if err != nil {
			oc.restoreStock(ctx, reserved)
			return nil, &stockError{http.StatusNotFound, fmt.Sprintf("Product not found: %s", line.Product)}
		}

		var product models.Product
		err = oc.Products.FindOneAndUpdate(
			ctx,
			bson.M{"_id": productID, "stock": bson.M{"$gte": line.Quantity}},
			bson.M{"$inc": bson.M{"stock": -line.Quantity}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&product)
		if err == nil {
			reserved = append(reserved, models.OrderItem{
				Product:  product.ID,
				Name:     product.Name,
				Price:    product.Price,
				Quantity: line.Quantity,
			})
			continue
		}

		oc.restoreStock(ctx, reserved)

		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		// Either the product does not exist or it has too little stock.
		count, cerr := oc.Products.CountDocuments(ctx, bson.M{"_id": productID})
		if cerr == nil && count == 0 {
			return nil, &stockError{http.StatusNotFound, fmt.Sprintf("Product not found: %s", line.Product)}
		}
		return nil, &stockError{http.StatusBadRequest, "Insufficient stock for one or more items"}
	}

	return reserved, nil
}

// restoreStock undoes stock decrements for the given line items.
func (oc *OrderController) restoreStock(ctx context.Context, items []models.OrderItem) {
	for _, it := range items {
		_, err := oc.Products.UpdateOne(ctx, bson.M{"_id": it.Product}, bson.M{
			"$inc": bson.M{"stock": it.Quantity},
		})
		if err != nil {
			logrus.WithError(err).WithField("product", it.Product.Hex()).Error("failed to restore stock")
		}
	}
}

// notifyNewOrder fans the new-order event out to the admin websocket group,
// the push subscribers and the customer's inbox. None of these can fail the
// request.
func (oc *OrderController) notifyNewOrder(user *models.User, order *models.Order) {
	go oc.Hub.BroadcastNewOrder(realtime.OrderEvent{
		OrderID:      order.ID.Hex(),
		CustomerName: user.Name,
		TotalPrice:   order.TotalPrice,
		Status:       string(order.OrderStatus),
		CreatedAt:    order.CreatedAt,
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		oc.Push.SendToAll(ctx, push.Payload{
			Title: "New Order Received",
			Body:  fmt.Sprintf("%s placed an order for ₹%.2f", user.Name, order.TotalPrice),
			Icon:  "/logo192.png",
			URL:   "/admin/orders",
		})
	}()

	go func(name, email string, order models.Order) {
		if err := oc.Email.SendOrderConfirmation(name, email, &order); err != nil {
			logrus.WithError(err).WithField("email", email).Warn("failed to send order confirmation")
		}
	}(user.Name, user.Email, *order)
}

// ListMine returns the caller's orders, newest first.
func (oc *OrderController) ListMine(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := oc.Orders.Find(r.Context(), bson.M{"user": user.ID}, opts)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	orders := []models.Order{}
	if err := cursor.All(r.Context(), &orders); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteList(w, http.StatusOK, orders, int64(len(orders)))
}

// GetByID returns one order to its owner or an admin.
func (oc *OrderController) GetByID(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Order not found")
		return
	}

	var order models.Order
	err = oc.Orders.FindOne(r.Context(), bson.M{"_id": id}).Decode(&order)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	if !order.ViewableBy(user) {
		utils.WriteError(w, http.StatusForbidden, "Not authorized to access this order")
		return
	}

	utils.WriteData(w, http.StatusOK, order)
}

// UpdatePayment marks an order paid and stores the provider's result payload.
// Restricted to the owning user or an admin.
func (oc *OrderController) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Order not found")
		return
	}

	var payment models.PaymentResult
	if err := json.NewDecoder(r.Body).Decode(&payment); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var order models.Order
	err = oc.Orders.FindOne(r.Context(), bson.M{"_id": id}).Decode(&order)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	if !order.ViewableBy(user) {
		utils.WriteError(w, http.StatusForbidden, "Not authorized to update this order")
		return
	}

	now := time.Now()
	var updated models.Order
	err = oc.Orders.FindOneAndUpdate(
		r.Context(),
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"isPaid":        true,
			"paidAt":        now,
			"paymentResult": payment,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteData(w, http.StatusOK, updated)
}

// AdminList returns every order, newest first.
func (oc *OrderController) AdminList(w http.ResponseWriter, r *http.Request) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := oc.Orders.Find(r.Context(), bson.M{}, opts)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	orders := []models.Order{}
	if err := cursor.All(r.Context(), &orders); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteList(w, http.StatusOK, orders, int64(len(orders)))
}

// orderStats is the aggregate block the admin dashboard lists orders by.
type orderStats struct {
	TotalOrders      int64   `json:"totalOrders"`
	ProcessingOrders int64   `json:"processingOrders"`
	DeliveredOrders  int64   `json:"deliveredOrders"`
	CancelledOrders  int64   `json:"cancelledOrders"`
	TotalRevenue     float64 `json:"totalRevenue"`
}

// collectOrderStats computes counts by status and the delivered revenue sum,
// fresh on every call.
func (oc *OrderController) collectOrderStats(ctx context.Context) (*orderStats, error) {
	stats := &orderStats{}
	var err error

	if stats.TotalOrders, err = oc.Orders.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if stats.ProcessingOrders, err = oc.Orders.CountDocuments(ctx, bson.M{"orderStatus": models.StatusProcessing}); err != nil {
		return nil, err
	}
	if stats.DeliveredOrders, err = oc.Orders.CountDocuments(ctx, bson.M{"orderStatus": models.StatusDelivered}); err != nil {
		return nil, err
	}
	if stats.CancelledOrders, err = oc.Orders.CountDocuments(ctx, bson.M{"orderStatus": models.StatusCancelled}); err != nil {
		return nil, err
	}

	cursor, err := oc.Orders.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"orderStatus": models.StatusDelivered}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$totalPrice"}}}},
	})
	if err != nil {
		return nil, err
	}
	var revenue []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &revenue); err != nil {
		return nil, err
	}
	if len(revenue) > 0 {
		stats.TotalRevenue = revenue[0].Total
	}

	return stats, nil
}

// AdminStats returns order counts by status and delivered revenue.
func (oc *OrderController) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := oc.collectOrderStats(r.Context())
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	utils.WriteData(w, http.StatusOK, stats)
}

type statusPayload struct {
	Status string `json:"status" validate:"required"`
}

// AdminUpdateStatus moves an order through the status state machine. Illegal
// transitions are rejected. Entering Delivered stamps the delivery fields;
// entering Cancelled restores the decremented stock.
func (oc *OrderController) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Order not found")
		return
	}

	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	next, ok := models.ParseOrderStatus(payload.Status)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Unknown order status: "+payload.Status)
		return
	}

	var order models.Order
	err = oc.Orders.FindOne(r.Context(), bson.M{"_id": id}).Decode(&order)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	if !order.OrderStatus.CanTransitionTo(next) {
		utils.WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("Cannot transition order from %s to %s", order.OrderStatus, next))
		return
	}

	// The filter includes the status we read, so two racing updates cannot
	// both apply (and both restore stock on a cancel).
	var updated models.Order
	err = oc.Orders.FindOneAndUpdate(
		r.Context(),
		bson.M{"_id": id, "orderStatus": order.OrderStatus},
		bson.M{"$set": statusSet(next, time.Now())},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.WriteError(w, http.StatusConflict, "Order was updated concurrently, please retry")
		return
	}
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	if next == models.StatusCancelled {
		// The transition is committed; restore stock even if the client has
		// gone away.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		oc.restoreStock(ctx, order.OrderItems)
	}

	utils.WriteData(w, http.StatusOK, updated)
}

// statusSet builds the update document for a status transition. Entering
// Delivered stamps the delivery fields.
func statusSet(next models.OrderStatus, now time.Time) bson.M {
	set := bson.M{"orderStatus": next}
	if next == models.StatusDelivered {
		set["isDelivered"] = true
		set["deliveredAt"] = now
	}
	return set
}

// AdminDelete removes an order. Stock is restored unless the order was
// already cancelled (cancellation restored it).
func (oc *OrderController) AdminDelete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Order not found")
		return
	}

	var order models.Order
	err = oc.Orders.FindOne(r.Context(), bson.M{"_id": id}).Decode(&order)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	if order.OrderStatus != models.StatusCancelled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		oc.restoreStock(ctx, order.OrderItems)
	}

	if _, err := oc.Orders.DeleteOne(r.Context(), bson.M{"_id": id}); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteMessage(w, http.StatusOK, "Order deleted successfully")
}
