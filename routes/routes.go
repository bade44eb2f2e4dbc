package routes

import (
	"github.com/gorilla/mux"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/controllers"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/middleware"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/models"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/realtime"
)

// Controllers bundles everything the route table binds to.
type Controllers struct {
	Auth         *controllers.AuthController
	Product      *controllers.ProductController
	Order        *controllers.OrderController
	Category     *controllers.CategoryController
	Admin        *controllers.AdminController
	Notification *controllers.NotificationController
	Upload       *controllers.UploadController
	Hub          *realtime.Hub
}

// RegisterRoutes mounts the API under /api.
func RegisterRoutes(router *mux.Router, am *middleware.AuthMiddleware, c Controllers) {
	adminOnly := middleware.RestrictTo(models.RoleAdmin)
	api := router.PathPrefix("/api").Subrouter()

	// Auth
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", c.Auth.Register).Methods("POST")
	auth.HandleFunc("/login", c.Auth.Login).Methods("POST")

	profile := api.PathPrefix("/auth/profile").Subrouter()
	profile.Use(am.Protect)
	profile.HandleFunc("", c.Auth.GetProfile).Methods("GET")
	profile.HandleFunc("", c.Auth.UpdateProfile).Methods("PUT")

	// Products: admin routes first so /admin/all is not swallowed by /{id}.
	productsAdmin := api.PathPrefix("/products").Subrouter()
	productsAdmin.Use(am.Protect, adminOnly)
	productsAdmin.HandleFunc("", c.Product.Create).Methods("POST")
	productsAdmin.HandleFunc("/admin/all", c.Product.AdminList).Methods("GET")
	productsAdmin.HandleFunc("/{id}", c.Product.Update).Methods("PUT")
	productsAdmin.HandleFunc("/{id}", c.Product.Delete).Methods("DELETE")
	productsAdmin.HandleFunc("/{id}/stock", c.Product.UpdateStock).Methods("PATCH")

	productReviews := api.PathPrefix("/products").Subrouter()
	productReviews.Use(am.Protect)
	productReviews.HandleFunc("/{id}/reviews", c.Product.CreateReview).Methods("POST")

	products := api.PathPrefix("/products").Subrouter()
	products.HandleFunc("", c.Product.List).Methods("GET")
	products.HandleFunc("/{id}", c.Product.GetByID).Methods("GET")

	// Orders
	ordersAdmin := api.PathPrefix("/orders/admin").Subrouter()
	ordersAdmin.Use(am.Protect, adminOnly)
	ordersAdmin.HandleFunc("/all", c.Order.AdminList).Methods("GET")
	ordersAdmin.HandleFunc("/stats", c.Order.AdminStats).Methods("GET")
	ordersAdmin.HandleFunc("/{id}/status", c.Order.AdminUpdateStatus).Methods("PUT")
	ordersAdmin.HandleFunc("/{id}", c.Order.AdminDelete).Methods("DELETE")

	// Admin websocket feed; registered before /{id} so "ws" never parses as
	// an order id.
	ordersWS := api.PathPrefix("/orders/ws").Subrouter()
	ordersWS.Use(am.ProtectQuery, adminOnly)
	ordersWS.Handle("", c.Hub).Methods("GET")

	orders := api.PathPrefix("/orders").Subrouter()
	orders.Use(am.Protect)
	orders.HandleFunc("", c.Order.Create).Methods("POST")
	orders.HandleFunc("/myorders", c.Order.ListMine).Methods("GET")
	orders.HandleFunc("/{id}", c.Order.GetByID).Methods("GET")
	orders.HandleFunc("/{id}/pay", c.Order.UpdatePayment).Methods("PUT")

	// Categories
	categoriesAdmin := api.PathPrefix("/categories").Subrouter()
	categoriesAdmin.Use(am.Protect, adminOnly)
	categoriesAdmin.HandleFunc("", c.Category.Create).Methods("POST")
	categoriesAdmin.HandleFunc("/{id}", c.Category.Update).Methods("PUT")
	categoriesAdmin.HandleFunc("/{id}", c.Category.Delete).Methods("DELETE")

	categories := api.PathPrefix("/categories").Subrouter()
	categories.HandleFunc("", c.Category.List).Methods("GET")

	// Admin dashboard and user management
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(am.Protect, adminOnly)
	admin.HandleFunc("/dashboard", c.Admin.Dashboard).Methods("GET")
	admin.HandleFunc("/users", c.Admin.ListUsers).Methods("GET")
	admin.HandleFunc("/users/{id}", c.Admin.GetUser).Methods("GET")
	admin.HandleFunc("/users/{id}", c.Admin.UpdateUser).Methods("PUT")
	admin.HandleFunc("/users/{id}", c.Admin.DeleteUser).Methods("DELETE")

	// Notifications
	notifications := api.PathPrefix("/notifications").Subrouter()
	notifications.HandleFunc("/vapid-public-key", c.Notification.VapidPublicKey).Methods("GET")

	notificationsAdmin := api.PathPrefix("/notifications").Subrouter()
	notificationsAdmin.Use(am.Protect, adminOnly)
	notificationsAdmin.HandleFunc("/subscribe", c.Notification.Subscribe).Methods("POST")
	notificationsAdmin.HandleFunc("/unsubscribe", c.Notification.Unsubscribe).Methods("DELETE")
	notificationsAdmin.HandleFunc("/test", c.Notification.Test).Methods("POST")

	// Upload
	upload := api.PathPrefix("/upload").Subrouter()
	upload.Use(am.Protect, adminOnly)
	upload.HandleFunc("", c.Upload.Upload).Methods("POST")
}
