package main

import (
	"context"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/config"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/controllers"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/middleware"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/push"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/realtime"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/routes"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Without a configured VAPID pair, generate one for this process. Stored
	// subscriptions from earlier runs stop working, so production should set
	// the keys explicitly.
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		private, public, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			logrus.WithError(err).Fatal("failed to generate VAPID keys")
		}
		cfg.VAPIDPrivateKey = private
		cfg.VAPIDPublicKey = public
		logrus.Warn("VAPID keys not configured; generated an ephemeral pair")
	}

	ctx := context.Background()
	client, err := utils.ConnectDB(ctx, cfg.MongoURI)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logrus.WithError(err).Error("failed to disconnect from MongoDB")
		}
	}()

	db := client.Database(cfg.MongoDB)
	if err := utils.EnsureIndexes(ctx, db); err != nil {
		logrus.WithError(err).Fatal("failed to create indexes")
	}

	validate := validator.New()
	hub := realtime.NewHub()
	sender := push.NewSender(db.Collection("subscriptions"), cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	email := utils.NewEmailService(cfg.SendgridAPIKey, cfg.EmailSender)
	authMW := middleware.NewAuthMiddleware([]byte(cfg.JWTSecret), db.Collection("users"))

	orderController := controllers.NewOrderController(db, hub, sender, email, validate)
	uploadController, err := controllers.NewUploadController(cfg.UploadDir)
	if err != nil {
		logrus.WithError(err).Fatal("failed to prepare upload directory")
	}

	router := mux.NewRouter()
	router.Use(middleware.Recover(cfg.IsDevelopment()))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteMessage(w, http.StatusOK, "Karan Homeo Pharmacy API is up and running")
	}).Methods("GET")

	router.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	routes.RegisterRoutes(router, authMW, routes.Controllers{
		Auth:         controllers.NewAuthController(db, []byte(cfg.JWTSecret), validate),
		Product:      controllers.NewProductController(db, validate, cfg.UploadDir),
		Order:        orderController,
		Category:     controllers.NewCategoryController(db, validate),
		Admin:        controllers.NewAdminController(db, orderController, validate),
		Notification: controllers.NewNotificationController(db, cfg.VAPIDPublicKey, sender, validate),
		Upload:       uploadController,
		Hub:          hub,
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins()),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	handler := handlers.LoggingHandler(logrus.StandardLogger().Writer(), cors(router))

	logrus.WithField("port", cfg.Port).Info("server listening")
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
