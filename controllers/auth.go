package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/middleware"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/models"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/utils"
)

// AuthController handles registration, login and profile management.
type AuthController struct {
	Users    *mongo.Collection
	Secret   []byte
	Validate *validator.Validate
}

// NewAuthController creates a new AuthController.
func NewAuthController(db *mongo.Database, secret []byte, validate *validator.Validate) *AuthController {
	return &AuthController{
		Users:    db.Collection("users"),
		Secret:   secret,
		Validate: validate,
	}
}

type registerPayload struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// authResponse is the body returned on register and login.
type authResponse struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

// Register creates a new customer account and returns a signed token.
func (ac *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ac.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	user := models.User{
		Name:      payload.Name,
		Email:     payload.Email,
		Password:  string(hashed),
		Role:      models.RoleUser,
		CreatedAt: time.Now(),
	}

	result, err := ac.Users.InsertOne(r.Context(), user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.WriteError(w, http.StatusBadRequest, "User already exists")
			return
		}
		utils.WriteStoreError(w, err)
		return
	}
	user.ID = result.InsertedID.(primitive.ObjectID)

	token, err := utils.GenerateJWT(ac.Secret, user.ID.Hex(), user.Role)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error generating token")
		return
	}

	utils.WriteData(w, http.StatusCreated, authResponse{
		ID:    user.ID.Hex(),
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Token: token,
	})
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates a user by email and password.
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ac.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	var user models.User
	err := ac.Users.FindOne(r.Context(), bson.M{"email": payload.Email}).Decode(&user)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := utils.GenerateJWT(ac.Secret, user.ID.Hex(), user.Role)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error generating token")
		return
	}

	utils.WriteData(w, http.StatusOK, authResponse{
		ID:    user.ID.Hex(),
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Token: token,
	})
}

// GetProfile returns the authenticated user's profile.
func (ac *AuthController) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}
	utils.WriteData(w, http.StatusOK, user)
}

type profilePayload struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

// UpdateProfile updates the caller's name, email or password. Only those
// fields are mutable; role and timestamps are server-managed.
func (ac *AuthController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	var payload profilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ac.Validate.Struct(payload); err != nil {
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
	if payload.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*payload.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.WriteError(w, http.StatusInternalServerError, "Server Error")
			return
		}
		set["password"] = string(hashed)
	}
	if len(set) == 0 {
		utils.WriteData(w, http.StatusOK, user)
		return
	}

	var updated models.User
	err := ac.Users.FindOneAndUpdate(
		r.Context(),
		bson.M{"_id": user.ID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteData(w, http.StatusOK, updated)
}
