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

// CategoryController handles category management.
type CategoryController struct {
	Categories *mongo.Collection
	Validate   *validator.Validate
}

// NewCategoryController creates a new CategoryController.
func NewCategoryController(db *mongo.Database, validate *validator.Validate) *CategoryController {
	return &CategoryController{
		Categories: db.Collection("categories"),
		Validate:   validate,
	}
}

// List returns all categories sorted by name.
func (cc *CategoryController) List(w http.ResponseWriter, r *http.Request) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := cc.Categories.Find(r.Context(), bson.M{}, opts)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	categories := []models.Category{}
	if err := cursor.All(r.Context(), &categories); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteList(w, http.StatusOK, categories, int64(len(categories)))
}

type categoryPayload struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
}

// Create adds a new category (admin only). Names are unique.
func (cc *CategoryController) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := cc.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	category := models.Category{
		Name:        payload.Name,
		Description: payload.Description,
		CreatedBy:   user.ID,
		CreatedAt:   time.Now(),
	}

	result, err := cc.Categories.InsertOne(r.Context(), category)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	category.ID = result.InsertedID.(primitive.ObjectID)

	utils.WriteData(w, http.StatusCreated, category)
}

type categoryUpdatePayload struct {
	Name        *string `json:"name" validate:"omitempty,max=50"`
	Description *string `json:"description" validate:"omitempty,max=200"`
}

// Update edits a category's name or description (admin only).
func (cc *CategoryController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Category not found")
		return
	}

	var payload categoryUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := cc.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	set := bson.M{}
	if payload.Name != nil {
		set["name"] = *payload.Name
	}
	if payload.Description != nil {
		set["description"] = *payload.Description
	}
	if len(set) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "No updatable fields provided")
		return
	}

	var updated models.Category
	err = cc.Categories.FindOneAndUpdate(
		r.Context(),
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteData(w, http.StatusOK, updated)
}

// Delete removes a category (admin only). Products keep their label strings.
func (cc *CategoryController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Category not found")
		return
	}

	result, err := cc.Categories.DeleteOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	if result.DeletedCount == 0 {
		utils.WriteError(w, http.StatusNotFound, "Category not found")
		return
	}

	utils.WriteMessage(w, http.StatusOK, "Category deleted successfully")
}
