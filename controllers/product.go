package controllers

import (
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
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
	"github.com/Gabrial-8467/karan-homeo-pharmacy/utils"
)

const defaultPageSize = 10

// ProductController handles catalogue requests.
type ProductController struct {
	Products  *mongo.Collection
	Validate  *validator.Validate
	UploadDir string
}

// NewProductController creates a new ProductController.
func NewProductController(db *mongo.Database, validate *validator.Validate, uploadDir string) *ProductController {
	return &ProductController{
		Products:  db.Collection("products"),
		Validate:  validate,
		UploadDir: uploadDir,
	}
}

type productPayload struct {
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description" validate:"required"`
	Price        *float64 `json:"price" validate:"required,gte=0"`
	Image        string   `json:"image" validate:"required"`
	Manufacturer string   `json:"manufacturer"`
	Usage        string   `json:"usage"`
	Categories   []string `json:"categories"`
	Stock        int      `json:"stock" validate:"gte=0"`
}

// Create adds a new product (admin only).
func (pc *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := pc.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	now := time.Now()
	product := models.Product{
		Name:         payload.Name,
		Description:  payload.Description,
		Price:        *payload.Price,
		Image:        payload.Image,
		Manufacturer: payload.Manufacturer,
		Usage:        payload.Usage,
		Categories:   payload.Categories,
		Stock:        payload.Stock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if product.Categories == nil {
		product.Categories = []string{}
	}

	result, err := pc.Products.InsertOne(r.Context(), product)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	product.ID = result.InsertedID.(primitive.ObjectID)

	utils.WriteData(w, http.StatusCreated, product)
}

// buildProductFilter translates list query parameters into a Mongo filter.
// Invalid numeric values are ignored rather than rejected.
func buildProductFilter(q url.Values) bson.M {
	filter := bson.M{}

	if c := q.Get("category"); c != "" && c != "All" {
		filter["categories"] = c
	}

	if search := q.Get("search"); search != "" {
		regex := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = []bson.M{
			{"name": regex},
			{"manufacturer": regex},
			{"categories": regex},
		}
	}

	price := bson.M{}
	if v, err := strconv.ParseFloat(q.Get("minPrice"), 64); err == nil {
		price["$gte"] = v
	}
	if v, err := strconv.ParseFloat(q.Get("maxPrice"), 64); err == nil {
		price["$lte"] = v
	}
	if len(price) > 0 {
		filter["price"] = price
	}

	if v, err := strconv.ParseFloat(q.Get("minRating"), 64); err == nil {
		filter["rating"] = bson.M{"$gte": v}
	}

	return filter
}

// sortForKey maps a sort key onto a Mongo sort document. Unknown keys sort
// newest first.
func sortForKey(key string) bson.D {
	switch key {
	case "price-asc":
		return bson.D{{Key: "price", Value: 1}}
	case "price-desc":
		return bson.D{{Key: "price", Value: -1}}
	case "rating-desc":
		return bson.D{{Key: "rating", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

// pageParams coerces page/limit query values, falling back to sane defaults.
func pageParams(q url.Values) (page, limit int64) {
	page = 1
	limit = defaultPageSize
	if v, err := strconv.ParseInt(q.Get("page"), 10, 64); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil && v > 0 {
		limit = v
	}
	return page, limit
}

// List returns a filtered, sorted page of products. Reviews are omitted from
// list responses.
func (pc *ProductController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := buildProductFilter(q)
	page, limit := pageParams(q)

	total, err := pc.Products.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	opts := options.Find().
		SetSort(sortForKey(q.Get("sort"))).
		SetSkip((page - 1) * limit).
		SetLimit(limit).
		SetProjection(bson.M{"reviews": 0})

	cursor, err := pc.Products.Find(r.Context(), filter, opts)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	products := []models.Product{}
	if err := cursor.All(r.Context(), &products); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	totalPages := int64(math.Ceil(float64(total) / float64(limit)))
	utils.WritePage(w, http.StatusOK, products, total, page, totalPages)
}

// AdminList returns a filtered page of products for the admin panel, newest
// first, including stock and review counts.
func (pc *ProductController) AdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := buildProductFilter(q)
	page, limit := pageParams(q)

	total, err := pc.Products.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := pc.Products.Find(r.Context(), filter, opts)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}
	products := []models.Product{}
	if err := cursor.All(r.Context(), &products); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	totalPages := int64(math.Ceil(float64(total) / float64(limit)))
	utils.WritePage(w, http.StatusOK, products, total, page, totalPages)
}

// GetByID returns one product, reviews included.
func (pc *ProductController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Product not found")
		return
	}

	var product models.Product
	err = pc.Products.FindOne(r.Context(), bson.M{"_id": id}).Decode(&product)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteData(w, http.StatusOK, product)
}

type productUpdatePayload struct {
	Name         *string   `json:"name"`
	Description  *string   `json:"description"`
	Price        *float64  `json:"price" validate:"omitempty,gte=0"`
	Image        *string   `json:"image"`
	Manufacturer *string   `json:"manufacturer"`
	Usage        *string   `json:"usage"`
	Categories   *[]string `json:"categories"`
	Stock        *int      `json:"stock" validate:"omitempty,gte=0"`
}

// Update edits a product (admin only). Only allow-listed fields are mutable;
// rating, review and timestamp fields are server-managed.
func (pc *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Product not found")
		return
	}

	var payload productUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := pc.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	if payload.Name != nil {
		set["name"] = *payload.Name
	}
	if payload.Description != nil {
		set["description"] = *payload.Description
	}
	if payload.Price != nil {
		set["price"] = *payload.Price
	}
	if payload.Image != nil {
		set["image"] = *payload.Image
	}
	if payload.Manufacturer != nil {
		set["manufacturer"] = *payload.Manufacturer
	}
	if payload.Usage != nil {
		set["usage"] = *payload.Usage
	}
	if payload.Categories != nil {
		set["categories"] = *payload.Categories
	}
	if payload.Stock != nil {
		set["stock"] = *payload.Stock
	}

	var updated models.Product
	err = pc.Products.FindOneAndUpdate(
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

type stockPayload struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

// UpdateStock sets a product's stock level (admin only).
func (pc *ProductController) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Product not found")
		return
	}

	var payload stockPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := pc.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	var updated models.Product
	err = pc.Products.FindOneAndUpdate(
		r.Context(),
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"stock": *payload.Stock, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteData(w, http.StatusOK, updated)
}

// Delete removes a product (admin only) and best-effort deletes its locally
// stored image. An image that cannot be removed is logged, not surfaced.
func (pc *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Product not found")
		return
	}

	var product models.Product
	err = pc.Products.FindOne(r.Context(), bson.M{"_id": id}).Decode(&product)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	if _, err := pc.Products.DeleteOne(r.Context(), bson.M{"_id": id}); err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	pc.removeLocalImage(product.Image)

	utils.WriteMessage(w, http.StatusOK, "Product deleted successfully")
}

// removeLocalImage deletes an image that lives under the upload directory.
// Remote URLs are left alone.
func (pc *ProductController) removeLocalImage(image string) {
	idx := strings.Index(image, "/uploads/")
	if idx < 0 {
		return
	}
	name := filepath.Base(image[idx+len("/uploads/"):])
	if name == "" || name == "." || name == "/" {
		return
	}
	path := filepath.Join(pc.UploadDir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("path", path).Warn("failed to delete product image")
	}
}

type reviewPayload struct {
	Rating  *float64 `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string   `json:"comment" validate:"required"`
}

// CreateReview appends an authenticated user's review and recomputes the
// product's average rating. A second review from the same user is rejected.
func (pc *ProductController) CreateReview(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Product not found")
		return
	}

	var payload reviewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := pc.Validate.Struct(payload); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	var product models.Product
	err = pc.Products.FindOne(r.Context(), bson.M{"_id": id}).Decode(&product)
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	if product.HasReviewFrom(user.ID) {
		utils.WriteError(w, http.StatusBadRequest, "You have already reviewed this product")
		return
	}

	product.Reviews = append(product.Reviews, models.Review{
		User:      user.ID,
		Name:      user.Name,
		Rating:    *payload.Rating,
		Comment:   payload.Comment,
		CreatedAt: time.Now(),
	})
	product.UpdateAverageRating()

	_, err = pc.Products.UpdateOne(r.Context(), bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"reviews":    product.Reviews,
			"rating":     product.Rating,
			"numReviews": product.NumReviews,
			"updatedAt":  time.Now(),
		},
	})
	if err != nil {
		utils.WriteStoreError(w, err)
		return
	}

	utils.WriteMessage(w, http.StatusCreated, "Review added successfully")
}
