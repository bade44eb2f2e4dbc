package controllers

import (
	"net/url"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProductPayloadValidation(t *testing.T) {
	validate := validator.New()

	price := 25.0
	valid := productPayload{
		Name:        "Arnica 30C",
		Description: "Homeopathic remedy for bruising",
		Price:       &price,
		Image:       "/uploads/arnica.jpg",
	}
	assert.NoError(t, validate.Struct(valid))

	negative := valid
	negPrice := -10.0
	negative.Price = &negPrice
	assert.Error(t, validate.Struct(negative))

	missingImage := valid
	missingImage.Image = ""
	assert.Error(t, validate.Struct(missingImage))

	noPrice := valid
	noPrice.Price = nil
	assert.Error(t, validate.Struct(noPrice))
}

func TestReviewPayloadValidation(t *testing.T) {
	validate := validator.New()

	for rating, ok := range map[float64]bool{0: false, 1: true, 3.5: true, 5: true, 6: false} {
		r := rating
		err := validate.Struct(reviewPayload{Rating: &r, Comment: "works well"})
		if ok {
			assert.NoErrorf(t, err, "rating %v", rating)
		} else {
			assert.Errorf(t, err, "rating %v", rating)
		}
	}

	rating := 4.0
	assert.Error(t, validate.Struct(reviewPayload{Rating: &rating}))
}

func TestBuildProductFilterSearch(t *testing.T) {
	q := url.Values{}
	q.Set("search", "vitamin")

	filter := buildProductFilter(q)
	or, ok := filter["$or"].([]bson.M)
	require.True(t, ok)
	require.Len(t, or, 3)

	regex, ok := or[0]["name"].(primitive.Regex)
	require.True(t, ok)
	assert.Equal(t, "vitamin", regex.Pattern)
	assert.Equal(t, "i", regex.Options)
}

func TestBuildProductFilterSearchEscapesMeta(t *testing.T) {
	q := url.Values{}
	q.Set("search", "c++ (extra)")

	filter := buildProductFilter(q)
	or := filter["$or"].([]bson.M)
	regex := or[0]["name"].(primitive.Regex)
	assert.Equal(t, `c\+\+ \(extra\)`, regex.Pattern)
}

func TestBuildProductFilterCategory(t *testing.T) {
	q := url.Values{}
	q.Set("category", "Ointments")
	filter := buildProductFilter(q)
	assert.Equal(t, "Ointments", filter["categories"])

	// "All" is the storefront's no-filter sentinel.
	q.Set("category", "All")
	filter = buildProductFilter(q)
	assert.NotContains(t, filter, "categories")
}

func TestBuildProductFilterPriceRange(t *testing.T) {
	q := url.Values{}
	q.Set("minPrice", "10")
	q.Set("maxPrice", "99.5")

	filter := buildProductFilter(q)
	price, ok := filter["price"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, 10.0, price["$gte"])
	assert.Equal(t, 99.5, price["$lte"])
}

func TestBuildProductFilterIgnoresInvalidValues(t *testing.T) {
	q := url.Values{}
	q.Set("minPrice", "cheap")
	q.Set("minRating", "lots")

	filter := buildProductFilter(q)
	assert.NotContains(t, filter, "price")
	assert.NotContains(t, filter, "rating")
}

func TestSortForKey(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "price", Value: 1}}, sortForKey("price-asc"))
	assert.Equal(t, bson.D{{Key: "price", Value: -1}}, sortForKey("price-desc"))
	assert.Equal(t, bson.D{{Key: "rating", Value: -1}}, sortForKey("rating-desc"))
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, sortForKey(""))
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, sortForKey("bogus"))
}

func TestPageParams(t *testing.T) {
	q := url.Values{}
	page, limit := pageParams(q)
	assert.Equal(t, int64(1), page)
	assert.Equal(t, int64(defaultPageSize), limit)

	q.Set("page", "3")
	q.Set("limit", "25")
	page, limit = pageParams(q)
	assert.Equal(t, int64(3), page)
	assert.Equal(t, int64(25), limit)

	// Invalid values fall back instead of erroring.
	q.Set("page", "minus-one")
	q.Set("limit", "-5")
	page, limit = pageParams(q)
	assert.Equal(t, int64(1), page)
	assert.Equal(t, int64(defaultPageSize), limit)
}
