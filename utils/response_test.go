package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]string{"name": "Arnica"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]interface{}{"name": "Arnica"}, body["data"])
	assert.NotContains(t, body, "message")
}

func TestWriteList(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteList(rec, http.StatusOK, []string{"a", "b"}, 2)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["count"])
}

func TestWritePage(t *testing.T) {
	rec := httptest.NewRecorder()
	WritePage(rec, http.StatusOK, []string{}, 25, 2, 3)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(25), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(3), body["totalPages"])
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusForbidden, "nope")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "nope", body["message"])
	assert.NotContains(t, body, "data")
}

func TestStoreErrorStatus(t *testing.T) {
	status, _ := StoreErrorStatus(mongo.ErrNoDocuments)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = StoreErrorStatus(primitive.ErrInvalidHex)
	assert.Equal(t, http.StatusNotFound, status)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	status, message := StoreErrorStatus(dup)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Duplicate field value entered", message)

	status, message = StoreErrorStatus(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Server Error", message)
}
