package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Response is the envelope every endpoint returns. Success responses carry
// Data plus optional list metadata; failures carry Message.
type Response struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Count      *int64      `json:"count,omitempty"`
	Total      *int64      `json:"total,omitempty"`
	Page       *int64      `json:"page,omitempty"`
	TotalPages *int64      `json:"totalPages,omitempty"`
}

// WriteJSON serializes any payload with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

// WriteData writes a success envelope around a single resource.
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, Response{Success: true, Data: data})
}

// WriteMessage writes a success envelope carrying only a message.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Success: true, Message: message})
}

// WriteList writes a success envelope around a collection with its count.
func WriteList(w http.ResponseWriter, status int, data interface{}, count int64) {
	WriteJSON(w, status, Response{Success: true, Data: data, Count: &count})
}

// WritePage writes a success envelope around one page of a collection.
func WritePage(w http.ResponseWriter, status int, data interface{}, total, page, totalPages int64) {
	WriteJSON(w, status, Response{
		Success:    true,
		Data:       data,
		Total:      &total,
		Page:       &page,
		TotalPages: &totalPages,
	})
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Success: false, Message: message})
}

// StoreErrorStatus classifies a data-store failure into a response status and
// a human-readable message. Unknown errors map to 500.
func StoreErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return http.StatusNotFound, "Resource not found"
	case errors.Is(err, primitive.ErrInvalidHex):
		return http.StatusNotFound, "Resource not found"
	case mongo.IsDuplicateKeyError(err):
		return http.StatusBadRequest, "Duplicate field value entered"
	default:
		return http.StatusInternalServerError, "Server Error"
	}
}

// WriteStoreError translates a data-store failure into the error envelope.
// Server-side failures are logged; the client sees only the generic message.
func WriteStoreError(w http.ResponseWriter, err error) {
	status, message := StoreErrorStatus(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).Error("unhandled store error")
	}
	WriteError(w, status, message)
}

// WriteValidationError translates validator output into a 400 envelope with
// the first failing field named.
func WriteValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		WriteError(w, http.StatusBadRequest, "Invalid value for field: "+verrs[0].Field())
		return
	}
	WriteError(w, http.StatusBadRequest, err.Error())
}
