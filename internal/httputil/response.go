// Package httputil writes the JSON envelope every endpoint responds with.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/logger"
)

// maxBodyBytes caps request bodies read by DecodeJSON.
const maxBodyBytes = 1 << 20

// Envelope is the response body shape shared by all endpoints.
type Envelope struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Count   *int                `json:"count,omitempty"`
	Message string              `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// OK writes a success envelope carrying data.
func OK(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// List writes a success envelope with data and its element count.
func List(w http.ResponseWriter, data any, count int) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Count: &count})
}

// Message writes a success envelope with only a message.
func Message(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope{Success: true, Message: msg})
}

// WriteError classifies err and writes the error envelope. Causes of internal
// errors are logged and never sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	appErr := apperr.From(err)
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError && log != nil {
		logger.FromContext(r.Context(), log).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	WriteJSON(w, status, Envelope{
		Success: false,
		Error:   appErr.Message,
		Details: appErr.Details,
	})
}

// DecodeJSON reads a single JSON object from the request body into dst.
func DecodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Validation("request body is required")
		case errors.As(err, &maxErr):
			return apperr.Validation(fmt.Sprintf("request body must not exceed %d bytes", maxErr.Limit))
		default:
			return apperr.Validation("invalid request body")
		}
	}
	return nil
}
