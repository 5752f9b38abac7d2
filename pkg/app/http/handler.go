// Package http provides chi-compatible handlers that return errors and map
// service errors onto JSON responses.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
)

// HandlerFunc is an http handler that reports failure by returning an error
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// HandleError adapts h to a standard http.HandlerFunc.
//
//	r.Get("/instances", http.HandleError(h.listInstances))
func HandleError(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			DefaultErrorHandler(w, err)
		}
	}
}

type errorResponse struct {
	ErrMsg     string `json:"error"`
	ErrMsgCode int    `json:"code"`
	Category   string `json:"category,omitempty"`
}

// DefaultErrorHandler writes err as a JSON error body. Causes are never
// written; uncategorised failures get a generic message.
func DefaultErrorHandler(w http.ResponseWriter, err error) {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		msg := svcErr.Message
		if msg == "" || svcErr.Category == apperrors.CategoryGeneralError {
			msg = "Unexpected Service Error"
		}
		_ = WriteJSON(w, svcErr.StatusCode(), &errorResponse{
			ErrMsg:     msg,
			ErrMsgCode: svcErr.StatusCode(),
			Category:   svcErr.Category.String(),
		})
		return
	}

	_ = WriteJSON(w, http.StatusInternalServerError, &errorResponse{
		ErrMsg:     "Unexpected Service Error",
		ErrMsgCode: http.StatusInternalServerError,
	})
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
