package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/Nzyazin/cashdesk/internal/core/usecase"
)

type ErrorResponse struct {
	APIPath      string `json:"apiPath"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	ErrorTime    string `json:"errorTime"`
}

// WriteError sends the common error body. errorCode is the upper snake case
// status name, e.g. BAD_REQUEST.
func WriteError(w http.ResponseWriter, r *http.Request, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{
		APIPath:      "uri=" + r.URL.Path,
		ErrorCode:    strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_")),
		ErrorMessage: message,
		ErrorTime:    time.Now().Format(models.TimestampLayout),
	})
}

// StatusFor maps a usecase error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrCashierNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrOperationTimedOut):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrInvalidRequest),
		errors.Is(err, usecase.ErrAmountMismatch),
		errors.Is(err, usecase.ErrCurrencyNotSupported),
		errors.Is(err, usecase.ErrDenominationNotFound),
		errors.Is(err, usecase.ErrInsufficientDenomination),
		errors.Is(err, usecase.ErrInvalidDateRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errorMessage":"Internal Server Error"}`)) // Fallback response
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
