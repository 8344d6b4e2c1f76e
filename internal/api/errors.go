package api

import (
	"errors"
	"net/http"

	"github.com/mnemo-ai/mnemo/internal/database"
	"github.com/mnemo-ai/mnemo/internal/embedding"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Message: "unauthorized"}
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Message: "not found"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrInvalidToken   = &AppError{Code: http.StatusUnauthorized, Message: "invalid or expired token"}
	ErrValidation     = &AppError{Code: http.StatusBadRequest, Message: "validation error"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

// HandleError maps errors onto HTTP statuses: unavailable backends
// become 503, AppErrors keep their own code, everything else is a 500
// with the detail kept out of the response body. Domain validation
// errors are mapped by the handlers that know them.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		JSONErrorMessage(w, appErr.Code, appErr.Message)
	case errors.Is(err, embedding.ErrUnavailable):
		JSONErrorMessage(w, http.StatusServiceUnavailable, "embedding provider unavailable")
	case errors.Is(err, database.ErrUnavailable):
		JSONErrorMessage(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
