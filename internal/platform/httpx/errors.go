// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	ledger "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Sentinel errors for the transport layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ledger.ErrAccountNotFound) && !errors.Is(err, ledger.ErrValidation),
		errors.Is(err, ledger.ErrJournalNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledger.ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Entry Rejected", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrAlreadyVoid),
		errors.Is(err, ledger.ErrAlreadyPosted),
		errors.Is(err, ledger.ErrInvalidStatus):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ledger.ErrAccountInactive):
		Problem(w, http.StatusUnprocessableEntity, "Account Inactive", err.Error())
	case errors.Is(err, ledger.ErrStorage):
		w.Header().Set("Retry-After", "1")
		Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// RespondInvalid reports struct validation failures field by field.
func RespondInvalid(w http.ResponseWriter, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	JSON(w, http.StatusBadRequest, struct {
		ProblemDetail
		Fields map[string]string `json:"fields"`
	}{
		ProblemDetail: ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest},
		Fields:        fields,
	})
}
