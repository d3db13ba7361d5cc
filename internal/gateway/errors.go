// ABOUTME: Single HTTP error translator for the API surface
// ABOUTME: Maps domain sentinels to stable error codes and status codes

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/unibuc-cs/ghiseu-gateway/internal/caselife"
	"github.com/unibuc-cs/ghiseu-gateway/internal/operator"
	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
	"github.com/unibuc-cs/ghiseu-gateway/internal/toolgw"
)

// Stable error codes exposed to clients.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeSlotUnavailable = "SLOT_UNAVAILABLE"
	CodeTaskConflict    = "TASK_CONFLICT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidStatus   = "INVALID_TRANSITION"
	CodeInternal        = "INTERNAL"
)

// validationError is a client-correctable input problem.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func validationf(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError translates a domain error into the JSON error envelope.
func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := classify(err)

	if status >= 500 {
		g.logger.Error("request failed",
			"path", r.URL.Path,
			"code", code,
			"error", err)
	} else {
		g.logger.Debug("request rejected",
			"path", r.URL.Path,
			"code", code,
			"error", err)
	}

	msg := err.Error()
	if code == CodeInternal {
		// Internal details stay in the log.
		msg = "internal error"
	}
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: msg}})
}

func classify(err error) (code string, status int) {
	var vErr *validationError
	switch {
	case errors.As(err, &vErr):
		return CodeValidation, http.StatusBadRequest
	case errors.Is(err, store.ErrSlotUnavailable):
		return CodeSlotUnavailable, http.StatusConflict
	case errors.Is(err, store.ErrTaskConflict):
		return CodeTaskConflict, http.StatusConflict
	case errors.Is(err, caselife.ErrInvalidTransition):
		return CodeInvalidStatus, http.StatusConflict
	case errors.Is(err, operator.ErrUnauthenticated),
		errors.Is(err, operator.ErrInvalidToken),
		errors.Is(err, operator.ErrExpiredToken):
		return CodeUnauthenticated, http.StatusUnauthorized
	case errors.Is(err, operator.ErrUnknownCommand):
		return CodeValidation, http.StatusBadRequest
	case errors.Is(err, toolgw.ErrExternalService):
		return CodeExternalService, http.StatusBadGateway
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound, http.StatusNotFound
	default:
		return CodeInternal, http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return validationf("invalid JSON body")
	}
	return nil
}
