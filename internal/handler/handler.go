package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"shopflow/internal/middleware"
	"shopflow/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// statusByKind maps domain error kinds to HTTP status codes.
var statusByKind = map[model.ErrorKind]int{
	model.KindValidation:          http.StatusBadRequest,
	model.KindNotFound:            http.StatusNotFound,
	model.KindInsufficientStock:   http.StatusConflict,
	model.KindInsufficientBalance: http.StatusPaymentRequired,
	model.KindStateConflict:       http.StatusConflict,
	model.KindUnauthorised:        http.StatusForbidden,
	model.KindCompensationFailed:  http.StatusInternalServerError,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	requestID := chimw.GetReqID(r.Context())
	logger.Warn().
		Str("request_id", requestID).
		Str("code", code).
		Int("status", status).
		Msg(message)
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message, CorrelationID: requestID})
}

// writeServiceError translates an error returned by a service into a response.
// Errors outside the domain taxonomy become a 500 without leaking their text.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	kind, ok := model.KindOf(err)
	if !ok {
		logger.Error().Err(err).Str("request_id", chimw.GetReqID(r.Context())).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	code, message := model.ErrCodeInternalError, err.Error()
	var de *model.DomainError
	if errors.As(err, &de) {
		code = de.Code
	}
	if kind == model.KindCompensationFailed {
		code, message = model.ErrCodeCompensationFailed, model.ErrCompensationFailed.Message
	} else if kind != model.KindValidation && de != nil {
		message = de.Message
	}

	writeError(w, r, statusByKind[kind], code, message, logger)
}

// decodeJSON decodes the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, logger zerolog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", logger)
		return false
	}
	return true
}

// actorFrom returns the caller asserted by the identity middleware.
func actorFrom(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.Actor, bool) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing caller identity", logger)
	}
	return actor, ok
}

// orderIDParam parses the {id} path parameter.
func orderIDParam(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidRequest, "invalid order ID format", logger)
		return uuid.Nil, false
	}
	return orderID, true
}

// int64Param parses a positive integer path parameter.
func int64Param(w http.ResponseWriter, r *http.Request, name string, logger zerolog.Logger) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidRequest, "invalid "+name, logger)
		return 0, false
	}
	return v, true
}

// queryInt reads an optional integer query parameter. Malformed values read as zero.
func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}
