package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/garnizeh/clipmarket/internal/common"
)

// envelope wraps every successful /v1 response body. Data may be null.
type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errorMapping is checked in order; the first sentinel that matches wins.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{common.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{common.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{common.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{common.ErrNotFound, http.StatusNotFound, "not_found"},
	{common.ErrConflict, http.StatusConflict, "conflict"},
	{common.ErrInvalidCode, http.StatusBadRequest, "invalid_code"},
	{common.ErrIncorrectPassword, http.StatusUnauthorized, "incorrect_password"},
	{common.ErrNoPasswordSet, http.StatusBadRequest, "no_password_set"},
	{common.ErrNotParticipant, http.StatusForbidden, "not_participant"},
	{common.ErrNoSocialAccount, http.StatusBadRequest, "no_social_account"},
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeData(w http.ResponseWriter, v any, status int) {
	writeJSON(w, envelope{Data: v}, status)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, errorEnvelope{Error: &apiError{Code: code, Message: message}}, status)
}

// writeError turns err into the error envelope. Errors outside the known
// taxonomy are logged and reported as operation_failed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, errorEnvelope{Error: &apiError{
			Code:    "validation_failed",
			Message: common.ErrValidation.Error(),
			Fields:  verr.Fields,
		}}, http.StatusBadRequest)
		return
	}

	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			writeErrorCode(w, m.status, m.code, m.err.Error())
			return
		}
	}

	logger.Error("request failed",
		slog.String("request_id", RequestID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("err", err),
	)
	writeErrorCode(w, http.StatusInternalServerError, "operation_failed", "the operation could not be completed")
}
