package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"horizon/internal/shared/errs"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var kindStatus = map[errs.Kind]int{
	errs.KindInvalid:         http.StatusBadRequest,
	errs.KindUnauthenticated: http.StatusUnauthorized,
	errs.KindConflict:        http.StatusConflict,
	errs.KindUpstream:        http.StatusBadGateway,
	errs.KindMissingResult:   http.StatusBadGateway,
	errs.KindInternal:        http.StatusInternalServerError,
}

var kindMessage = map[errs.Kind]string{
	errs.KindUnauthenticated: "invalid credentials or session",
	errs.KindConflict:        "an account with this email already exists",
	errs.KindUpstream:        "an upstream service request failed",
	errs.KindMissingResult:   "a banking provider returned an incomplete response",
	errs.KindInternal:        "internal error",
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind errs.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError reports err to the client without leaking provider details.
// Only validation failures echo their cause.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := errs.KindOf(err)
	status := StatusFor(kind)

	message := kindMessage[kind]
	if kind == errs.KindInvalid {
		message = invalidMessage(err)
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, status, ErrorResponse{Code: string(kind), Message: message})
}

// invalidMessage returns the cause of the innermost classified error.
func invalidMessage(err error) string {
	var inner *errs.Error
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if e, ok := cur.(*errs.Error); ok {
			inner = e
		}
	}
	if inner == nil || inner.Err == nil {
		return "invalid request"
	}
	return inner.Err.Error()
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return errs.Msg("http.decode", errs.KindInvalid, "malformed JSON body")
	}
	return nil
}
