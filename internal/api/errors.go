package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"solana-vesting/internal/vesting"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var errMissingCaller = errors.New("missing " + CallerHeader + " header")

// statusFor maps an engine error to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errMissingCaller):
		return http.StatusUnauthorized, "missing_caller"
	case errors.Is(err, vesting.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, vesting.ErrInvalidSchedule):
		return http.StatusBadRequest, "invalid_schedule"
	case errors.Is(err, vesting.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, vesting.ErrPoolNotFound):
		return http.StatusNotFound, "pool_not_found"
	case errors.Is(err, vesting.ErrScheduleNotFound):
		return http.StatusNotFound, "schedule_not_found"
	case errors.Is(err, vesting.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, vesting.ErrNothingToClaim):
		return http.StatusConflict, "nothing_to_claim"
	case errors.Is(err, vesting.ErrInsufficientCustody):
		return http.StatusUnprocessableEntity, "insufficient_custody"
	case errors.Is(err, vesting.ErrDerivationFailure):
		return http.StatusInternalServerError, "derivation_failure"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		requestLogger(r, s.log).WithError(err).Error("request failed")
		if code == "internal" {
			msg = "internal error"
		}
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
