package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/chainforge/chainforge/internal/repository"
	"github.com/chainforge/chainforge/internal/service"
)

// validate is the shared request validator. Struct tags on the request types
// carry the rules.
var validate = validator.New(validator.WithRequiredStructEnabled())

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	err = validate.Struct(dst)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}

	return true
}

// respondServiceError maps domain errors onto HTTP statuses. Anything
// unrecognized is logged and becomes a 500 without leaking internals.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrFutureDate),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidPeriodType),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrNameRequired):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, service.ErrNotGroupMember),
		errors.Is(err, service.ErrNotGroupAdmin),
		errors.Is(err, service.ErrNotGroupOwner),
		errors.Is(err, service.ErrOwnerCannotLeave):
		respondError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, repository.ErrGoalNotFound),
		errors.Is(err, repository.ErrGroupNotFound),
		errors.Is(err, repository.ErrGroupGoalNotFound),
		errors.Is(err, repository.ErrPeriodNotFound),
		errors.Is(err, repository.ErrProgressNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		respondError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrEmailAlreadyExists),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, service.ErrConcurrencyConflict):
		respondError(w, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrGoalLimitReached),
		errors.Is(err, service.ErrGroupLimitReached),
		errors.Is(err, service.ErrGroupFull):
		respondError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, service.ErrTargetNotSet):
		respondError(w, http.StatusPreconditionFailed, err.Error())

	default:
		slog.Error("unhandled service error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
