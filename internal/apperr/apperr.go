package apperr

// Package apperr defines the error taxonomy every handler maps failures
// into before anything is written to a client. Raw storage errors stay on
// the server side.

import (
	"errors"
	"net/http"
)

var (
	ErrValidation         = errors.New("invalid request")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
	ErrNotParticipant     = errors.New("not a conversation participant")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInternal           = errors.New("internal server error")
)

// Status maps an error to the HTTP status sent to the client. Ownership
// denials on posts and comments answer 401 while participant denials on
// conversations answer 403; unknown errors are treated as internal.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrForbidden):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-safe text for an error. Anything outside the
// taxonomy collapses to the internal-error message.
func Message(err error) string {
	for _, known := range []error{
		ErrValidation, ErrInvalidCredentials, ErrUnauthorized,
		ErrInvalidToken, ErrForbidden, ErrNotParticipant,
		ErrNotFound, ErrConflict,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrInternal.Error()
}
