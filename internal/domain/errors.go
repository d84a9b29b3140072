package domain

import "errors"

// Domain errors
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrGameNotFound       = errors.New("game not found")
	ErrOperationNotFound  = errors.New("pending operation not found")
	ErrOperationSettled   = errors.New("operation already settled")
	ErrInvalidAddress     = errors.New("invalid wallet address")
	ErrInvalidProfileName = errors.New("profile name is required")
	ErrInvalidGame        = errors.New("game name is required")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInternalError      = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrGameNotFound) ||
		errors.Is(err, ErrOperationNotFound)
}

// IsValidationError checks if an error was caused by bad caller input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrInvalidProfileName) ||
		errors.Is(err, ErrInvalidGame) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrOperationSettled)
}
