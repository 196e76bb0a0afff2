package services

import "errors"

// Sentinel errors shared across services. Handlers branch on these with
// errors.Is and map them onto the response envelope; anything else is
// reported as an internal failure with a generic message.
var (
	ErrForbidden       = errors.New("forbidden")
	ErrUserNotFound    = errors.New("user not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
)
