package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned by provider clients whose credentials are absent.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrUnexpectedPayload marks a provider response that lacks required fields.
	ErrUnexpectedPayload = errors.New("unexpected payload")

	// ErrNoUsableTrip is returned when the planner yields no valid itinerary.
	ErrNoUsableTrip = errors.New("no usable trip")

	// ErrMatrixShape is returned when a matrix row does not match the destination count.
	ErrMatrixShape = errors.New("matrix shape mismatch")

	// ErrNotImplemented is returned by reserved travel modes.
	ErrNotImplemented = errors.New("not implemented")
)

// ValidationError describes a caller mistake that should be reported back verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
