package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Lookup errors
	ErrPlayerNotFound = errors.New("player not found")

	// Game submission errors
	ErrInvalidPlayer = errors.New("game references an unknown player")
	ErrSamePlayer    = errors.New("winner and loser must be different players")

	// Head-to-head errors
	ErrNoGames = errors.New("players have not played each other")

	// Concurrency errors
	ErrConflict = errors.New("concurrent update, retry the operation")

	// Validation errors
	ErrValidation      = errors.New("validation failed")
	ErrPlayerNameTaken = &ValidationError{Field: "name", Reason: "a player with this name already exists"}
)

// ValidationError reports a rejected input field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
