package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidDifficulty is returned when a difficulty value is not one of
	// easy, medium, or hard.
	ErrInvalidDifficulty = errors.New("invalid difficulty")

	// ErrInvalidQuestionType is returned when a question type is not valid.
	ErrInvalidQuestionType = errors.New("invalid question type")

	// ErrInvalidQuestionSource is returned when a question source is not valid.
	ErrInvalidQuestionSource = errors.New("invalid question source")

	// ErrInvalidSessionType is returned when a session type is not valid.
	ErrInvalidSessionType = errors.New("invalid session type")

	// ErrInvalidSessionStatus is returned when a session status is not valid.
	ErrInvalidSessionStatus = errors.New("invalid session status")

	// ErrUnauthorized is returned when an operation is not permitted for the caller.
	ErrUnauthorized = errors.New("unauthorized operation")
)
