package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/generation"
	"github.com/prepforge/practice-api/internal/selection"
	"github.com/prepforge/practice-api/internal/service/auth"
	"github.com/prepforge/practice-api/internal/service/distractors"
	"github.com/prepforge/practice-api/internal/service/practice"
	"github.com/prepforge/practice-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, practice.ErrSessionNotFound),
		errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, store.ErrQuestionNotFound),
		errors.Is(err, store.ErrOptionSetNotFound),
		errors.Is(err, distractors.ErrQuestionNotFound),
		errors.Is(err, distractors.ErrOptionNotFound):
		return http.StatusNotFound

	// Conflict errors: illegal lifecycle transitions and lost CAS races
	case errors.Is(err, practice.ErrSessionAlreadyCompleted),
		errors.Is(err, practice.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, store.ErrVersionConflict):
		return http.StatusConflict

	// Unprocessable: the request is well-formed but cannot be satisfied
	case errors.Is(err, selection.ErrInsufficientQuestions),
		errors.Is(err, distractors.ErrInsufficientDistractors):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidSessionType),
		errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrAnswerIndexOutOfRange),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, practice.ErrQuestionIndexOutOfRange),
		errors.Is(err, practice.ErrOptionsUnavailable),
		errors.Is(err, distractors.ErrNotMCQ):
		return http.StatusBadRequest

	// Upstream generation failures
	case errors.Is(err, generation.ErrTransientFailure),
		errors.Is(err, generation.ErrGenerationDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrEmptyResponse),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrContentBlocked):
		return http.StatusBadGateway

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message based
// on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, practice.ErrSessionNotFound),
		errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"

	case errors.Is(err, store.ErrQuestionNotFound),
		errors.Is(err, distractors.ErrQuestionNotFound):
		return "Question not found"

	case errors.Is(err, store.ErrOptionSetNotFound),
		errors.Is(err, distractors.ErrOptionNotFound):
		return "Question options not found"

	case errors.Is(err, practice.ErrSessionAlreadyCompleted):
		return "Session is already completed"

	case errors.Is(err, practice.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrIllegalTransition):
		return "Session state does not allow this operation"

	case errors.Is(err, store.ErrVersionConflict):
		return "Session was modified concurrently, please retry"

	case errors.Is(err, selection.ErrInsufficientQuestions):
		return insufficientQuestionsMessage(err)

	case errors.Is(err, distractors.ErrInsufficientDistractors):
		return "Could not generate enough answer options"

	case errors.Is(err, practice.ErrQuestionIndexOutOfRange):
		return "Question index out of range"

	case errors.Is(err, practice.ErrOptionsUnavailable):
		return "Question options unavailable"

	case errors.Is(err, distractors.ErrNotMCQ):
		return "Question is not multiple choice"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrAnswerIndexOutOfRange),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.Is(err, generation.ErrTransientFailure):
		return "Generation service temporarily unavailable"

	case errors.Is(err, generation.ErrGenerationDisabled):
		return "Distractor generation is not enabled on this deployment"

	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrEmptyResponse),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrContentBlocked):
		return "Generation service failed"

	default:
		return "An unexpected error occurred"
	}
}

// insufficientQuestionsMessage surfaces the available count so the client can
// offer a smaller session, without echoing internal error text.
func insufficientQuestionsMessage(err error) string {
	var insufficientErr *selection.InsufficientError
	if errors.As(err, &insufficientErr) {
		return fmt.Sprintf("Not enough questions available: requested %d, found %d",
			insufficientErr.Requested, insufficientErr.Available)
	}
	return "Not enough questions available for the requested session"
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'StartSessionRequest.Count' Error:Field validation
		// for 'Count' failed on the 'oneof' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages.
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}
