package models

import (
	"errors"
	"fmt"
)

// Application-wide standard errors
var (
	// Общие ошибки ресурсов
	ErrNotFound       = errors.New("resource not found")
	ErrStoryNotFound  = fmt.Errorf("story %w", ErrNotFound)
	ErrNodeNotFound   = fmt.Errorf("node %w", ErrNotFound)
	ErrChoiceNotFound = fmt.Errorf("choice %w", ErrNotFound)
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)

	// Доступ
	ErrUnauthorized = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden    = errors.New("forbidden")    // Authenticated, but not the story author

	// Целостность графа
	ErrValidation          = errors.New("validation error")
	ErrCrossStoryReference = errors.New("source and target nodes must belong to the same story")
	ErrStoryMismatch       = errors.New("node does not belong to the story")
	ErrInvalidChoiceSet    = errors.New("all choice IDs must belong to the specified node exactly once")
	ErrEntryNodeDeletion   = errors.New("the story entry node cannot be deleted")

	// Хранилище
	ErrStoreUnavailable = errors.New("store unavailable")

	// Identity
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenMalformed     = errors.New("token is malformed")
	ErrTokenExpired       = errors.New("token has expired")
)

// Validationf оборачивает ErrValidation сообщением о конкретном поле.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
