package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Категории ошибок сервисного слоя. HTTP-слой сопоставляет их со статусами через errors.Is.
var (
	ErrNotFound             = errors.New("requested resource not found")
	ErrForbidden            = errors.New("operation not allowed for the current user")
	ErrConflict             = errors.New("conflict with the current state")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrValidationFailed     = errors.New("validation failed")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Конкретные ошибки оборачивают категорию.
var (
	ErrUserNotFound         = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrSubmissionNotFound   = fmt.Errorf("%w: submission not found", ErrNotFound)
	ErrProfileNotFound      = fmt.Errorf("%w: alumni profile not found", ErrNotFound)
	ErrEventNotFound        = fmt.Errorf("%w: event not found", ErrNotFound)
	ErrRegistrationNotFound = fmt.Errorf("%w: event registration not found", ErrNotFound)
	ErrFieldHasNoAdmin      = fmt.Errorf("%w: field has no administrator", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification not found", ErrNotFound)

	ErrPendingSubmissionExists = fmt.Errorf("%w: a pending submission already exists", ErrConflict)
	ErrAlreadyRegistered       = fmt.Errorf("%w: already registered for this event", ErrConflict)
	ErrEventFull               = fmt.Errorf("%w: event capacity reached", ErrConflict)
	ErrAdminOfAnotherField     = fmt.Errorf("%w: user already administers another field", ErrConflict)
	ErrCannotDemoteSuperAdmin  = fmt.Errorf("%w: super admin cannot become a field admin", ErrConflict)
	ErrAssignmentChanged       = fmt.Errorf("%w: field assignment changed concurrently", ErrConflict)
	ErrUserEmailConflict       = fmt.Errorf("%w: email address is already in use", ErrConflict)

	ErrSubmissionNotPending  = fmt.Errorf("%w: submission is not pending", ErrInvalidTransition)
	ErrAttendanceAlreadySet  = fmt.Errorf("%w: attendance already marked", ErrInvalidTransition)
	ErrEventNotStarted       = fmt.Errorf("%w: event has not started yet", ErrInvalidTransition)
	ErrInvalidCredentials    = fmt.Errorf("%w: invalid email or password", ErrAuthenticationFailed)
	ErrGoogleLoginNotEnabled = fmt.Errorf("%w: google sign-in is not configured", ErrAuthenticationFailed)
)

// ValidationError содержит сообщения по полям и сопоставляется с ErrValidationFailed.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add запоминает первое сообщение для поля.
func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) Check(ok bool, field, message string) {
	if !ok {
		e.Add(field, message)
	}
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Err возвращает nil, если ошибок нет.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

func validationFailed(field, message string) error {
	v := NewValidationError()
	v.Add(field, message)
	return v
}

// forbidden оборачивает причину отказа движка авторизации.
func forbidden(reason string) error {
	if reason == "" {
		return ErrForbidden
	}
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}
