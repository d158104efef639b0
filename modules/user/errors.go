package user

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = errors.New("user with this email already exists")
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrInvalidInput is matched by every *FormError.
	ErrInvalidInput = errors.New("invalid input")
)

// FormError lists registration problems per form field.
type FormError struct {
	Fields map[string][]string
}

func (e *FormError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *FormError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrInvalidInput) match any FormError.
func (e *FormError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Error codes carried across the service container.
const (
	CodeInvalidInput       = "invalid_input"
	CodeConflict           = "conflict"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeExpiredToken       = "expired_token"
	CodeNotFound           = "not_found"
	CodeInternal           = "internal"
)

// ServiceError is the error envelope embedded in service responses. Handler
// errors reach the caller as plain text, known failures travel here.
type ServiceError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

var codeSentinels = map[string]error{
	CodeConflict:           ErrUserExists,
	CodeInvalidCredentials: ErrInvalidCredentials,
	CodeInvalidToken:       ErrInvalidToken,
	CodeExpiredToken:       ErrExpiredToken,
	CodeNotFound:           ErrUserNotFound,
}

// toServiceError classifies err for transport. It returns nil for nil.
func toServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var fe *FormError
	if errors.As(err, &fe) {
		return &ServiceError{Code: CodeInvalidInput, Message: "invalid input", Fields: fe.Fields}
	}
	for code, sentinel := range codeSentinels {
		if errors.Is(err, sentinel) {
			return &ServiceError{Code: code, Message: sentinel.Error()}
		}
	}
	return &ServiceError{Code: CodeInternal, Message: "internal error"}
}

// Err rebuilds the error on the caller's side so errors.Is works against the
// sentinels of this package.
func (e *ServiceError) Err() error {
	if e == nil {
		return nil
	}
	if e.Code == CodeInvalidInput {
		return &FormError{Fields: e.Fields}
	}
	if sentinel, ok := codeSentinels[e.Code]; ok {
		return sentinel
	}
	return fmt.Errorf("user service: %s", e.Message)
}
