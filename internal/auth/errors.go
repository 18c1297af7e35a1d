package auth

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrDuplicateIdentity = errors.New("identity already registered")
	ErrForbidden         = errors.New("forbidden")

	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameInvalid  = errors.New("username must be 1-64 characters, alphanumeric, dot, underscore or hyphen")
	ErrPasswordRequired = errors.New("password is required")
)

// ForbiddenError is returned when an authenticated user lacks the role a
// resource requires.
type ForbiddenError struct {
	Required Requirement
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("Requires role '%s'", e.Required)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}
