package auth

import (
	"github.com/mrlokans/rolegate/internal/entities"
)

// Requirement is the role a resource demands. AnyAuthenticated accepts
// every resolved user regardless of role.
type Requirement = entities.UserRole

const AnyAuthenticated Requirement = ""

const (
	ReasonNotAuthenticated = "not authenticated"
	ReasonRoleMismatch     = "role mismatch"
)

// Decision is the outcome of an access check.
type Decision struct {
	Allowed  bool
	Reason   string // empty when allowed
	Required Requirement
}

// Err converts a denial into the error callers surface: ErrMissingCredential
// when nobody was resolved, a *ForbiddenError otherwise. Allowed decisions
// return nil.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonNotAuthenticated:
		return ErrMissingCredential
	default:
		return &ForbiddenError{Required: d.Required}
	}
}

// Decide compares the user's role with the requirement. Roles match exactly;
// there is no hierarchy, so an admin does not satisfy an editor requirement.
func Decide(user *entities.User, required Requirement) Decision {
	if user == nil {
		return Decision{Reason: ReasonNotAuthenticated, Required: required}
	}
	if required == AnyAuthenticated || user.Role == required {
		return Decision{Allowed: true, Required: required}
	}
	return Decision{Reason: ReasonRoleMismatch, Required: required}
}
