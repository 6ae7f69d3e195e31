package auth

import "errors"

var (
	// ErrUnauthorized means the operation needs a signed-in user and there is none.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden means the signed-in user lacks staff rights.
	ErrForbidden = errors.New("staff permission required")
)

// Actor is the identity performing a request. A nil *Actor is an anonymous visitor.
type Actor struct {
	UserID   int64
	Username string
	IsStaff  bool
}

// ID returns the user id, or 0 for anonymous visitors.
func (a *Actor) ID() int64 {
	if a == nil {
		return 0
	}
	return a.UserID
}

// Authenticated reports whether a is a signed-in user.
func (a *Actor) Authenticated() bool {
	return a != nil && a.UserID > 0
}

// RequireAuthenticated fails with ErrUnauthorized for anonymous visitors.
func RequireAuthenticated(a *Actor) error {
	if !a.Authenticated() {
		return ErrUnauthorized
	}
	return nil
}

// RequireStaff fails with ErrUnauthorized for anonymous visitors and
// ErrForbidden for signed-in users without the staff flag.
func RequireStaff(a *Actor) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if !a.IsStaff {
		return ErrForbidden
	}
	return nil
}
