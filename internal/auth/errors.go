package auth

import "errors"

// ErrNotFound is returned by stores when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Security failures. Handlers map these to generic client responses; the
// distinctions only matter for logs, metrics and tests.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrWeakPassword       = errors.New("password does not meet policy")

	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrResetTokenExpired  = errors.New("reset token expired")
	ErrResetTokenUsed     = errors.New("reset token already used")

	ErrMissingSecret = errors.New("session signing secret is not configured")
)

// IsResetTokenFailure reports whether err is any of the reset token outcomes
// that collapse to a single client-visible failure.
func IsResetTokenFailure(err error) bool {
	return errors.Is(err, ErrResetTokenNotFound) ||
		errors.Is(err, ErrResetTokenExpired) ||
		errors.Is(err, ErrResetTokenUsed)
}
