// Package auth holds the request-integrity primitives: password hashing,
// signed session tokens, double-submit CSRF tokens and single-use password
// reset tokens. None of these types talk to HTTP or SQL directly; callers
// supply stores and transport.
package auth
