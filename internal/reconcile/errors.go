package reconcile

import "fmt"

// ErrInvalidCredentials is returned for both unknown accounts and credential
// mismatches. The message is deliberately uniform so callers cannot
// distinguish the two cases and enumerate accounts.
var ErrInvalidCredentials = &AuthError{message: "invalid username or password"}

// AuthError indicates a failed credential check.
type AuthError struct {
	message string
}

// Error implements the error interface.
func (e *AuthError) Error() string { return e.message }

// ValidationError indicates malformed or missing client input. The store is
// never touched before validation passes.
type ValidationError struct {
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a uniqueness violation the caller must resolve,
// such as a taken username.
type ConflictError struct {
	Message string
}

// Error implements the error interface.
func (e *ConflictError) Error() string { return e.Message }

// UpstreamError indicates the store or another dependency was unreachable or
// failed. It is fatal for the request; retry policy belongs to the caller.
type UpstreamError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("reconcile: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *UpstreamError) Unwrap() error { return e.Err }
