package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types for the frameio-kit core
var (
	// Encryption errors
	ErrDecryption = errors.New("decryption failed")

	// OAuth errors
	ErrTokenExchange = errors.New("token exchange failed")
	ErrTokenRefresh  = errors.New("token refresh failed")
	ErrInvalidState  = errors.New("invalid or expired state")

	// Secret resolution errors
	ErrSecretResolution = errors.New("secret resolution failed")

	// Installation errors
	ErrNotInstalled = errors.New("not installed")

	// General errors
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// ResourceFailure records a single failed remote operation during
// reconciliation or uninstall.
type ResourceFailure struct {
	Resource  string // "webhook" or "action"
	Operation string // "create", "update" or "delete"
	ID        string // remote resource ID or event type
	Err       error
}

func (f ResourceFailure) Error() string {
	return fmt.Sprintf("%s %s %s: %v", f.Operation, f.Resource, f.ID, f.Err)
}

func (f ResourceFailure) Unwrap() error {
	return f.Err
}

// ReconciliationError aggregates per-resource failures from a single
// reconciliation run. Successful operations are still committed; callers
// inspect Failures to report "N succeeded, M failed".
type ReconciliationError struct {
	Failures []ResourceFailure
}

func (e *ReconciliationError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%d resource operation(s) failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}
