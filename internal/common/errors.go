package common

import (
	"errors"
	"fmt"
)

// ErrRecoveryFailure means the authoritative tenant-admin source had no
// answer; the caller must surface "not configured" rather than fabricating
// ownership.
var ErrRecoveryFailure = errors.New("ownership recovery found no authoritative administrator")

// PersistenceError wraps a store failure that survived the retry loop. The
// operation it guarded did not commit; session state is unchanged.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s on %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// AuthorizationDenied is returned before any store access when a principal
// lacks the role required for a mutation.
type AuthorizationDenied struct {
	PrincipalID string
	TenantID    string
	Reason      string
}

func (e *AuthorizationDenied) Error() string {
	return fmt.Sprintf("principal %s denied on tenant %s: %s", e.PrincipalID, e.TenantID, e.Reason)
}

// IsAuthorizationDenied reports whether err is an authorization failure.
func IsAuthorizationDenied(err error) bool {
	var denied *AuthorizationDenied
	return errors.As(err, &denied)
}

// IsPersistenceError reports whether err is a store failure after retries.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
