package reconcile

import "errors"

var (
	ErrIdentityMismatch = errors.New("reconcile: requesting identity does not match target")
	ErrMissingEventID   = errors.New("reconcile: event id is required")
)
