package binder

import "errors"

var (
	// ErrBinderNotApplicable tells handler.Wrap to skip the binder.
	ErrBinderNotApplicable  = errors.New("binder: not applicable")
	ErrUnsupportedMediaType = errors.New("binder: unsupported media type")
	ErrMissingContentType   = errors.New("binder: missing content type")
	ErrFailedToParseJSON    = errors.New("binder: failed to parse JSON request body")
	ErrFailedToParseQuery   = errors.New("binder: failed to parse query parameters")
)
