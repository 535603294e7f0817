package file

import "errors"

var (
	ErrInvalidConfig      = errors.New("file: invalid storage configuration")
	ErrFailedToLoadConfig = errors.New("file: failed to load AWS config")
	ErrInvalidKey         = errors.New("file: invalid object key")
	ErrFileNotFound       = errors.New("file: object not found")
	ErrAccessDenied       = errors.New("file: access denied")
	ErrServiceUnavailable = errors.New("file: storage temporarily unavailable")
	ErrFailedToPresign    = errors.New("file: failed to presign download")
)
