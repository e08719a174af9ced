package domain

import "errors"

var (
	ErrMissingImage    = errors.New("image is required")
	ErrMissingEmail    = errors.New("email is required")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrProviderFailure = errors.New("provider failure")
	ErrNotFound        = errors.New("not found")
)
