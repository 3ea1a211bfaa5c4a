package binder

import (
	"errors"
	"fmt"
)

var (
	// ErrBindFailed is wrapped by every binding failure.
	ErrBindFailed = errors.New("binder: bind failed")

	// ErrBinderNotApplicable tells the caller to skip a binder for this request.
	ErrBinderNotApplicable = errors.New("binder: not applicable")

	ErrUnsupportedMediaType = fmt.Errorf("%w: unsupported media type", ErrBindFailed)
	ErrMissingContentType   = fmt.Errorf("%w: missing content type", ErrBindFailed)
	ErrFailedToParseJSON    = fmt.Errorf("%w: failed to parse JSON request body", ErrBindFailed)
	ErrFailedToParseQuery   = fmt.Errorf("%w: failed to parse query parameters", ErrBindFailed)
	ErrFailedToParsePath    = fmt.Errorf("%w: failed to parse path parameters", ErrBindFailed)
)
