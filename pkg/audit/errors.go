package audit

import "errors"

var (
	ErrInvalidEntry         = errors.New("audit: invalid entry")
	ErrUnknownAction        = errors.New("audit: unknown action")
	ErrInvalidDetails       = errors.New("audit: invalid details payload")
	ErrStorageNotAvailable  = errors.New("audit: storage not available")
	ErrStoreFailed          = errors.New("audit: failed to store entry")
	ErrQueryFailed          = errors.New("audit: failed to query entries")
	ErrArchiveFailed        = errors.New("audit: failed to archive entries")
	ErrArchiveNotConfigured = errors.New("audit: archive not configured")
)
