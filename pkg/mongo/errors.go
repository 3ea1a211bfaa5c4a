package mongo

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("mongo: MONGODB_URL is required for the audit mirror")
	ErrConnectFailed      = errors.New("mongo: audit mirror unreachable")
	ErrPrimaryUnavailable = errors.New("mongo: audit mirror has no writable primary")
)
