package entity

import "errors"

var (
	ErrNotFound      = errors.New("entity: not found")
	ErrAlreadyExists = errors.New("entity: already exists")
	ErrInvalidKind   = errors.New("entity: invalid kind")
)
