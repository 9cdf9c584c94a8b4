package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrAlreadyRevoked indicates a revocation race was lost: another caller
	// claimed the token first.
	ErrAlreadyRevoked = errors.New("repository: already revoked")
	// ErrDuplicate indicates a durable uniqueness constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate")
)
