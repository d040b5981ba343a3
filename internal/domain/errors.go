package domain

import "errors"

var (
	// ErrNotFound reports that a provider answered with a null result,
	// typically a pending or unknown transaction.
	ErrNotFound = errors.New("not found")

	// ErrInvalidHash reports a transaction hash that is not 0x followed
	// by 64 hex characters.
	ErrInvalidHash = errors.New("invalid transaction hash: expected 0x followed by 64 hex characters")
)
