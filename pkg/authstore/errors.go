package authstore

import "errors"

var (
	// ErrCorruptValue marks a persisted value that cannot be decoded. It is
	// only logged; readers see the value as absent.
	ErrCorruptValue = errors.New("authstore.corrupt_value")

	// ErrExpired marks a credential read past its expiry.
	ErrExpired = errors.New("authstore.expired")
)
