package kvstore

import "errors"

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("kvstore.not_found")

	// ErrQuotaExceeded is returned when a write would exceed the configured size limit.
	ErrQuotaExceeded = errors.New("kvstore.quota_exceeded")

	// ErrUnavailable wraps failures of the underlying medium (disk, network).
	ErrUnavailable = errors.New("kvstore.unavailable")

	// ErrEmptyKey is returned for operations on an empty key.
	ErrEmptyKey = errors.New("kvstore.empty_key")
)
