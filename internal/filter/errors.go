package filter

import "errors"

var (
	// ErrInvalidCapacity is returned when a Config's Capacity is zero.
	ErrInvalidCapacity = errors.New("filter: capacity must be > 0")

	// ErrInvalidFalsePositiveRate is returned when a Config's
	// FalsePositiveRate falls outside (0, 1).
	ErrInvalidFalsePositiveRate = errors.New("filter: false_positive_rate must be in (0, 1)")

	// ErrClosed is returned by operations attempted on a filter after
	// Close has been called on it.
	ErrClosed = errors.New("filter: payload is closed")
)
