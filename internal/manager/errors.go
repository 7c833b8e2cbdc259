package manager

import "errors"

// Error kinds named in §7. All are surfaced verbatim to callers; the
// manager never retries internally.
var (
	// ErrNotFound: no active entry for the given name on the current head.
	ErrNotFound = errors.New("filter manager: no active entry for name")

	// ErrAlreadyExists: an entry (active or not) for the given name is
	// already present on the current head.
	ErrAlreadyExists = errors.New("filter manager: entry already exists for name")

	// ErrPendingDelete: a retired snapshot still carries a deletion for
	// the given name; creation is refused until the vacuum reclaims it.
	ErrPendingDelete = errors.New("filter manager: name has a pending delete")

	// ErrNotProxied: clear was refused because the payload is not
	// currently proxied.
	ErrNotProxied = errors.New("filter manager: entry is not proxied")

	// ErrInternal: a payload or name-map operation failed.
	ErrInternal = errors.New("filter manager: internal error")

	// ErrShutdown is returned by mutators called after Close.
	ErrShutdown = errors.New("filter manager: manager is shut down")
)
