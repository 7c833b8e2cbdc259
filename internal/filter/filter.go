package filter

// Filter is the payload contract named in §3/§4.2: the thing a FilterEntry
// guards with its per-entry RWMutex. Implementations are free to back
// membership testing with whatever structure they like; the manager never
// reaches past this interface.
//
// Open is called at most once per Filter value, by Create or by Discovery.
// Contains and Add may be called concurrently with each other only under
// the caller's own synchronization (the manager serializes Add under the
// entry's write lock and allows concurrent Contains under its read lock).
type Filter interface {
	// Open prepares the filter for use, loading persisted state from dir
	// if one exists there and cfg.InMemoryOnly is false.
	Open(dir string, cfg Config) error

	// Contains reports whether key may have been added (bloom semantics:
	// false means definitely absent, true means possibly present). An
	// error means the probe itself failed (e.g. the filter is closed);
	// the bool return is meaningless in that case.
	Contains(key []byte) (bool, error)

	// Add records key's presence. An error means the insert failed and
	// key's presence is not guaranteed to be recorded.
	Add(key []byte) error

	// Flush persists current state to disk. A no-op when InMemoryOnly.
	Flush() error

	// Close releases any resources (open file handles). Flush is not
	// implied; callers that want durability call Flush first.
	Close() error

	// Delete removes persisted on-disk state, if any. Called by vacuum
	// once a FilterEntry has been reclaimed below min_vsn.
	Delete() error

	// Name is the filter's name as recorded at Open.
	Name() string

	// IsProxied reports whether this filter was opened with an upstream
	// name (SPEC_FULL §10.7); no proxying behavior is implemented, only
	// the predicate.
	IsProxied() bool

	// InMemoryOnly reports whether this filter skips persistence.
	InMemoryOnly() bool
}
