// Package manager implements the filter manager: the concurrent MVCC
// registry of named bloom filters described by the filter-manager
// specification (§1-§9).
package manager

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nullset-labs/filterd/internal/filter"
)

// NewFilterFunc constructs an unopened Filter payload for name. Tests may
// override Options.NewFilter to inject a fake payload.
type NewFilterFunc func(name string) filter.Filter

func defaultNewFilter(name string) filter.Filter {
	return filter.New(name)
}

// Options configures a FilterManager.
type Options struct {
	DataDir       string
	DefaultConfig filter.Config
	WarnThreshold uint64
	Logger        *slog.Logger
	Metrics       *Metrics
	NewFilter     NewFilterFunc
}

// FilterManager owns the chain of NameSpaceSnapshots, serializes
// mutators, installs new snapshots, and routes per-filter operations
// through read-locked payload access (§2, component D).
type FilterManager struct {
	dataDir       string
	defaultConfig filter.Config
	warnThreshold uint64
	newFilter     NewFilterFunc

	head atomic.Pointer[NameSpaceSnapshot]

	// writeMu serializes mutators (create/drop/clear); vacuumMu
	// guards the deleted-slot scan shared between create and the vacuum
	// pass. Forbidden ordering: vacuum-then-write. Every caller that
	// needs both acquires writeMu first (§5 "Forbidden patterns").
	writeMu  sync.Mutex
	vacuumMu sync.Mutex

	clients *ClientRegistry

	logger  *slog.Logger
	metrics *Metrics

	stopOnce sync.Once
	stopCh   chan struct{}
	vacuumWG sync.WaitGroup
	shutdown atomic.Bool
}

// New constructs a FilterManager with an empty genesis snapshot
// (version 0). Callers typically follow with Discover before serving
// traffic, and StartVacuum to begin background reclamation.
func New(opts Options) *FilterManager {
	if opts.NewFilter == nil {
		opts.NewFilter = defaultNewFilter
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &FilterManager{
		dataDir:       opts.DataDir,
		defaultConfig: opts.DefaultConfig,
		warnThreshold: opts.WarnThreshold,
		newFilter:     opts.NewFilter,
		clients:       newClientRegistry(),
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		stopCh:        make(chan struct{}),
	}
	m.head.Store(newGenesisSnapshot())
	m.metrics.HeadVersion.Set(0)
	return m
}

func (m *FilterManager) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.OperationLatency.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

// Checkpoint registers clientID (generating a fresh identity via
// NewClientID when the caller passes an empty string) and records it
// against the current head version, returning that version (§4.1).
// Idempotent.
func (m *FilterManager) Checkpoint(clientID string) uint64 {
	if clientID == "" {
		clientID = NewClientID()
	}
	version := m.head.Load().version
	m.clients.Checkpoint(clientID, version)
	m.metrics.Checkpoints.WithLabelValues(clientID).Inc()
	return version
}

// Leave removes the caller's registry record if present (§4.1). Idempotent.
func (m *FilterManager) Leave(clientID string) {
	m.clients.Leave(clientID)
	m.metrics.Leaves.WithLabelValues(clientID).Inc()
}

func (m *FilterManager) lookupActive(name string) (*FilterEntry, error) {
	head := m.head.Load()
	entry, ok := head.index.Get(name)
	if !ok || !entry.isActive.Load() {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return entry, nil
}

// CheckKeys finds the active entry for name, takes its rwlock in shared
// mode, and reports presence for each key (§4.1). A probe failure halts
// the scan: results up to (not including) the failing index are
// returned alongside an Internal error (§7).
func (m *FilterManager) CheckKeys(name string, keys [][]byte) (results []bool, err error) {
	start := time.Now()
	defer func() { m.observe("check_keys", start, err) }()

	entry, err := m.lookupActive(name)
	if err != nil {
		return nil, err
	}

	entry.rwlock.RLock()
	defer entry.rwlock.RUnlock()

	results = make([]bool, len(keys))
	for i, k := range keys {
		present, probeErr := entry.payload.Contains(k)
		if probeErr != nil {
			return results[:i], fmt.Errorf("check_keys %q: %w: %w", name, ErrInternal, probeErr)
		}
		results[i] = present
	}
	entry.isHot.Store(true)
	return results, nil
}

// SetKeys finds the active entry for name, takes its rwlock in exclusive
// mode, and inserts each key, reporting whether it was newly added
// (§4.1). An insert failure halts the scan: results up to (not
// including) the failing index are returned alongside an Internal error
// (§7).
func (m *FilterManager) SetKeys(name string, keys [][]byte) (results []bool, err error) {
	start := time.Now()
	defer func() { m.observe("set_keys", start, err) }()

	entry, err := m.lookupActive(name)
	if err != nil {
		return nil, err
	}

	entry.rwlock.Lock()
	defer entry.rwlock.Unlock()

	results = make([]bool, len(keys))
	for i, k := range keys {
		alreadyPresent, probeErr := entry.payload.Contains(k)
		if probeErr != nil {
			return results[:i], fmt.Errorf("set_keys %q: %w: %w", name, ErrInternal, probeErr)
		}
		if addErr := entry.payload.Add(k); addErr != nil {
			return results[:i], fmt.Errorf("set_keys %q: %w: %w", name, ErrInternal, addErr)
		}
		results[i] = !alreadyPresent
	}
	entry.isHot.Store(true)
	return results, nil
}

// Flush locates the entry and invokes the payload's flush with no
// further locking: flush is payload-internal concurrent-safe (§4.1).
func (m *FilterManager) Flush(name string) (err error) {
	start := time.Now()
	defer func() { m.observe("flush", start, err) }()

	entry, err := m.lookupActive(name)
	if err != nil {
		return err
	}
	if err := entry.payload.Flush(); err != nil {
		return fmt.Errorf("flush %q: %w: %w", name, ErrInternal, err)
	}
	return nil
}

// Create installs a new active, hot FilterEntry for name, failing
// AlreadyExists if one is already present on the head (active or not)
// and PendingDelete if a retired snapshot still carries a deletion for
// name (§4.1).
func (m *FilterManager) Create(name string, customConfig *filter.Config) (err error) {
	start := time.Now()
	defer func() { m.observe("create", start, err) }()

	if m.shutdown.Load() {
		return ErrShutdown
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	head := m.head.Load()
	if _, ok := head.index.Get(name); ok {
		return fmt.Errorf("%q: %w", name, ErrAlreadyExists)
	}

	m.vacuumMu.Lock()
	pending := head.hasPendingDelete(name)
	m.vacuumMu.Unlock()
	if pending {
		return fmt.Errorf("%q: %w", name, ErrPendingDelete)
	}

	entry := newFilterEntry(nil, customConfigOrNil(customConfig))
	cfg := entry.config(m.defaultConfig)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("create %q: %w: %w", name, ErrInternal, err)
	}

	payload := m.newFilter(name)
	dir := filterDir(m.dataDir, name)
	if err := payload.Open(dir, cfg); err != nil {
		return fmt.Errorf("create %q: %w: %w", name, ErrInternal, err)
	}
	entry.payload = payload

	newIndex := head.index.Clone()
	newIndex.Set(name, entry)

	newSnap := &NameSpaceSnapshot{
		version:     head.version + 1,
		index:       newIndex,
		predecessor: head,
	}
	m.head.Store(newSnap)
	m.metrics.HeadVersion.Set(float64(newSnap.version))
	return nil
}

func customConfigOrNil(cfg *filter.Config) *filter.Config {
	if cfg == nil {
		return nil
	}
	cp := *cfg
	return &cp
}

func filterDir(dataDir, name string) string {
	return filepath.Join(dataDir, discoveryPrefix+name)
}

// Drop marks name's entry inactive and retires it into the current
// head's deleted slot, publishing a new head with name removed (§4.1).
func (m *FilterManager) Drop(name string) (err error) {
	start := time.Now()
	defer func() { m.observe("drop", start, err) }()

	if m.shutdown.Load() {
		return ErrShutdown
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	head := m.head.Load()
	entry, ok := head.index.Get(name)
	if !ok || !entry.isActive.Load() {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}

	entry.isActive.Store(false)
	entry.shouldDelete.Store(true)

	newIndex := head.index.Clone()
	newIndex.Delete(name)

	m.vacuumMu.Lock()
	head.deleted = entry
	head.deletedName = name
	m.vacuumMu.Unlock()

	newSnap := &NameSpaceSnapshot{
		version:     head.version + 1,
		index:       newIndex,
		predecessor: head,
	}
	m.head.Store(newSnap)
	m.metrics.HeadVersion.Set(float64(newSnap.version))
	return nil
}

// Unmap releases a non-in-memory-only filter's in-memory state while
// leaving its on-disk image and its entry in place (§4.1).
func (m *FilterManager) Unmap(name string) (err error) {
	start := time.Now()
	defer func() { m.observe("unmap", start, err) }()

	entry, err := m.lookupActive(name)
	if err != nil {
		return err
	}
	if entry.payload.InMemoryOnly() {
		return nil
	}

	entry.rwlock.Lock()
	defer entry.rwlock.Unlock()
	if err := entry.payload.Close(); err != nil {
		return fmt.Errorf("unmap %q: %w: %w", name, ErrInternal, err)
	}
	return nil
}

// Clear behaves like Drop except the reclaimed entry is closed rather
// than deleted, and it is refused unless the payload reports itself
// proxied (§4.1).
func (m *FilterManager) Clear(name string) (err error) {
	start := time.Now()
	defer func() { m.observe("clear", start, err) }()

	if m.shutdown.Load() {
		return ErrShutdown
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	head := m.head.Load()
	entry, ok := head.index.Get(name)
	if !ok || !entry.isActive.Load() {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if !entry.payload.IsProxied() {
		return fmt.Errorf("%q: %w", name, ErrNotProxied)
	}

	entry.isActive.Store(false)
	entry.shouldDelete.Store(false)

	newIndex := head.index.Clone()
	newIndex.Delete(name)

	m.vacuumMu.Lock()
	head.deleted = entry
	head.deletedName = name
	m.vacuumMu.Unlock()

	newSnap := &NameSpaceSnapshot{
		version:     head.version + 1,
		index:       newIndex,
		predecessor: head,
	}
	m.head.Store(newSnap)
	m.metrics.HeadVersion.Set(float64(newSnap.version))
	return nil
}

// List iterates the head snapshot's map, prefix-restricted if prefix is
// non-empty, emitting the names of active entries (§4.1).
func (m *FilterManager) List(prefix string) []string {
	head := m.head.Load()
	var names []string
	collect := func(name string, entry *FilterEntry) bool {
		if entry.isActive.Load() {
			names = append(names, name)
		}
		return true
	}
	if prefix == "" {
		head.index.Ascend(collect)
	} else {
		head.index.AscendPrefix(prefix, collect)
	}
	return names
}

// ListCold iterates the head snapshot's map; for every entry, if it is
// hot, clears the hot flag and skips it; else, if proxied, skips it;
// else emits the name. This call clears hotness for every hot entry
// examined (§4.1).
func (m *FilterManager) ListCold() []string {
	head := m.head.Load()
	var names []string
	head.index.Ascend(func(name string, entry *FilterEntry) bool {
		if !entry.isActive.Load() {
			return true
		}
		if entry.isHot.CompareAndSwap(true, false) {
			return true
		}
		if entry.payload.IsProxied() {
			return true
		}
		names = append(names, name)
		return true
	})
	return names
}

// WithEntry calls fn(name, payload) for out-of-band reads (metrics); no
// rwlock is taken and fn must not mutate filter state (§4.1).
func (m *FilterManager) WithEntry(name string, fn func(name string, payload filter.Filter)) error {
	entry, err := m.lookupActive(name)
	if err != nil {
		return err
	}
	fn(name, entry.payload)
	return nil
}

// VacuumNow forces a full reclamation up to head.version, bypassing the
// checkpoint watermark. Must not be called while workers are live (§4.1).
func (m *FilterManager) VacuumNow() {
	m.runVacuumPass(true)
}

// HeadVersion reports the current head snapshot's version, for tests and
// operational inspection.
func (m *FilterManager) HeadVersion() uint64 {
	return m.head.Load().version
}

// ClientCount reports the number of registered clients.
func (m *FilterManager) ClientCount() int {
	return m.clients.Len()
}

// MetricsRegistry exposes the manager's private Prometheus registry, for
// wiring into an admin HTTP surface's /metrics handler.
func (m *FilterManager) MetricsRegistry() *prometheus.Registry {
	return m.metrics.Registry()
}
