package manager_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullset-labs/filterd/internal/filter"
	"github.com/nullset-labs/filterd/internal/manager"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) *manager.FilterManager {
	t.Helper()
	dir := t.TempDir()
	m := manager.New(manager.Options{
		DataDir:       dir,
		DefaultConfig: filter.Config{Capacity: 10_000, FalsePositiveRate: 0.01},
		WarnThreshold: 32,
		Logger:        testLogger(),
	})
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// Seed scenario 1: startup empty.
func TestDiscoverEmptyDataDir(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Discover())
	assert.Equal(t, uint64(0), m.HeadVersion())
	assert.Empty(t, m.List(""))
}

// Seed scenario 2: create-set-check.
func TestCreateSetCheck(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Create("foo", nil))

	results, err := m.SetKeys("foo", [][]byte{[]byte("a"), []byte("b"), []byte("a")})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false}, results)

	results, err = m.CheckKeys("foo", [][]byte{[]byte("a"), []byte("c")})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, results)
}

// Seed scenario 3: drop-then-create.
func TestDropThenCreatePendingDeleteThenVacuum(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Create("x", nil))
	require.NoError(t, m.Drop("x"))

	err := m.Create("x", nil)
	assert.ErrorIs(t, err, manager.ErrPendingDelete)

	m.VacuumNow()

	assert.NoError(t, m.Create("x", nil))
}

// Seed scenario 4: list with prefix.
func TestListPrefix(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Create("ab", nil))
	require.NoError(t, m.Create("ac", nil))
	require.NoError(t, m.Create("bd", nil))

	assert.ElementsMatch(t, []string{"ab", "ac"}, m.List("a"))
	assert.ElementsMatch(t, []string{"ab", "ac", "bd"}, m.List(""))
}

// Seed scenario 5: cold then hot.
func TestListCold(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Create("h", nil))

	_, err := m.CheckKeys("h", [][]byte{[]byte("k")})
	require.NoError(t, err)

	assert.Empty(t, m.ListCold(), "entry was hot from create and check_keys, must be cleared and skipped")
	assert.Equal(t, []string{"h"}, m.ListCold(), "second call with no intervening reads must report it cold")
}

// Seed scenario 6: version reclamation across two clients.
func TestVersionReclamationAcrossClients(t *testing.T) {
	m := newTestManager(t)

	m.Checkpoint("A")
	m.Checkpoint("B")

	for i := 0; i < 5; i++ {
		name := filepath.Base(t.TempDir())
		require.NoError(t, m.Create(name, nil))
		require.NoError(t, m.Drop(name))
	}

	m.Leave("B")
	aVersion := m.Checkpoint("A")

	headBefore := m.HeadVersion()
	assert.Equal(t, aVersion, headBefore)

	m.VacuumNow()
	assert.Equal(t, 1, m.ClientCount())
}

func TestCreateAlreadyExists(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Create("dup", nil))
	assert.ErrorIs(t, m.Create("dup", nil), manager.ErrAlreadyExists)
}

func TestDropNotFound(t *testing.T) {
	m := newTestManager(t)
	assert.ErrorIs(t, m.Drop("missing"), manager.ErrNotFound)
}

func TestCheckKeysNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CheckKeys("missing", [][]byte{[]byte("a")})
	assert.ErrorIs(t, err, manager.ErrNotFound)
}

func TestClearRequiresProxied(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Create("local-only", nil))
	assert.ErrorIs(t, m.Clear("local-only"), manager.ErrNotProxied)
}

func TestClearProxiedSucceeds(t *testing.T) {
	m := newTestManager(t)
	cfg := filter.Config{Capacity: 10_000, FalsePositiveRate: 0.01, Upstream: "upstream-a"}
	require.NoError(t, m.Create("mirror", &cfg))
	require.NoError(t, m.Clear("mirror"))

	_, err := m.CheckKeys("mirror", [][]byte{[]byte("a")})
	assert.ErrorIs(t, err, manager.ErrNotFound)
}

func TestUnmapInMemoryOnlyIsNoop(t *testing.T) {
	m := newTestManager(t)
	cfg := filter.Config{Capacity: 10_000, FalsePositiveRate: 0.01, InMemoryOnly: true}
	require.NoError(t, m.Create("mem", &cfg))
	assert.NoError(t, m.Unmap("mem"))
}

func TestFlushPersistsAcrossDiscovery(t *testing.T) {
	dir := t.TempDir()
	m1 := manager.New(manager.Options{
		DataDir:       dir,
		DefaultConfig: filter.Config{Capacity: 10_000, FalsePositiveRate: 0.01},
		Logger:        testLogger(),
	})
	require.NoError(t, m1.Create("persisted", nil))
	_, err := m1.SetKeys("persisted", [][]byte{[]byte("k1")})
	require.NoError(t, err)
	require.NoError(t, m1.Flush("persisted"))
	require.NoError(t, m1.Close())

	m2 := manager.New(manager.Options{
		DataDir:       dir,
		DefaultConfig: filter.Config{Capacity: 10_000, FalsePositiveRate: 0.01},
		Logger:        testLogger(),
	})
	require.NoError(t, m2.Discover())
	defer m2.Close()

	results, err := m2.CheckKeys("persisted", [][]byte{[]byte("k1")})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, results)
}

func TestDiscoverIgnoresNonMatchingDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-filter"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bloomd."), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bloomd.ok"), 0o755))

	m := manager.New(manager.Options{
		DataDir:       dir,
		DefaultConfig: filter.Config{Capacity: 10_000, FalsePositiveRate: 0.01},
		Logger:        testLogger(),
	})
	defer m.Close()

	require.NoError(t, m.Discover())
	assert.Equal(t, []string{"ok"}, m.List(""))
}

// Read/write exclusion (§8): concurrent SetKeys on the same filter lose no
// key, so every key is reported present afterwards; unsynchronized payload
// access would also be flagged under -race.
func TestConcurrentSetKeysAreExclusive(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Create("concurrent", nil))

	const goroutines = 16
	const keysPerGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			keys := make([][]byte, keysPerGoroutine)
			for i := range keys {
				keys[i] = []byte{byte(g), byte(i)}
			}
			_, err := m.SetKeys("concurrent", keys)
			assert.NoError(t, err)
		}(g)
	}
	wg.Wait()

	for g := 0; g < goroutines; g++ {
		for i := 0; i < keysPerGoroutine; i++ {
			results, err := m.CheckKeys("concurrent", [][]byte{{byte(g), byte(i)}})
			require.NoError(t, err)
			assert.True(t, results[0])
		}
	}
}

// Monotone versions (§8): installed snapshots carry strictly increasing,
// contiguous versions starting at 0.
func TestMonotoneVersions(t *testing.T) {
	m := newTestManager(t)
	assert.Equal(t, uint64(0), m.HeadVersion())

	require.NoError(t, m.Create("a", nil))
	assert.Equal(t, uint64(1), m.HeadVersion())

	require.NoError(t, m.Create("b", nil))
	assert.Equal(t, uint64(2), m.HeadVersion())

	require.NoError(t, m.Drop("a"))
	assert.Equal(t, uint64(3), m.HeadVersion())
}

// Idempotent checkpoint/leave (§8).
func TestIdempotentCheckpointLeave(t *testing.T) {
	m := newTestManager(t)
	m.Checkpoint("c1")
	m.Checkpoint("c1")
	assert.Equal(t, 1, m.ClientCount())

	m.Leave("c1")
	m.Leave("c1")
	assert.Equal(t, 0, m.ClientCount())
}

// failingFilter wraps a real BloomFilter but fails Contains/Add on a
// chosen key, letting tests exercise the halt-at-failing-index path.
type failingFilter struct {
	*filter.BloomFilter
	failOn string
}

func (f *failingFilter) Contains(key []byte) (bool, error) {
	if string(key) == f.failOn {
		return false, assert.AnError
	}
	return f.BloomFilter.Contains(key)
}

func (f *failingFilter) Add(key []byte) error {
	if string(key) == f.failOn {
		return assert.AnError
	}
	return f.BloomFilter.Add(key)
}

func newFailingTestManager(t *testing.T, failOn string) *manager.FilterManager {
	t.Helper()
	dir := t.TempDir()
	m := manager.New(manager.Options{
		DataDir:       dir,
		DefaultConfig: filter.Config{Capacity: 10_000, FalsePositiveRate: 0.01},
		WarnThreshold: 32,
		Logger:        testLogger(),
		NewFilter: func(name string) filter.Filter {
			return &failingFilter{BloomFilter: filter.New(name), failOn: failOn}
		},
	})
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// A probe failure mid-array halts CheckKeys and retains the results
// gathered before the failing key, reporting Internal (§7).
func TestCheckKeysHaltsOnProbeFailure(t *testing.T) {
	m := newFailingTestManager(t, "bad")
	require.NoError(t, m.Create("probe", nil))

	results, err := m.CheckKeys("probe", [][]byte{[]byte("ok-1"), []byte("bad"), []byte("ok-2")})
	require.Error(t, err)
	assert.ErrorIs(t, err, manager.ErrInternal)
	require.Len(t, results, 1)
}

// An insert failure mid-array halts SetKeys and retains the results
// gathered before the failing key, reporting Internal (§7).
func TestSetKeysHaltsOnInsertFailure(t *testing.T) {
	m := newFailingTestManager(t, "bad")
	require.NoError(t, m.Create("probe", nil))

	results, err := m.SetKeys("probe", [][]byte{[]byte("ok-1"), []byte("bad"), []byte("ok-2")})
	require.Error(t, err)
	assert.ErrorIs(t, err, manager.ErrInternal)
	require.Len(t, results, 1)
}

func TestWithEntryPassesPayloadToCallback(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Create("probe", nil))
	_, err := m.SetKeys("probe", [][]byte{[]byte("k")})
	require.NoError(t, err)

	var seen bool
	err = m.WithEntry("probe", func(name string, payload filter.Filter) {
		seen, _ = payload.Contains([]byte("k"))
	})
	require.NoError(t, err)
	assert.True(t, seen)
}
