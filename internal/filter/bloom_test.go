package filter_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullset-labs/filterd/internal/filter"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, filter.Default().Validate())

	cases := []filter.Config{
		{Capacity: 0, FalsePositiveRate: 0.01},
		{Capacity: 100, FalsePositiveRate: 0},
		{Capacity: 100, FalsePositiveRate: 1},
		{Capacity: 100, FalsePositiveRate: -0.5},
	}
	for _, c := range cases {
		assert.Error(t, c.Validate())
	}
}

func TestBloomFilterAddContains(t *testing.T) {
	dir := t.TempDir()
	f := filter.New("widgets")
	require.NoError(t, f.Open(dir, filter.Config{Capacity: 1000, FalsePositiveRate: 0.01}))
	defer f.Close()

	present, err := f.Contains([]byte("sku-1"))
	require.NoError(t, err)
	assert.False(t, present)

	require.NoError(t, f.Add([]byte("sku-1")))

	present, err = f.Contains([]byte("sku-1"))
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "widgets", f.Name())
	assert.False(t, f.IsProxied())
	assert.False(t, f.InMemoryOnly())
}

func TestBloomFilterFlushAndReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := filter.Config{Capacity: 1000, FalsePositiveRate: 0.01}

	f1 := filter.New("widgets")
	require.NoError(t, f1.Open(dir, cfg))
	require.NoError(t, f1.Add([]byte("sku-1")))
	require.NoError(t, f1.Flush())
	require.NoError(t, f1.Close())

	assert.FileExists(t, filepath.Join(dir, "filter.bloom"))

	f2 := filter.New("widgets")
	require.NoError(t, f2.Open(dir, cfg))

	present, err := f2.Contains([]byte("sku-1"))
	require.NoError(t, err)
	assert.True(t, present)

	present, err = f2.Contains([]byte("sku-2"))
	require.NoError(t, err)
	assert.False(t, present)
}

func TestBloomFilterInMemoryOnlyFlushIsNoop(t *testing.T) {
	dir := t.TempDir()
	f := filter.New("ephemeral")
	cfg := filter.Config{Capacity: 1000, FalsePositiveRate: 0.01, InMemoryOnly: true}
	require.NoError(t, f.Open(dir, cfg))
	require.NoError(t, f.Add([]byte("x")))
	require.NoError(t, f.Flush())
	assert.NoFileExists(t, filepath.Join(dir, "filter.bloom"))
	assert.True(t, f.InMemoryOnly())
}

func TestBloomFilterProxied(t *testing.T) {
	dir := t.TempDir()
	f := filter.New("mirror")
	require.NoError(t, f.Open(dir, filter.Config{Capacity: 1000, FalsePositiveRate: 0.01, Upstream: "upstream-cluster"}))
	assert.True(t, f.IsProxied())
}

func TestBloomFilterDelete(t *testing.T) {
	dir := t.TempDir()
	f := filter.New("widgets")
	cfg := filter.Config{Capacity: 1000, FalsePositiveRate: 0.01}
	require.NoError(t, f.Open(dir, cfg))
	require.NoError(t, f.Flush())
	assert.FileExists(t, filepath.Join(dir, "filter.bloom"))

	require.NoError(t, f.Delete())
	assert.NoDirExists(t, dir)
}

func TestBloomFilterClosedOperationsAreSafe(t *testing.T) {
	dir := t.TempDir()
	f := filter.New("widgets")
	require.NoError(t, f.Open(dir, filter.Config{Capacity: 1000, FalsePositiveRate: 0.01}))
	require.NoError(t, f.Close())

	present, err := f.Contains([]byte("sku-1"))
	assert.False(t, present)
	assert.ErrorIs(t, err, filter.ErrClosed)

	assert.ErrorIs(t, f.Add([]byte("sku-1")), filter.ErrClosed)
	assert.ErrorIs(t, f.Flush(), filter.ErrClosed)
}
