package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
)

// dataFileName is the on-disk payload file written under a filter's
// directory (discovery.go recognizes the parent "bloomd.<name>" directory,
// not this file, per §4.5).
const dataFileName = "filter.bloom"

// BloomFilter is the concrete Filter backed by bits-and-blooms/bloom/v3.
// It is safe for concurrent Contains calls; Add calls must be externally
// serialized against each other and against Contains — the FilterEntry's
// RWMutex provides that (§4.2).
type BloomFilter struct {
	name string
	dir  string
	cfg  Config

	bf *bloom.BloomFilter

	closed atomic.Bool
}

// New constructs an unopened BloomFilter for name.
func New(name string) *BloomFilter {
	return &BloomFilter{name: name}
}

func (f *BloomFilter) Open(dir string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	f.dir = dir
	f.cfg = cfg
	f.bf = bloom.NewWithEstimates(uint(cfg.Capacity), cfg.FalsePositiveRate)

	if cfg.InMemoryOnly {
		return nil
	}

	path := filepath.Join(dir, dataFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("filter %s: read payload: %w", f.name, err)
	}

	loaded := &bloom.BloomFilter{}
	if err := loaded.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("filter %s: decode payload: %w", f.name, err)
	}
	f.bf = loaded
	return nil
}

func (f *BloomFilter) Contains(key []byte) (bool, error) {
	if f.closed.Load() {
		return false, ErrClosed
	}
	return f.bf.Test(key), nil
}

func (f *BloomFilter) Add(key []byte) error {
	if f.closed.Load() {
		return ErrClosed
	}
	f.bf.Add(key)
	return nil
}

func (f *BloomFilter) Flush() error {
	if f.closed.Load() {
		return ErrClosed
	}
	if f.cfg.InMemoryOnly {
		return nil
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("filter %s: mkdir: %w", f.name, err)
	}
	data, err := f.bf.MarshalBinary()
	if err != nil {
		return fmt.Errorf("filter %s: encode payload: %w", f.name, err)
	}
	path := filepath.Join(f.dir, dataFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("filter %s: write payload: %w", f.name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("filter %s: rename payload: %w", f.name, err)
	}
	return nil
}

func (f *BloomFilter) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *BloomFilter) Delete() error {
	if f.dir == "" {
		return nil
	}
	if err := os.RemoveAll(f.dir); err != nil {
		return fmt.Errorf("filter %s: delete payload dir: %w", f.name, err)
	}
	return nil
}

func (f *BloomFilter) Name() string { return f.name }

func (f *BloomFilter) IsProxied() bool { return f.cfg.Upstream != "" }

func (f *BloomFilter) InMemoryOnly() bool { return f.cfg.InMemoryOnly }

var _ Filter = (*BloomFilter)(nil)
