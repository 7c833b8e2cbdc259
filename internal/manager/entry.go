package manager

import (
	"sync"
	"sync/atomic"

	"github.com/nullset-labs/filterd/internal/filter"
)

// FilterEntry is a single filter plus its per-filter reader/writer lock
// and lifecycle flags (§3). The rwlock is strictly local to payload
// access and is never held across a call back into the manager (§4.2).
type FilterEntry struct {
	payload      filter.Filter
	customConfig *filter.Config
	rwlock       sync.RWMutex
	isActive     atomic.Bool
	isHot        atomic.Bool
	shouldDelete atomic.Bool
}

func newFilterEntry(payload filter.Filter, customConfig *filter.Config) *FilterEntry {
	e := &FilterEntry{payload: payload, customConfig: customConfig}
	e.isActive.Store(true)
	e.isHot.Store(true)
	return e
}

// config resolves the effective filter.Config for e: its own customConfig
// override if one was supplied at Create, otherwise defaultConfig.
func (e *FilterEntry) config(defaultConfig filter.Config) filter.Config {
	if e.customConfig != nil {
		return *e.customConfig
	}
	return defaultConfig
}
