package filter

import "fmt"

// Default sizing used when create is called with no custom_config (§4.1).
const (
	DefaultCapacity          uint64  = 100_000
	DefaultFalsePositiveRate float64 = 0.001
)

// Config is the per-filter custom_config named in §4.1's create operation
// and specified further in SPEC_FULL §10.7. A zero Config is not valid;
// callers that want the manager's defaults omit custom_config entirely
// rather than passing a zero Config.
type Config struct {
	Capacity          uint64  `mapstructure:"capacity"`
	FalsePositiveRate float64 `mapstructure:"false_positive_rate"`

	// InMemoryOnly, when true, skips on-disk persistence for this filter;
	// Filter.InMemoryOnly() reports it and Flush becomes a no-op.
	InMemoryOnly bool `mapstructure:"in_memory_only"`

	// Upstream names the filter this one proxies, if any (SPEC_FULL
	// §10.7). A non-empty value makes Filter.IsProxied() report true;
	// check_keys/set_keys still operate on the local bloom filter.
	Upstream string `mapstructure:"upstream"`
}

// Validate checks the config's invariants. Called both on the daemon's
// default filter config and on every create's custom_config.
func (c Config) Validate() error {
	if c.Capacity == 0 {
		return ErrInvalidCapacity
	}
	if c.FalsePositiveRate <= 0 || c.FalsePositiveRate >= 1 {
		return ErrInvalidFalsePositiveRate
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("capacity=%d fp_rate=%g in_memory_only=%t", c.Capacity, c.FalsePositiveRate, c.InMemoryOnly)
}

// Default returns the package-level default Config (§4.1 create defaults).
func Default() Config {
	return Config{
		Capacity:          DefaultCapacity,
		FalsePositiveRate: DefaultFalsePositiveRate,
	}
}
