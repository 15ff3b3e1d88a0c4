package scanning

import (
	"fmt"
	"time"

	"github.com/nvestad/portsleuth/internal/errors"
)

// ScanConfig holds the validated parameters of one scan run. Construct it
// through NewScanConfig; a config that exists has already passed validation
// and is not modified afterwards.
type ScanConfig struct {
	// Target is the host to scan, a hostname or IP address.
	Target string

	// Mode selects the port set.
	Mode ScanMode

	// Timeout is the per-port connect timeout.
	Timeout time.Duration

	// Parallel enables concurrent probing with ThreadCount workers.
	Parallel bool

	// ThreadCount is the worker count for parallel scans. Clamped to
	// [1, MaxThreadCount] during construction.
	ThreadCount int

	// DelayBetweenProbes inserts a jittered pause before each probe. A
	// nonzero delay selects the stealth strategy.
	DelayBetweenProbes time.Duration

	// RandomizeSourcePort binds each probe to a random local port. Selects
	// the stealth strategy.
	RandomizeSourcePort bool

	// DetectVersions enables banner-based service detection on open ports.
	DetectVersions bool

	// DetectOS enables SMB-based OS fingerprinting on open ports.
	DetectOS bool
}

// Option adjusts a ScanConfig during construction.
type Option func(*ScanConfig)

// WithTimeout sets the per-port connect timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *ScanConfig) { c.Timeout = timeout }
}

// WithParallel enables parallel probing with the given worker count.
func WithParallel(threads int) Option {
	return func(c *ScanConfig) {
		c.Parallel = true
		c.ThreadCount = threads
	}
}

// WithDelay sets the jittered inter-probe delay.
func WithDelay(delay time.Duration) Option {
	return func(c *ScanConfig) { c.DelayBetweenProbes = delay }
}

// WithRandomSourcePort enables random local port binding per probe.
func WithRandomSourcePort() Option {
	return func(c *ScanConfig) { c.RandomizeSourcePort = true }
}

// WithDetection enables service and OS detection on open ports.
func WithDetection(versions, os bool) Option {
	return func(c *ScanConfig) {
		c.DetectVersions = versions
		c.DetectOS = os
	}
}

// NewScanConfig builds and validates a scan configuration. Validation happens
// exactly once, here; callers receive a config that is ready to run.
func NewScanConfig(target string, mode ScanMode, opts ...Option) (*ScanConfig, error) {
	cfg := &ScanConfig{
		Target:      target,
		Mode:        mode,
		Timeout:     DefaultTimeout,
		ThreadCount: DefaultThreadCount,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Clamp rather than reject: an out-of-range worker count is a tuning
	// mistake, not a broken scan.
	if cfg.Parallel {
		if cfg.ThreadCount < 1 {
			cfg.ThreadCount = 1
		}
		if cfg.ThreadCount > MaxThreadCount {
			cfg.ThreadCount = MaxThreadCount
		}
	}

	return cfg, nil
}

func (c *ScanConfig) validate() error {
	if c.Target == "" {
		return errors.ErrInvalidTarget(c.Target)
	}
	if c.Mode == nil {
		return errors.ErrConfigMissing("mode")
	}
	if err := c.Mode.Validate(); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"timeout must be positive", "timeout", c.Timeout)
	}
	if c.DelayBetweenProbes < 0 {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"delay must not be negative", "delay_between_probes", c.DelayBetweenProbes)
	}
	return nil
}

// Stealth reports whether the configuration selects the stealth strategy.
func (c *ScanConfig) Stealth() bool {
	return c.RandomizeSourcePort || c.DelayBetweenProbes > 0
}

// Clone returns a copy of the configuration.
func (c *ScanConfig) Clone() *ScanConfig {
	clone := *c
	return &clone
}

// String summarizes the configuration for logs.
func (c *ScanConfig) String() string {
	return fmt.Sprintf("target=%s mode=%s timeout=%s parallel=%t threads=%d stealth=%t",
		c.Target, c.Mode, c.Timeout, c.Parallel, c.ThreadCount, c.Stealth())
}
