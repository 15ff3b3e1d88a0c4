// Package config defines the application configuration for portsleuth,
// loaded from a YAML file with defaults for everything optional.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvestad/portsleuth/internal/db"
	"github.com/nvestad/portsleuth/internal/errors"
	"github.com/nvestad/portsleuth/internal/logging"
)

const (
	defaultAPIPort        = 8080
	defaultRequestTimeout = 30 * time.Second
	defaultScanTimeout    = 500 * time.Millisecond
	defaultThreadCount    = 100
	configFilePerm        = 0600
)

// Config is the complete application configuration.
type Config struct {
	Scanning  ScanningConfig  `yaml:"scanning" json:"scanning"`
	API       APIConfig       `yaml:"api" json:"api"`
	Database  db.Config       `yaml:"database" json:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	Logging   logging.Config  `yaml:"logging" json:"logging"`
}

// ScanningConfig holds defaults applied to scans that do not override them.
type ScanningConfig struct {
	// Per-port connect timeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Worker count for parallel scans.
	ThreadCount int `yaml:"thread_count" json:"thread_count"`

	// Run scans in parallel by default.
	Parallel bool `yaml:"parallel" json:"parallel"`

	// Default port specification ("common", a range, or a list).
	DefaultPorts string `yaml:"default_ports" json:"default_ports"`

	// Enable service version detection on open ports.
	DetectVersions bool `yaml:"detect_versions" json:"detect_versions"`

	// Enable SMB OS fingerprinting on open ports.
	DetectOS bool `yaml:"detect_os" json:"detect_os"`

	// Jittered delay between probes; nonzero enables stealth pacing.
	DelayBetweenProbes time.Duration `yaml:"delay_between_probes" json:"delay_between_probes"`

	// Bind each probe to a random source port.
	RandomizeSourcePort bool `yaml:"randomize_source_port" json:"randomize_source_port"`

	// Nameserver for target resolution ("host:port"); empty uses the
	// system resolver configuration.
	Nameserver string `yaml:"nameserver" json:"nameserver"`
}

// APIConfig holds the HTTP API server settings.
type APIConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	ListenAddr     string        `yaml:"listen_addr" json:"listen_addr"`
	Port           int           `yaml:"port" json:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// APIKeyHash is a bcrypt hash of the API key. Empty disables
	// authentication.
	APIKeyHash string `yaml:"api_key_hash" json:"-"`

	// Persist completed scans to the database.
	PersistScans bool `yaml:"persist_scans" json:"persist_scans"`
}

// SchedulerConfig holds the periodic rescan settings.
type SchedulerConfig struct {
	Enabled bool           `yaml:"enabled" json:"enabled"`
	Jobs    []ScheduledJob `yaml:"jobs" json:"jobs"`
}

// ScheduledJob is one recurring scan definition.
type ScheduledJob struct {
	Name     string `yaml:"name" json:"name"`
	Schedule string `yaml:"schedule" json:"schedule"`
	Target   string `yaml:"target" json:"target"`
	Ports    string `yaml:"ports" json:"ports"`
}

// Default returns a configuration with working defaults for everything
// except database credentials.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			Timeout:      defaultScanTimeout,
			ThreadCount:  defaultThreadCount,
			Parallel:     true,
			DefaultPorts: "common",
		},
		API: APIConfig{
			Enabled:        false,
			ListenAddr:     "127.0.0.1",
			Port:           defaultAPIPort,
			RequestTimeout: defaultRequestTimeout,
		},
		Database:  db.DefaultConfig(),
		Scheduler: SchedulerConfig{},
		Logging:   logging.DefaultConfig(),
	}
}

// Load reads a YAML configuration file over the defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("could not read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("could not parse config file %s", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration, "could not encode config", err)
	}
	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("could not write config file %s", path), err)
	}
	return nil
}

// Validate checks the configuration for values that would break at runtime.
func (c *Config) Validate() error {
	if c.Scanning.Timeout <= 0 {
		return errors.ErrConfigInvalid("scanning.timeout", c.Scanning.Timeout)
	}
	if c.Scanning.ThreadCount < 1 {
		return errors.ErrConfigInvalid("scanning.thread_count", c.Scanning.ThreadCount)
	}
	if c.Scanning.DelayBetweenProbes < 0 {
		return errors.ErrConfigInvalid("scanning.delay_between_probes", c.Scanning.DelayBetweenProbes)
	}
	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			return errors.ErrConfigInvalid("api.port", c.API.Port)
		}
		if c.API.PersistScans {
			if err := c.Database.Validate(); err != nil {
				return err
			}
		}
	}
	if c.Scheduler.Enabled {
		for i := range c.Scheduler.Jobs {
			job := &c.Scheduler.Jobs[i]
			if job.Name == "" {
				return errors.ErrConfigMissing(fmt.Sprintf("scheduler.jobs[%d].name", i))
			}
			if job.Schedule == "" {
				return errors.ErrConfigMissing(fmt.Sprintf("scheduler.jobs[%d].schedule", i))
			}
			if job.Target == "" {
				return errors.ErrConfigMissing(fmt.Sprintf("scheduler.jobs[%d].target", i))
			}
		}
	}
	return nil
}

// APIAddress returns the API listen address as "host:port".
func (c *Config) APIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.ListenAddr, c.API.Port)
}
