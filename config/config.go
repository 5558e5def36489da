// Package config is the optional JSON configuration of the zkhost binaries.
//
// It selects witness sources through storage/registry, the prover, and the
// run limits. Command-line flags override file values.
//
// Example:
//
//	{
//	  "sources": [
//	    {"name": "localfs", "config": {"data-dir": "/var/lib/zkhost/data"}},
//	    {"name": "grpc", "id": "archive", "config": {"grpc-target": "archive:7070"}}
//	  ],
//	  "prover": {"backend": "local", "scheme": "ed25519"},
//	  "max_input_bytes": 268435456,
//	  "timeout": "30m",
//	  "verify": "strict",
//	  "cache_dir": "/var/cache/zkhost"
//	}
//
// Callers still need to link the desired source backends via blank imports.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"

	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/localfs"
	"xdao.co/zkhost/storage/registry"
)

// Prover backends.
const (
	ProverLocal = "local"
	ProverGRPC  = "grpc"
)

type Config struct {
	Sources       []SourceConfig `json:"sources"`
	Prover        ProverConfig   `json:"prover"`
	MaxInputBytes int            `json:"max_input_bytes,omitempty"`
	Timeout       string         `json:"timeout,omitempty"`
	Verify        string         `json:"verify,omitempty"`

	// CacheDir, when set, is a local directory that every store loaded from
	// Sources is written through to and that is consulted first.
	CacheDir string `json:"cache_dir,omitempty"`
}

type SourceConfig struct {
	// Name is the registry backend name to open (e.g. "localfs", "grpc").
	Name string `json:"name"`
	// ID is an optional alias used in logs; if empty, Name is used.
	ID     string            `json:"id,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

type ProverConfig struct {
	Backend string `json:"backend,omitempty"`
	// Scheme is the local prover's receipt scheme.
	Scheme    string `json:"scheme,omitempty"`
	MaxCycles uint64 `json:"max_cycles,omitempty"`
	// Program is a guest image path. The local prover falls back to its
	// built-in guest when empty.
	Program string `json:"program,omitempty"`

	Target      string `json:"target,omitempty"`
	DialTimeout string `json:"dial_timeout,omitempty"`
	MaxMsgBytes int    `json:"max_msg_bytes,omitempty"`
}

// Default is a local prover over the default data directory.
func Default() Config {
	return Config{
		Sources: []SourceConfig{{Name: "localfs"}},
		Prover:  ProverConfig{Backend: ProverLocal},
	}
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("config: at least one source is required")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" {
			return errors.New("config: source name is required")
		}
		id := s.label()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("config: duplicate source id %q", id)
		}
		seen[id] = struct{}{}
	}
	switch c.Prover.Backend {
	case "", ProverLocal:
	case ProverGRPC:
		if c.Prover.Target == "" {
			return errors.New("config: prover.target is required for the grpc prover")
		}
	default:
		return fmt.Errorf("config: invalid prover backend %q", c.Prover.Backend)
	}
	if c.MaxInputBytes < 0 {
		return fmt.Errorf("config: negative max_input_bytes %d", c.MaxInputBytes)
	}
	if _, err := c.RunTimeout(); err != nil {
		return err
	}
	if _, err := c.Prover.DialTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.VerifyMode(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// RunTimeout parses Timeout; zero means no deadline.
func (c Config) RunTimeout() (time.Duration, error) {
	return parseDuration("timeout", c.Timeout)
}

// VerifyMode parses Verify; empty is strict.
func (c Config) VerifyMode() (preimage.Mode, error) {
	return preimage.ParseMode(c.Verify)
}

func (p ProverConfig) DialTimeoutDuration() (time.Duration, error) {
	return parseDuration("prover.dial_timeout", p.DialTimeout)
}

// OpenSources opens every configured source and chains them in order.
// The returned close function closes all of them, last opened first.
func (c Config) OpenSources(usage registry.Usage) (storage.Source, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	sources := make([]storage.Source, 0, len(c.Sources))
	closers := make([]func() error, 0, len(c.Sources))
	closeAll := func() error {
		var result error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result
	}

	for _, s := range c.Sources {
		src, closeFn, err := registry.OpenWithConfig(s.Name, usage, s.Config)
		if err != nil {
			if cerr := closeAll(); cerr != nil {
				err = multierror.Append(err, cerr)
			}
			return nil, nil, fmt.Errorf("config: source %q: %w", s.label(), err)
		}
		sources = append(sources, src)
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	var src storage.Source = storage.MultiSource{Sources: sources}
	if len(sources) == 1 {
		src = sources[0]
	}
	mode, err := c.VerifyMode()
	if err != nil {
		return nil, nil, err
	}
	src, err = WithCache(src, c.CacheDir, mode)
	if err != nil {
		if cerr := closeAll(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
		return nil, nil, err
	}
	return src, closeAll, nil
}

// WithCache fronts src with a write-through localfs cache at dir. An empty
// dir returns src unchanged. In strict mode only verified stores are cached.
func WithCache(src storage.Source, dir string, mode preimage.Mode) (storage.Source, error) {
	if dir == "" {
		return src, nil
	}
	cache, err := localfs.New(dir)
	if err != nil {
		return nil, fmt.Errorf("config: cache_dir: %w", err)
	}
	return storage.CachedSource(cache, "cache", src, mode), nil
}

func (s SourceConfig) label() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Name
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s: negative duration %s", field, s)
	}
	return d, nil
}
