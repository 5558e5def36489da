package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/registry"
	"xdao.co/zkhost/storage/testkit"

	_ "xdao.co/zkhost/storage/localfs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zkhost.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `{
		"sources": [{"name": "localfs", "config": {"data-dir": "/data"}}],
		"prover": {"backend": "grpc", "target": "prover:7070", "dial_timeout": "3s", "max_msg_bytes": 1048576},
		"max_input_bytes": 4096,
		"timeout": "90s",
		"verify": "permissive"
	}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data", cfg.Sources[0].Config["data-dir"])
	assert.Equal(t, ProverGRPC, cfg.Prover.Backend)
	assert.Equal(t, 4096, cfg.MaxInputBytes)

	d, err := cfg.RunTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
	d, err = cfg.Prover.DialTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d)
	mode, err := cfg.VerifyMode()
	require.NoError(t, err)
	assert.Equal(t, preimage.Permissive, mode)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no sources":       func(c *Config) { c.Sources = nil },
		"unnamed source":   func(c *Config) { c.Sources = []SourceConfig{{}} },
		"duplicate id":     func(c *Config) { c.Sources = []SourceConfig{{Name: "localfs"}, {Name: "localfs"}} },
		"bad prover":       func(c *Config) { c.Prover.Backend = "quantum" },
		"grpc no target":   func(c *Config) { c.Prover.Backend = ProverGRPC },
		"bad timeout":      func(c *Config) { c.Timeout = "soon" },
		"negative timeout": func(c *Config) { c.Timeout = "-1s" },
		"bad verify":       func(c *Config) { c.Verify = "lenient" },
		"negative max":     func(c *Config) { c.MaxInputBytes = -1 },
	}
	require.NoError(t, Default().Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Sources = append(cfg.Sources, SourceConfig{Name: "localfs", ID: "mirror"})
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile("")
	assert.Error(t, err)
	_, err = LoadFile(writeConfig(t, `{"sources": [`))
	assert.Error(t, err)
	_, err = LoadFile(writeConfig(t, `{"sources": []}`))
	assert.Error(t, err)
}

func TestOpenSourcesFallsThroughInOrder(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	cfg := Config{Sources: []SourceConfig{
		{Name: "localfs", ID: "first", Config: map[string]string{"data-dir": first}},
		{Name: "localfs", ID: "second", Config: map[string]string{"data-dir": second}},
	}}

	src, closeAll, err := cfg.OpenSources(registry.UsageCLI)
	require.NoError(t, err)
	defer func() { require.NoError(t, closeAll()) }()

	_, ok := src.(storage.MultiSource)
	require.True(t, ok, "two sources are chained")

	// Only the second directory has block 3.
	sec, _, err := registry.OpenWithConfig("localfs", registry.UsageCLI, map[string]string{"data-dir": second})
	require.NoError(t, err)
	require.NoError(t, sec.(interface {
		Import(uint64, *storage.Store) error
	}).Import(3, testkit.Fixture()))

	got, err := src.Load(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, got.Equal(testkit.Fixture()))

	_, err = src.Load(context.Background(), 4)
	assert.True(t, storage.IsNotFound(err))
}

func TestOpenSourcesClosesOnFailure(t *testing.T) {
	closed := 0
	require.NoError(t, registry.Register(registry.Backend{
		Name:          "config-test-closer",
		Usage:         registry.UsageCLI,
		RegisterFlags: func(*pflag.FlagSet) {},
		Open: func() (storage.Source, func() error, error) {
			return nil, nil, errors.New("unused")
		},
		OpenConfig: func(map[string]string) (storage.Source, func() error, error) {
			return storage.MapSource{}, func() error { closed++; return errors.New("close failed") }, nil
		},
	}))

	cfg := Config{Sources: []SourceConfig{
		{Name: "config-test-closer"},
		{Name: "no-such-backend"},
	}}
	_, _, err := cfg.OpenSources(registry.UsageCLI)
	require.Error(t, err)
	assert.Equal(t, 1, closed)
	assert.Contains(t, err.Error(), "close failed")
	assert.Contains(t, err.Error(), "no-such-backend")
}

func TestOpenSourcesWritesThroughCache(t *testing.T) {
	origin, cacheDir := t.TempDir(), t.TempDir()
	o, _, err := registry.OpenWithConfig("localfs", registry.UsageCLI, map[string]string{"data-dir": origin})
	require.NoError(t, err)
	require.NoError(t, o.(storage.Sink).Import(8, testkit.Fixture()))

	cfg := Config{
		Sources:  []SourceConfig{{Name: "localfs", Config: map[string]string{"data-dir": origin}}},
		CacheDir: cacheDir,
	}
	src, closeAll, err := cfg.OpenSources(registry.UsageCLI)
	require.NoError(t, err)
	defer func() { require.NoError(t, closeAll()) }()

	got, err := src.Load(context.Background(), 8)
	require.NoError(t, err)
	assert.True(t, got.Equal(testkit.Fixture()))

	require.NoError(t, os.RemoveAll(filepath.Join(origin, "8")))
	cached, _, err := registry.OpenWithConfig("localfs", registry.UsageCLI, map[string]string{"data-dir": cacheDir})
	require.NoError(t, err)
	got, err = cached.Load(context.Background(), 8)
	require.NoError(t, err)
	assert.True(t, got.Equal(testkit.Fixture()))

	got, err = src.Load(context.Background(), 8)
	require.NoError(t, err, "served from the cache once the origin is gone")
	assert.True(t, got.Equal(testkit.Fixture()))
}
