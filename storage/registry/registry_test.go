package registry

import (
	"context"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/zkhost/storage"
)

func testBackend(name string, usage Usage, flagVal *string) Backend {
	return Backend{
		Name:  name,
		Usage: usage,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(flagVal, name+"-opt", "default", "test option")
		},
		Open: func() (storage.Source, func() error, error) {
			return storage.MapSource{1: storage.FromMap(nil)}, nil, nil
		},
		OpenConfig: func(cfg map[string]string) (storage.Source, func() error, error) {
			*flagVal = cfg[name+"-opt"]
			return storage.MapSource{}, nil, nil
		},
	}
}

func TestRegisterAndOpen(t *testing.T) {
	var opt string
	require.NoError(t, Register(testBackend("test-cli", UsageCLI, &opt)))
	assert.Error(t, Register(testBackend("test-cli", UsageCLI, &opt)), "duplicate name")

	fs := pflag.NewFlagSet("t", pflag.ContinueOnError)
	RegisterFlags(fs, UsageCLI)
	require.NoError(t, fs.Parse([]string{"--test-cli-opt=x"}))
	assert.Equal(t, "x", opt)
	assert.Contains(t, Names(UsageCLI), "test-cli")
	assert.NotContains(t, Names(UsageDaemon), "test-cli")

	src, _, err := Open("test-cli", UsageCLI)
	require.NoError(t, err)
	_, err = src.Load(context.Background(), 1)
	assert.NoError(t, err)

	_, _, err = OpenWithConfig("test-cli", UsageCLI, map[string]string{"test-cli-opt": "y"})
	require.NoError(t, err)
	assert.Equal(t, "y", opt)

	_, _, err = Open("test-cli", UsageDaemon)
	assert.Error(t, err)
	_, _, err = Open("nope", UsageCLI)
	assert.Error(t, err)
}

func TestRegisterValidates(t *testing.T) {
	var opt string
	b := testBackend("", UsageCLI, &opt)
	assert.Error(t, Register(b))

	b = testBackend("no-usage", 0, &opt)
	assert.Error(t, Register(b))

	b = testBackend("no-open", UsageCLI, &opt)
	b.Open = nil
	assert.Error(t, Register(b))
}
