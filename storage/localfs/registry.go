package localfs

import (
	"fmt"

	"github.com/spf13/pflag"

	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/registry"
)

var flagDataDir string

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "localfs",
		Description: "Local filesystem block stores (<data-dir>/<height>/ or <data-dir>/<height>.tar)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagDataDir, "data-dir", DefaultRoot, "Directory holding per-block witness stores (for --backend=localfs)")
		},
		Open: func() (storage.Source, func() error, error) {
			return open(flagDataDir)
		},
		OpenConfig: func(cfg map[string]string) (storage.Source, func() error, error) {
			dir, ok := cfg["data-dir"]
			if !ok {
				dir = DefaultRoot
			}
			return open(dir)
		},
	})
}

func open(dir string) (storage.Source, func() error, error) {
	if dir == "" {
		return nil, nil, fmt.Errorf("missing --data-dir")
	}
	d, err := New(dir)
	if err != nil {
		return nil, nil, err
	}
	return d, nil, nil
}
