package ipfs

import (
	"os"

	"github.com/spf13/pflag"

	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/registry"
)

var (
	flagBin      string
	flagRoot     string
	flagIPFSPath string
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "ipfs",
		Description: "Bundles in the MFS of a local Kubo node (<ipfs-root>/<height>.tar)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagBin, "ipfs-bin", "ipfs", "Path to the ipfs binary (for --backend=ipfs)")
			fs.StringVar(&flagRoot, "ipfs-root", DefaultRoot, "MFS directory holding block bundles (for --backend=ipfs)")
			fs.StringVar(&flagIPFSPath, "ipfs-path", "", "IPFS_PATH for the ipfs binary; empty uses the environment (for --backend=ipfs)")
		},
		Open: func() (storage.Source, func() error, error) {
			return open(flagBin, flagRoot, flagIPFSPath), nil, nil
		},
		OpenConfig: func(cfg map[string]string) (storage.Source, func() error, error) {
			return open(cfg["ipfs-bin"], cfg["ipfs-root"], cfg["ipfs-path"]), nil, nil
		},
	})
}

func open(bin, root, ipfsPath string) *Store {
	var env []string
	if ipfsPath != "" {
		env = append(os.Environ(), "IPFS_PATH="+ipfsPath)
	}
	return New(Options{Bin: bin, Root: root, Env: env})
}
