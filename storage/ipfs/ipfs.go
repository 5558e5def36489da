// Package ipfs serves block stores kept as bundles in the Mutable File System
// of a local Kubo node.
//
// Block h lives at <root>/<h>.tar in MFS, in the format of storage/bundle.
// The package does not embed a network client; it shells out to the local
// "ipfs" CLI, which reads the node's repo without needing a running daemon.
//
// Transport is not validity: stores read from IPFS go through the same
// bundle checks and Loader verification as any other source.
package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strconv"
	"strings"

	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/bundle"
)

// DefaultRoot is the MFS directory holding bundles.
const DefaultRoot = "/zkhost"

// Store is a storage.Source and storage.Sink over bundles in Kubo MFS.
type Store struct {
	bin  string
	root string
	env  []string
}

var (
	_ storage.Source = (*Store)(nil)
	_ storage.Sink   = (*Store)(nil)
)

// Options configures a Store.
type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string
	// Root is the MFS directory holding bundles. If empty, DefaultRoot is used.
	Root string
	// Env optionally overrides the command environment (e.g. to set IPFS_PATH).
	// If nil, the process environment is used.
	Env []string
}

// New returns a Store using the ipfs binary and MFS root from opts.
func New(opts Options) *Store {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	root := opts.Root
	if root == "" {
		root = DefaultRoot
	}
	return &Store{bin: bin, root: path.Clean("/" + root), env: opts.Env}
}

// BundlePath returns the MFS path of the bundle for height.
func (s *Store) BundlePath(height uint64) string {
	return path.Join(s.root, strconv.FormatUint(height, 10)+".tar")
}

// Load reads and decodes the bundle for height. A missing bundle is
// storage.ErrNotFound; a malformed one is storage.ErrCorrupt.
func (s *Store) Load(ctx context.Context, height uint64) (*storage.Store, error) {
	out, err := s.run(ctx, nil, "files", "read", s.BundlePath(height))
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, s.BundlePath(height))
		}
		return nil, err
	}
	st, err := bundle.Read(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("ipfs: %s: %w", s.BundlePath(height), err)
	}
	return st, nil
}

// Import publishes st as the bundle for height. An existing bundle with
// different contents is never replaced.
func (s *Store) Import(height uint64, st *storage.Store) error {
	var buf bytes.Buffer
	if err := bundle.Export(&buf, height, st, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		return err
	}

	ctx := context.Background()
	existing, err := s.Load(ctx, height)
	switch {
	case err == nil:
		if existing.Equal(st) {
			return nil
		}
		return fmt.Errorf("%w: block %d at %s", storage.ErrImmutable, height, s.BundlePath(height))
	case !storage.IsNotFound(err):
		return err
	}

	_, err = s.run(ctx, buf.Bytes(), "files", "write", "--create", "--parents", "--truncate", s.BundlePath(height))
	return err
}

// CID returns the MFS content identifier of the bundle for height.
func (s *Store) CID(ctx context.Context, height uint64) (string, error) {
	out, err := s.run(ctx, nil, "files", "stat", "--hash", s.BundlePath(height))
	if err != nil {
		if isLikelyNotFound(err) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Has reports whether a bundle exists for height.
func (s *Store) Has(height uint64) bool {
	_, err := s.CID(context.Background(), height)
	return err == nil
}

func (s *Store) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.bin, args...)
	if s.env != nil {
		cmd.Env = s.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		msg := strings.TrimSpace(string(ee.Stderr))
		if msg == "" {
			return nil, fmt.Errorf("ipfs: %v", err)
		}
		return nil, fmt.Errorf("ipfs: %s", msg)
	}
	return nil, fmt.Errorf("%w: ipfs: %v", storage.ErrUnavailable, err)
}

func isLikelyNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}
