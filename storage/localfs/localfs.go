package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/bundle"
)

// DefaultRoot is where block stores live when nothing else is configured.
const DefaultRoot = "../data"

// Dir is a local filesystem-backed witness store.
//
// The store for height h is the directory <root>/<h>/ holding one file per
// entry, named by the entry's 64-hex key and containing its value. When that
// directory is absent, the single-file bundle <root>/<h>.tar is used instead.
//
// Entries are written immutably and loading is offline and deterministic.
type Dir struct {
	root string
}

var _ storage.Source = (*Dir)(nil)

// New constructs a Dir rooted at root. The directory is not created until the
// first Put.
func New(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	return &Dir{root: root}, nil
}

// Root returns the root directory.
func (d *Dir) Root() string { return d.root }

// BlockPath returns the directory holding the store for height.
func (d *Dir) BlockPath(height uint64) string {
	return filepath.Join(d.root, strconv.FormatUint(height, 10))
}

// BundlePath returns the single-file bundle location for height.
func (d *Dir) BundlePath(height uint64) string {
	return d.BlockPath(height) + ".tar"
}

// Has reports whether any backing data exists for height.
func (d *Dir) Has(height uint64) bool {
	if _, err := os.Stat(d.BlockPath(height)); err == nil {
		return true
	}
	_, err := os.Stat(d.BundlePath(height))
	return err == nil
}

// Put writes one entry. Re-putting identical bytes is a no-op; re-putting a
// different value under an existing key fails with storage.ErrImmutable.
func (d *Dir) Put(height uint64, k preimage.Key, value []byte) error {
	dir := d.BlockPath(height)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, fileName(k))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := os.ReadFile(path)
			if rerr != nil || !bytes.Equal(existing, value) {
				return fmt.Errorf("%w: key %s at block %d", storage.ErrImmutable, k, height)
			}
			return nil
		}
		return err
	}

	if _, err := f.Write(value); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// Import writes every entry of s as the store for height.
func (d *Dir) Import(height uint64, s *storage.Store) error {
	var err error
	s.Range(func(k preimage.Key, v []byte) bool {
		err = d.Put(height, k, v)
		return err == nil
	})
	return err
}

// Load reads the whole store for height into memory.
//
// Sizes are read first so that every value lands in one pre-sized slab.
// Unexpected directory contents fail closed with storage.ErrCorrupt.
func (d *Dir) Load(ctx context.Context, height uint64) (*storage.Store, error) {
	dir := d.BlockPath(height)
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return d.loadBundle(height)
	case err != nil:
		return nil, err
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", storage.ErrCorrupt, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type file struct {
		key  preimage.Key
		path string
		size int64
	}
	files := make([]file, 0, len(entries))
	var total int64
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() {
			return nil, fmt.Errorf("%w: unexpected entry %q in %s", storage.ErrCorrupt, e.Name(), dir)
		}
		k, err := preimage.ParseKey(e.Name())
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", storage.ErrCorrupt, e.Name(), err)
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, file{key: k, path: filepath.Join(dir, e.Name()), size: info.Size()})
		total += info.Size()
	}

	b := storage.NewBuilder(len(files), int(total))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := readInto(b, f.key, f.path, f.size); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func (d *Dir) loadBundle(height uint64) (*storage.Store, error) {
	f, err := os.Open(d.BundlePath(height))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	defer f.Close()
	return bundle.Read(f)
}

func readInto(b *storage.Builder, k preimage.Key, path string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := b.ReadFrom(k, f, int(size)); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s shrank while loading", storage.ErrCorrupt, path)
		}
		return err
	}
	var extra [1]byte
	if n, _ := f.Read(extra[:]); n > 0 {
		return fmt.Errorf("%w: %s grew while loading", storage.ErrCorrupt, path)
	}
	return nil
}

func fileName(k preimage.Key) string {
	return strings.TrimPrefix(k.Hex(), "0x")
}
