package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/bundle"
	"xdao.co/zkhost/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunSourceConformance(t, func(t *testing.T, stores map[uint64]*storage.Store) storage.Source {
		t.Helper()
		d, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		for h, s := range stores {
			if s.Len() == 0 {
				if err := os.MkdirAll(d.BlockPath(h), 0o755); err != nil {
					t.Fatal(err)
				}
				continue
			}
			if err := d.Import(h, s); err != nil {
				t.Fatalf("Import failed: %v", err)
			}
		}
		return d
	})
}

func TestLocalFS_BundleConformance(t *testing.T) {
	testkit.RunSourceConformance(t, func(t *testing.T, stores map[uint64]*storage.Store) storage.Source {
		t.Helper()
		d, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		for h, s := range stores {
			f, err := os.Create(d.BundlePath(h))
			if err != nil {
				t.Fatal(err)
			}
			if err := bundle.Export(f, h, s, bundle.ExportOptions{IncludeIndex: true}); err != nil {
				t.Fatal(err)
			}
			if err := f.Close(); err != nil {
				t.Fatal(err)
			}
		}
		return d
	})
}

func TestLocalFS_PutIsImmutable(t *testing.T) {
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	k := preimage.KeccakKey([]byte("original"))

	if err := d.Put(3, k, []byte("original")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := d.Put(3, k, []byte("original")); err != nil {
		t.Fatalf("idempotent Put failed: %v", err)
	}
	if err := d.Put(3, k, []byte("changed")); !errors.Is(err, storage.ErrImmutable) {
		t.Fatalf("overwrite: got %v want ErrImmutable", err)
	}

	info, err := os.Stat(filepath.Join(d.BlockPath(3), fileName(k)))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o222 != 0 {
		t.Fatalf("expected read-only entry, got mode %v", info.Mode())
	}
}

func TestLocalFS_RejectsUnexpectedEntries(t *testing.T) {
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Put(1, preimage.KeccakKey([]byte("a")), []byte("a")); err != nil {
		t.Fatal(err)
	}

	t.Run("bad name", func(t *testing.T) {
		p := filepath.Join(d.BlockPath(1), "README")
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		defer os.Remove(p)

		_, err := d.Load(context.Background(), 1)
		if !errors.Is(err, storage.ErrCorrupt) {
			t.Fatalf("got %v want ErrCorrupt", err)
		}
	})

	t.Run("subdirectory", func(t *testing.T) {
		p := filepath.Join(d.BlockPath(1), "nested")
		if err := os.Mkdir(p, 0o755); err != nil {
			t.Fatal(err)
		}
		defer os.Remove(p)

		_, err := d.Load(context.Background(), 1)
		if !errors.Is(err, storage.ErrCorrupt) {
			t.Fatalf("got %v want ErrCorrupt", err)
		}
	})
}

func TestLocalFS_BlockPathIsFile(t *testing.T) {
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(d.BlockPath(9), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = d.Load(context.Background(), 9)
	if !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("got %v want ErrCorrupt", err)
	}
}

func TestLocalFS_LoadHonorsContext(t *testing.T) {
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Import(1, testkit.Fixture()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Load(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v want context.Canceled", err)
	}
}

func TestLocalFS_Has(t *testing.T) {
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if d.Has(1) {
		t.Fatalf("empty root reports data")
	}
	if err := d.Import(1, testkit.Fixture()); err != nil {
		t.Fatal(err)
	}
	if !d.Has(1) {
		t.Fatalf("imported block not reported")
	}
}

func TestNewRequiresRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestLocalFS_ReadIntoRejectsSizeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	k := preimage.LocalKey(1)

	// Sizes as recorded by an earlier Stat, before the file changed.
	for _, size := range []int64{4, 16} {
		b := storage.NewBuilder(1, int(size))
		if err := readInto(b, k, path, size); !errors.Is(err, storage.ErrCorrupt) {
			t.Fatalf("size %d: got %v want ErrCorrupt", size, err)
		}
	}

	b := storage.NewBuilder(1, 10)
	if err := readInto(b, k, path, 10); err != nil {
		t.Fatalf("exact size: %v", err)
	}
}
