package ipfs

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/testkit"
)

// fakeKubo is a stand-in for the ipfs CLI that keeps MFS in a directory.
const fakeKubo = `#!/bin/sh
set -e
[ "$1" = files ] || { echo "unsupported: $*" >&2; exit 1; }
cmd=$2; shift 2
while [ $# -gt 1 ]; do shift; done
p="$FAKE_MFS$1"
case "$cmd" in
read)
	[ -f "$p" ] || { echo "Error: file does not exist" >&2; exit 1; }
	cat "$p" ;;
write)
	mkdir -p "$(dirname "$p")"
	cat > "$p" ;;
stat)
	[ -f "$p" ] || { echo "Error: file does not exist" >&2; exit 1; }
	echo "bafyfake$(wc -c < "$p" | tr -d ' ')" ;;
*)
	echo "unsupported: files $cmd" >&2; exit 1 ;;
esac
`

func newFake(t *testing.T) (*Store, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ipfs binary is a shell script")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "ipfs")
	require.NoError(t, os.WriteFile(bin, []byte(fakeKubo), 0o755))
	mfs := filepath.Join(dir, "mfs")
	env := append(os.Environ(), "FAKE_MFS="+mfs)
	return New(Options{Bin: bin, Env: env}), mfs
}

func TestConformance(t *testing.T) {
	testkit.RunSourceConformance(t, func(t *testing.T, stores map[uint64]*storage.Store) storage.Source {
		s, _ := newFake(t)
		for h, st := range stores {
			require.NoError(t, s.Import(h, st))
		}
		return s
	})
}

func TestImportIsImmutable(t *testing.T) {
	s, mfs := newFake(t)
	require.NoError(t, s.Import(4, testkit.Fixture()))
	assert.FileExists(t, filepath.Join(mfs, "zkhost", "4.tar"))
	assert.True(t, s.Has(4))
	assert.False(t, s.Has(5))

	require.NoError(t, s.Import(4, testkit.Fixture()), "identical re-import is a no-op")

	other := storage.FromMap(map[preimage.Key][]byte{preimage.KeccakKey([]byte("z")): []byte("z")})
	assert.ErrorIs(t, s.Import(4, other), storage.ErrImmutable)

	id, err := s.CID(context.Background(), 4)
	require.NoError(t, err)
	assert.Contains(t, id, "bafyfake")
	_, err = s.CID(context.Background(), 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCorruptBundle(t *testing.T) {
	s, mfs := newFake(t)
	require.NoError(t, os.MkdirAll(filepath.Join(mfs, "zkhost"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mfs, "zkhost", "9.tar"), []byte("not a tar"), 0o644))

	_, err := s.Load(context.Background(), 9)
	assert.ErrorIs(t, err, storage.ErrCorrupt)
}

func TestMissingBinaryIsUnavailable(t *testing.T) {
	s := New(Options{Bin: filepath.Join(t.TempDir(), "no-ipfs")})
	_, err := s.Load(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestBundlePath(t *testing.T) {
	assert.Equal(t, "/zkhost/12.tar", New(Options{}).BundlePath(12))
	assert.Equal(t, "/chain/10/12.tar", New(Options{Root: "chain/10/"}).BundlePath(12))
}
