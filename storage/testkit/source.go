package testkit

import (
	"context"
	"testing"

	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
)

// NewSource constructs a fresh Source serving exactly the given stores.
// The returned Source MUST be isolated from other tests.
type NewSource func(t *testing.T, stores map[uint64]*storage.Store) storage.Source

// Fixture returns a small store mixing verifiable and local keys.
func Fixture() *storage.Store {
	local := preimage.LocalKey(1)
	return storage.FromMap(map[preimage.Key][]byte{
		preimage.KeccakKey([]byte("node-a")): []byte("node-a"),
		preimage.KeccakKey([]byte("node-b")): []byte("node-b"),
		preimage.Sha256Key([]byte("blob")):   []byte("blob"),
		local:                                {1, 2, 3},
	})
}

func RunSourceConformance(t *testing.T, newSource NewSource) {
	t.Helper()

	t.Run("LoadRoundTrip", func(t *testing.T) {
		want := Fixture()
		src := newSource(t, map[uint64]*storage.Store{100: want})

		got, err := src.Load(context.Background(), 100)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !got.Equal(want) {
			t.Fatalf("Load returned different entries: got %d entries, want %d", got.Len(), want.Len())
		}
	})

	t.Run("EmptyStore", func(t *testing.T) {
		src := newSource(t, map[uint64]*storage.Store{5: storage.FromMap(nil)})

		got, err := src.Load(context.Background(), 5)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.Len() != 0 {
			t.Fatalf("expected empty store, got %d entries", got.Len())
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		src := newSource(t, map[uint64]*storage.Store{100: Fixture()})

		got, err := src.Load(context.Background(), 101)
		if !storage.IsNotFound(err) {
			t.Fatalf("Load missing: got err=%v want ErrNotFound", err)
		}
		if got != nil {
			t.Fatalf("Load missing returned a store")
		}
	})

	t.Run("HeightsAreIsolated", func(t *testing.T) {
		a := storage.FromMap(map[preimage.Key][]byte{preimage.KeccakKey([]byte("a")): []byte("a")})
		b := storage.FromMap(map[preimage.Key][]byte{preimage.KeccakKey([]byte("b")): []byte("b")})
		src := newSource(t, map[uint64]*storage.Store{1: a, 2: b})

		got, err := src.Load(context.Background(), 2)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !got.Equal(b) {
			t.Fatalf("Load(2) returned the wrong store")
		}
	})
}
