package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/zkhost/model"
	"xdao.co/zkhost/preimage"
)

func TestBuilderSortsAndServes(t *testing.T) {
	ka := preimage.KeccakKey([]byte("a"))
	kb := preimage.KeccakKey([]byte("b"))
	kl := preimage.LocalKey(9)

	b := NewBuilder(3, 3)
	b.Add(ka, []byte("a"))
	require.NoError(t, b.ReadFrom(kl, bytes.NewReader([]byte{9}), 1))
	b.Add(kb, []byte("b"))
	s, err := b.Build()
	require.NoError(t, err)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, 3, s.Size())
	keys := s.Keys()
	for i := 1; i < len(keys); i++ {
		assert.Less(t, bytes.Compare(keys[i-1][:], keys[i][:]), 0)
	}

	v, ok := s.Get(kl)
	require.True(t, ok)
	assert.Equal(t, []byte{9}, v)
	assert.True(t, s.Has(ka))
	assert.False(t, s.Has(preimage.LocalKey(10)))
}

func TestBuilderUsesOneSlab(t *testing.T) {
	b := NewBuilder(2, 6)
	b.Add(preimage.LocalKey(1), []byte("abc"))
	b.Add(preimage.LocalKey(2), []byte("def"))
	s, err := b.Build()
	require.NoError(t, err)

	v1, _ := s.Get(preimage.LocalKey(1))
	v2, _ := s.Get(preimage.LocalKey(2))
	assert.Same(t, &s.slab[0], &v1[0])
	assert.Same(t, &s.slab[3], &v2[0])
	assert.Equal(t, 3, cap(v1), "values must not be appendable into neighbours")
}

func TestBuilderDuplicates(t *testing.T) {
	k := preimage.LocalKey(1)

	b := NewBuilder(0, 0)
	b.Add(k, []byte("same"))
	b.Add(k, []byte("same"))
	s, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 4, s.Size())

	b = NewBuilder(0, 0)
	b.Add(k, []byte("one"))
	b.Add(k, []byte("two"))
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrImmutable)
}

func TestBuilderReadFromShortInput(t *testing.T) {
	b := NewBuilder(1, 4)
	err := b.ReadFrom(preimage.LocalKey(1), bytes.NewReader([]byte{1, 2}), 4)
	require.Error(t, err)

	s, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestBuilderReadFromRejectsSizeBeyondReader(t *testing.T) {
	b := NewBuilder(0, 0)
	err := b.ReadFrom(preimage.LocalKey(1), bytes.NewReader(make([]byte, 16)), 1<<50)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestBuilderReadFromGrowsWithData(t *testing.T) {
	b := NewBuilder(0, 0)
	// LimitReader hides the remaining length, so only the data bounds growth.
	err := b.ReadFrom(preimage.LocalKey(1), io.LimitReader(bytes.NewReader(make([]byte, 1024)), 1024), 1<<50)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.LessOrEqual(t, cap(b.slab), 4*readChunk)

	want := bytes.Repeat([]byte{7}, 3*readChunk+5)
	require.NoError(t, b.ReadFrom(preimage.LocalKey(2), io.LimitReader(bytes.NewReader(want), int64(len(want))), len(want)))
	s, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	got, ok := s.Get(preimage.LocalKey(2))
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestStoreRangeStops(t *testing.T) {
	s := FromMap(map[preimage.Key][]byte{
		preimage.LocalKey(1): {1},
		preimage.LocalKey(2): {2},
		preimage.LocalKey(3): {3},
	})
	var seen int
	s.Range(func(preimage.Key, []byte) bool {
		seen++
		return seen < 2
	})
	assert.Equal(t, 2, seen)
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Size())
	assert.False(t, s.Has(preimage.LocalKey(1)))
	assert.True(t, s.Equal(FromMap(nil)))
}

func TestLoaderNotFound(t *testing.T) {
	l := NewLoader(MapSource{})
	s, err := l.Load(context.Background(), 100)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, model.IsKind(err, model.KindLoad))
	assert.Equal(t, model.CodeNotFound, model.CodeOf(err))
	assert.False(t, model.Retryable(err))
}

func TestLoaderIntegrity(t *testing.T) {
	bad := FromMap(map[preimage.Key][]byte{
		preimage.KeccakKey([]byte("honest")): []byte("forged"),
	})
	l := NewLoader(MapSource{7: bad})

	s, err := l.Load(context.Background(), 7)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, model.IsKind(err, model.KindIntegrity))
	assert.Equal(t, model.CodeKeyMismatch, model.CodeOf(err))
	assert.ErrorIs(t, err, preimage.ErrKeyMismatch)

	l.Mode = preimage.Permissive
	s, err = l.Load(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestLoaderRejectsUnknownKeyType(t *testing.T) {
	var k preimage.Key
	k[0] = 0x7f
	l := NewLoader(MapSource{1: FromMap(map[preimage.Key][]byte{k: {1}})})

	_, err := l.Load(context.Background(), 1)
	assert.True(t, model.IsKind(err, model.KindIntegrity))
	assert.Equal(t, model.CodeInvalidKey, model.CodeOf(err))
}

func TestLoaderClassifiesSourceErrors(t *testing.T) {
	cases := []struct {
		err  error
		code model.Code
	}{
		{ErrCorrupt, model.CodeCorruptStore},
		{ErrImmutable, model.CodeCorruptStore},
		{ErrUnavailable, model.CodeUnavailable},
		{context.DeadlineExceeded, model.CodeUnavailable},
		{errors.New("disk on fire"), model.CodeUnavailable},
	}
	for _, tc := range cases {
		src := SourceFunc(func(context.Context, uint64) (*Store, error) { return nil, tc.err })
		_, err := NewLoader(src).Load(context.Background(), 1)
		assert.True(t, model.IsKind(err, model.KindLoad), "%v", tc.err)
		assert.Equal(t, tc.code, model.CodeOf(err), "%v", tc.err)
		assert.ErrorIs(t, err, tc.err)
	}
}

func TestLoaderWithoutSource(t *testing.T) {
	var l *Loader
	_, err := l.Load(context.Background(), 1)
	assert.True(t, model.IsKind(err, model.KindLoad))
}

func TestMultiSource(t *testing.T) {
	first := MapSource{1: FromMap(map[preimage.Key][]byte{preimage.LocalKey(1): {1}})}
	second := MapSource{
		1: FromMap(map[preimage.Key][]byte{preimage.LocalKey(1): {2}}),
		2: FromMap(map[preimage.Key][]byte{preimage.LocalKey(2): {2}}),
	}
	m := MultiSource{Sources: []Source{first, second}}

	s, err := m.Load(context.Background(), 1)
	require.NoError(t, err)
	v, _ := s.Get(preimage.LocalKey(1))
	assert.Equal(t, []byte{1}, v, "first source wins")

	s, err = m.Load(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, s.Has(preimage.LocalKey(2)))

	_, err = m.Load(context.Background(), 3)
	assert.True(t, IsNotFound(err))

	broken := SourceFunc(func(context.Context, uint64) (*Store, error) { return nil, ErrCorrupt })
	m = MultiSource{Sources: []Source{broken, second}}
	_, err = m.Load(context.Background(), 2)
	assert.ErrorIs(t, err, ErrCorrupt, "corruption must not fall through")

	_, err = MultiSource{}.Load(context.Background(), 1)
	assert.Error(t, err)
}

type sinkSource struct {
	MapSource
	imports int
	err     error
}

func (s *sinkSource) Import(height uint64, st *Store) error {
	if s.err != nil {
		return s.err
	}
	s.imports++
	s.MapSource[height] = st
	return nil
}

func TestReplicatingSource(t *testing.T) {
	want := FromMap(map[preimage.Key][]byte{preimage.KeccakKey([]byte("x")): []byte("x")})
	a := &sinkSource{MapSource: MapSource{}}
	b := &sinkSource{MapSource: MapSource{}}
	r := ReplicatingSource{
		Source:   MapSource{9: want},
		Replicas: []NamedSink{{Name: "a", Sink: a}, {Name: "b", Sink: b}},
	}

	got, err := r.Load(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))
	assert.True(t, a.MapSource[9].Equal(want))
	assert.True(t, b.MapSource[9].Equal(want))

	_, err = r.Load(context.Background(), 10)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 1, a.imports)

	b.err = ErrImmutable
	_, err = r.Load(context.Background(), 9)
	assert.ErrorIs(t, err, ErrImmutable)
	assert.Contains(t, err.Error(), `"b"`)
}

func TestCachedSourceWritesThrough(t *testing.T) {
	want := FromMap(map[preimage.Key][]byte{preimage.KeccakKey([]byte("y")): []byte("y")})
	cache := &sinkSource{MapSource: MapSource{}}
	remote := &countingSource{src: MapSource{3: want}}
	src := CachedSource(cache, "cache", remote, preimage.Strict)

	for i := 0; i < 3; i++ {
		got, err := src.Load(context.Background(), 3)
		require.NoError(t, err)
		assert.True(t, got.Equal(want))
	}
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 1, cache.imports)
}

func TestCachedSourceDoesNotCacheBadReplies(t *testing.T) {
	k := preimage.KeccakKey([]byte("good"))
	remote := MapSource{5: FromMap(map[preimage.Key][]byte{k: []byte("evil")})}
	cache := &sinkSource{MapSource: MapSource{}}
	src := CachedSource(cache, "cache", remote, preimage.Strict)
	loader := NewLoader(src)

	_, err := loader.Load(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindIntegrity))
	assert.Equal(t, model.CodeKeyMismatch, model.CodeOf(err))
	assert.Equal(t, 0, cache.imports)
	assert.NotContains(t, cache.MapSource, uint64(5))

	remote[5] = FromMap(map[preimage.Key][]byte{k: []byte("good")})
	got, err := loader.Load(context.Background(), 5)
	require.NoError(t, err)
	v, _ := got.Get(k)
	assert.Equal(t, []byte("good"), v)
	assert.Equal(t, 1, cache.imports)
}

func TestCachedSourcePermissiveCachesUnverified(t *testing.T) {
	k := preimage.KeccakKey([]byte("good"))
	remote := MapSource{5: FromMap(map[preimage.Key][]byte{k: []byte("evil")})}
	cache := &sinkSource{MapSource: MapSource{}}

	_, err := CachedSource(cache, "cache", remote, preimage.Permissive).Load(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.imports)
}

type countingSource struct {
	src   Source
	calls int
}

func (c *countingSource) Load(ctx context.Context, h uint64) (*Store, error) {
	c.calls++
	return c.src.Load(ctx, h)
}
