package storage

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"xdao.co/zkhost/preimage"
)

// Store is an immutable, block-scoped mapping from preimage key to value.
//
// All values live in one contiguous slab. Slices returned by Get and Range
// alias that slab and MUST NOT be modified.
type Store struct {
	keys  []preimage.Key
	spans []span
	slab  []byte
	size  int
}

type span struct {
	off int
	n   int
}

// Len returns the number of entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Size returns the total number of value bytes.
func (s *Store) Size() int {
	if s == nil {
		return 0
	}
	return s.size
}

// Get returns the value for k.
func (s *Store) Get(k preimage.Key) ([]byte, bool) {
	i, ok := s.find(k)
	if !ok {
		return nil, false
	}
	return s.value(i), true
}

// Has reports whether k is present.
func (s *Store) Has(k preimage.Key) bool {
	_, ok := s.find(k)
	return ok
}

// Entry returns the i-th entry in ascending key order.
func (s *Store) Entry(i int) (preimage.Key, []byte) {
	return s.keys[i], s.value(i)
}

// Range calls fn for every entry in ascending key order until fn returns false.
func (s *Store) Range(fn func(k preimage.Key, v []byte) bool) {
	for i := 0; i < s.Len(); i++ {
		if !fn(s.keys[i], s.value(i)) {
			return
		}
	}
}

// Keys returns a copy of the keys in ascending order.
func (s *Store) Keys() []preimage.Key {
	return append([]preimage.Key(nil), s.keys...)
}

// Equal reports whether s and o hold the same entries.
func (s *Store) Equal(o *Store) bool {
	if s.Len() != o.Len() || s.Size() != o.Size() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if s.keys[i] != o.keys[i] || !bytes.Equal(s.value(i), o.value(i)) {
			return false
		}
	}
	return true
}

func (s *Store) find(k preimage.Key) (int, bool) {
	n := s.Len()
	i := sort.Search(n, func(i int) bool { return bytes.Compare(s.keys[i][:], k[:]) >= 0 })
	return i, i < n && s.keys[i] == k
}

func (s *Store) value(i int) []byte {
	sp := s.spans[i]
	return s.slab[sp.off : sp.off+sp.n : sp.off+sp.n]
}

// Builder assembles a Store. Values are copied into a single slab; callers
// that know the totals up front should reserve them with NewBuilder so that
// loading performs one allocation regardless of the entry count.
type Builder struct {
	keys  []preimage.Key
	spans []span
	slab  []byte
}

// NewBuilder returns a Builder with room for entries values totalling size bytes.
func NewBuilder(entries, size int) *Builder {
	return &Builder{
		keys:  make([]preimage.Key, 0, entries),
		spans: make([]span, 0, entries),
		slab:  make([]byte, 0, size),
	}
}

// Add copies value into the store under k.
func (b *Builder) Add(k preimage.Key, value []byte) {
	off := len(b.slab)
	b.slab = append(b.slab, value...)
	b.keys = append(b.keys, k)
	b.spans = append(b.spans, span{off: off, n: len(value)})
}

// readChunk bounds how far the slab grows ahead of bytes actually read.
const readChunk = 1 << 20

// ReadFrom reads exactly n bytes from r directly into the slab under k.
//
// n is trusted only as far as data arrives: the slab grows in chunks as
// bytes are read, and a reader that reports its remaining length (such as
// *bytes.Reader) is checked against n up front. A short read fails with
// io.ErrUnexpectedEOF and leaves the Builder unchanged.
func (b *Builder) ReadFrom(k preimage.Key, r io.Reader, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative size for key %s", ErrCorrupt, k)
	}
	if l, ok := r.(interface{ Len() int }); ok && n > l.Len() {
		return fmt.Errorf("%w: key %s claims %d bytes, %d remain", ErrCorrupt, k, n, l.Len())
	}
	off := len(b.slab)
	for read := 0; read < n; {
		c := min(n-read, readChunk)
		b.reserve(c)
		end := off + read + c
		b.slab = b.slab[:end]
		if _, err := io.ReadFull(r, b.slab[end-c:end]); err != nil {
			b.slab = b.slab[:off]
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		read += c
	}
	b.keys = append(b.keys, k)
	b.spans = append(b.spans, span{off: off, n: n})
	return nil
}

// reserve makes room for extra more bytes in the slab.
func (b *Builder) reserve(extra int) {
	if cap(b.slab)-len(b.slab) >= extra {
		return
	}
	grown := make([]byte, len(b.slab), 2*cap(b.slab)+extra)
	copy(grown, b.slab)
	b.slab = grown
}

// Build sorts the entries and freezes them into a Store.
//
// A key added twice with identical values collapses to one entry; a key
// added twice with different values fails with ErrImmutable. The Builder
// must not be used afterwards.
func (b *Builder) Build() (*Store, error) {
	idx := make([]int, len(b.keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return bytes.Compare(b.keys[idx[i]][:], b.keys[idx[j]][:]) < 0
	})

	s := &Store{
		keys:  make([]preimage.Key, 0, len(idx)),
		spans: make([]span, 0, len(idx)),
		slab:  b.slab,
	}
	for _, i := range idx {
		k, sp := b.keys[i], b.spans[i]
		if n := len(s.keys); n > 0 && s.keys[n-1] == k {
			prev := s.spans[n-1]
			if !bytes.Equal(b.slab[prev.off:prev.off+prev.n], b.slab[sp.off:sp.off+sp.n]) {
				return nil, fmt.Errorf("%w: conflicting values for key %s", ErrImmutable, k)
			}
			continue
		}
		s.keys = append(s.keys, k)
		s.spans = append(s.spans, sp)
		s.size += sp.n
	}
	*b = Builder{}
	return s, nil
}

// FromMap builds a Store from a map. It is mainly useful for tests and small
// in-memory sources.
func FromMap(m map[preimage.Key][]byte) *Store {
	size := 0
	for _, v := range m {
		size += len(v)
	}
	b := NewBuilder(len(m), size)
	for k, v := range m {
		b.Add(k, v)
	}
	s, err := b.Build()
	if err != nil {
		// Map keys are unique, so Build cannot see conflicting duplicates.
		panic(err)
	}
	return s
}
