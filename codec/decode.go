package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"xdao.co/zkhost/manifest"
	"xdao.co/zkhost/model"
	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
)

// View reads entries straight out of an encoded buffer. Keys and values it
// returns alias the buffer.
type View struct {
	index []byte
	data  []byte
	count int
}

// Decode checks buf and returns its manifest and a View over its entries.
// Malformed buffers fail with a Serialization error wrapping ErrMalformed.
func Decode(buf []byte) (manifest.BootInfo, *View, error) {
	m, v, err := decode(buf)
	if err != nil {
		return manifest.BootInfo{}, nil, model.WrapError(model.KindSerialization, model.CodeEncoding,
			"codec: decode input buffer", err)
	}
	return m, v, nil
}

func decode(buf []byte) (manifest.BootInfo, *View, error) {
	h, err := ReadHeader(buf)
	if err != nil {
		return manifest.BootInfo{}, nil, err
	}
	var m manifest.BootInfo
	if err := m.UnmarshalBinary(buf[ManifestOffset:IndexOffset]); err != nil {
		return manifest.BootInfo{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	v := &View{
		index: buf[IndexOffset:h.DataOffset():h.DataOffset()],
		data:  buf[h.DataOffset():],
		count: int(h.Count),
	}
	for i := 0; i < v.count; i++ {
		off, n := v.span(i)
		if off%Alignment != 0 || uint64(off)+uint64(n) > uint64(len(v.data)) {
			return manifest.BootInfo{}, nil, fmt.Errorf("%w: entry %d span [%d,+%d) outside data section", ErrMalformed, i, off, n)
		}
		if i > 0 && bytes.Compare(v.rawKey(i-1), v.rawKey(i)) >= 0 {
			return manifest.BootInfo{}, nil, fmt.Errorf("%w: keys not strictly ascending at entry %d", ErrMalformed, i)
		}
	}
	return m, v, nil
}

// Len returns the number of entries.
func (v *View) Len() int { return v.count }

// Key returns the i-th key.
func (v *View) Key(i int) preimage.Key {
	var k preimage.Key
	copy(k[:], v.rawKey(i))
	return k
}

// Value returns the i-th value as a sub-slice of the buffer.
func (v *View) Value(i int) []byte {
	off, n := v.span(i)
	return v.data[off : off+n : off+n]
}

// Get looks k up by binary search over the index.
func (v *View) Get(k preimage.Key) ([]byte, bool) {
	i := sort.Search(v.count, func(i int) bool { return bytes.Compare(v.rawKey(i), k[:]) >= 0 })
	if i < v.count && bytes.Equal(v.rawKey(i), k[:]) {
		return v.Value(i), true
	}
	return nil, false
}

// Store copies the view's entries into a storage.Store.
func (v *View) Store() (*storage.Store, error) {
	size := 0
	for i := 0; i < v.count; i++ {
		_, n := v.span(i)
		size += int(n)
	}
	b := storage.NewBuilder(v.count, size)
	for i := 0; i < v.count; i++ {
		b.Add(v.Key(i), v.Value(i))
	}
	return b.Build()
}

func (v *View) rawKey(i int) []byte {
	ent := v.index[i*IndexEntrySize:]
	return ent[:preimage.KeySize:preimage.KeySize]
}

func (v *View) span(i int) (off, n uint32) {
	ent := v.index[i*IndexEntrySize:]
	return binary.LittleEndian.Uint32(ent[preimage.KeySize:]), binary.LittleEndian.Uint32(ent[preimage.KeySize+4:])
}
