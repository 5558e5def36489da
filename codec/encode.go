package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"xdao.co/zkhost/manifest"
	"xdao.co/zkhost/model"
	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
)

// Encoder writes encoded buffers into an owned Arena.
//
// The zero value is ready to use and has no size ceiling beyond the format's
// own limits. An Encoder is not safe for concurrent use.
type Encoder struct {
	// MaxSize caps the encoded size in bytes when positive.
	MaxSize int

	arena Arena
}

// NewEncoder returns an Encoder capped at maxSize bytes (0 for no cap).
func NewEncoder(maxSize int) *Encoder {
	return &Encoder{MaxSize: maxSize}
}

// Encode serializes (m, s). The returned buffer aliases the Encoder's arena
// and is overwritten by the next call; use Encode (the function) or copy it
// when the buffer must outlive the Encoder's next use.
//
// The size is computed up front. If it exceeds MaxSize or the format's limits
// Encode fails with a Serialization error before writing anything.
func (e *Encoder) Encode(m manifest.BootInfo, s *storage.Store) ([]byte, error) {
	h, err := e.plan(s)
	if err != nil {
		return nil, err
	}
	buf := e.arena.Alloc(h.Size())
	write(buf, h, m, s)
	return buf, nil
}

// Size reports the encoded size of (m, s) without encoding, applying the
// same limits as Encode.
func (e *Encoder) Size(s *storage.Store) (int, error) {
	h, err := e.plan(s)
	if err != nil {
		return 0, err
	}
	return h.Size(), nil
}

// Encode serializes (m, s) into a freshly allocated buffer.
func Encode(m manifest.BootInfo, s *storage.Store) ([]byte, error) {
	var e Encoder
	return e.Encode(m, s)
}

func (e *Encoder) plan(s *storage.Store) (Header, error) {
	count := s.Len()
	data := 0
	for i := 0; i < count; i++ {
		_, v := s.Entry(i)
		data += pad(len(v))
	}
	if uint64(count) > math.MaxUint32 || uint64(data) > math.MaxUint32 {
		return Header{}, model.NewError(model.KindSerialization, model.CodeCapacityExceeded,
			fmt.Sprintf("codec: %d entries / %d data bytes exceed the format limit", count, data))
	}
	h := Header{Version: Version, Count: uint32(count), DataLen: uint32(data)}
	if e.MaxSize > 0 && h.Size() > e.MaxSize {
		return Header{}, model.NewError(model.KindSerialization, model.CodeCapacityExceeded,
			fmt.Sprintf("codec: encoded input needs %d bytes, capacity is %d", h.Size(), e.MaxSize))
	}
	return h, nil
}

func write(buf []byte, h Header, m manifest.BootInfo, s *storage.Store) {
	h.put(buf[:HeaderSize])
	m.PutRecord(buf[ManifestOffset:IndexOffset])

	index := buf[IndexOffset:h.DataOffset()]
	data := buf[h.DataOffset():]
	off := 0
	for i := 0; i < int(h.Count); i++ {
		k, v := s.Entry(i)
		ent := index[i*IndexEntrySize : (i+1)*IndexEntrySize]
		copy(ent[:preimage.KeySize], k[:])
		binary.LittleEndian.PutUint32(ent[preimage.KeySize:], uint32(off))
		binary.LittleEndian.PutUint32(ent[preimage.KeySize+4:], uint32(len(v)))
		copy(data[off:], v)
		off += pad(len(v))
	}
}
