// Package codec serializes a boot manifest and its witness store into the
// single input buffer handed to the guest program.
//
// Layout (little-endian):
//
//	0    magic    "ZKIN"
//	4    version  u16
//	6    flags    u16 (must be zero)
//	8    count    u32 number of entries
//	12   dataLen  u32 bytes in the data section
//	16   manifest BootInfo record
//	128  index    count x {key [32], offset u32, length u32}, keys strictly ascending
//	..   data     values, each zero-padded to an 8-byte boundary
//
// A guest reads manifest fields and values straight out of the buffer.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"xdao.co/zkhost/manifest"
	"xdao.co/zkhost/preimage"
)

const (
	Magic   = "ZKIN"
	Version = 1

	HeaderSize     = 16
	ManifestOffset = HeaderSize
	IndexOffset    = ManifestOffset + manifest.RecordSize
	IndexEntrySize = preimage.KeySize + 4 + 4
	Alignment      = 8
)

var ErrMalformed = errors.New("codec: malformed input buffer")

// Header is the fixed prefix of an encoded buffer.
type Header struct {
	Version uint16
	Flags   uint16
	Count   uint32
	DataLen uint32
}

// DataOffset is where the data section starts.
func (h Header) DataOffset() int {
	return IndexOffset + int(h.Count)*IndexEntrySize
}

// Size is the total buffer length the header describes.
func (h Header) Size() int {
	return h.DataOffset() + int(h.DataLen)
}

func (h Header) put(dst []byte) {
	copy(dst[0:4], Magic)
	binary.LittleEndian.PutUint16(dst[4:6], h.Version)
	binary.LittleEndian.PutUint16(dst[6:8], h.Flags)
	binary.LittleEndian.PutUint32(dst[8:12], h.Count)
	binary.LittleEndian.PutUint32(dst[12:16], h.DataLen)
}

// ReadHeader parses and checks the fixed header of buf.
func ReadHeader(buf []byte) (Header, error) {
	if len(buf) < IndexOffset {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the fixed prefix", ErrMalformed, len(buf))
	}
	if string(buf[0:4]) != Magic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrMalformed, buf[0:4])
	}
	h := Header{
		Version: binary.LittleEndian.Uint16(buf[4:6]),
		Flags:   binary.LittleEndian.Uint16(buf[6:8]),
		Count:   binary.LittleEndian.Uint32(buf[8:12]),
		DataLen: binary.LittleEndian.Uint32(buf[12:16]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrMalformed, h.Version)
	}
	if h.Flags != 0 {
		return Header{}, fmt.Errorf("%w: unknown flags %#x", ErrMalformed, h.Flags)
	}
	if uint64(len(buf)) != uint64(IndexOffset)+uint64(h.Count)*IndexEntrySize+uint64(h.DataLen) {
		return Header{}, fmt.Errorf("%w: length %d does not match header (count=%d dataLen=%d)", ErrMalformed, len(buf), h.Count, h.DataLen)
	}
	return h, nil
}

func pad(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}
