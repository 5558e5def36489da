package zkvm

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Stdin is the ordered input stream a guest reads from. Each Write appends
// one frame; the guest consumes frames in the same order.
type Stdin struct {
	Frames [][]byte `cbor:"1,keyasint"`
}

// Write appends v as a structured record (deterministic CBOR).
func (s *Stdin) Write(v any) error {
	b, err := Marshal(v)
	if err != nil {
		return err
	}
	s.Frames = append(s.Frames, b)
	return nil
}

// WriteSlice appends b as a raw frame. The frame aliases b.
func (s *Stdin) WriteSlice(b []byte) {
	s.Frames = append(s.Frames, b)
}

// Len returns the total payload size in bytes.
func (s *Stdin) Len() int {
	n := 0
	for _, f := range s.Frames {
		n += len(f)
	}
	return n
}

// Digest commits to the whole stream: keccak256 over u64le(len) || frame for
// every frame in order.
func (s *Stdin) Digest() common.Hash {
	h := sha3.NewLegacyKeccak256()
	var n [8]byte
	for _, f := range s.Frames {
		binary.LittleEndian.PutUint64(n[:], uint64(len(f)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(f)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}
