// Package testguest is a toy guest for the local prover. It stands in for a
// real state-transition program: the claim it accepts is
//
//	keccak256(l2_output_root || value_0 || ... || value_n-1)
//
// over the witness values in key order. The guest always commits the boot
// record with the claim it computed, so a witness that does not support the
// requested claim yields public values the host rejects.
package testguest

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"xdao.co/zkhost/codec"
	"xdao.co/zkhost/manifest"
	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/zkvm"
	"xdao.co/zkhost/zkvm/local"
)

var image = []byte("xdao zkhost claim-check guest v1")

// Program returns the guest's program image.
func Program() zkvm.Program {
	return zkvm.Program{Name: "claim-check", Image: image}
}

// Register installs the guest in p.
func Register(p *local.Prover) {
	p.Register(Program(), Guest)
}

// Claim computes the claim a witness store supports.
func Claim(outputRoot common.Hash, s *storage.Store) common.Hash {
	parts := make([][]byte, 0, s.Len()+1)
	parts = append(parts, outputRoot[:])
	s.Range(func(_ preimage.Key, v []byte) bool {
		parts = append(parts, v)
		return true
	})
	return crypto.Keccak256Hash(parts...)
}

// Guest reads the boot manifest and the encoded input, recomputes the claim
// and commits the resulting boot record's commitment.
func Guest(env *local.Env) error {
	var boot manifest.BootInfo
	if err := env.Read(&boot); err != nil {
		return fmt.Errorf("read boot info: %w", err)
	}
	buf, err := env.ReadSlice()
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	encoded, view, err := codec.Decode(buf)
	if err != nil {
		return err
	}
	if encoded != boot {
		return errors.New("boot info does not match the encoded input")
	}

	parts := make([][]byte, 0, view.Len()+1)
	parts = append(parts, boot.L2OutputRoot[:])
	for i := 0; i < view.Len(); i++ {
		v := view.Value(i)
		if err := env.Cycle(uint64(1 + len(v)/32)); err != nil {
			return err
		}
		parts = append(parts, v)
	}

	computed := boot
	computed.L2Claim = crypto.Keccak256Hash(parts...)
	c := computed.Commitment()
	env.Commit(c[:])
	return nil
}
