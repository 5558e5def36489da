package zkvm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ProvingKey is produced by Setup and consumed by Prove.
type ProvingKey struct {
	ProgramID string `cbor:"1,keyasint"`
	Scheme    string `cbor:"2,keyasint"`
	Key       []byte `cbor:"3,keyasint"`
}

// VerifyingKey is produced by Setup and consumed by Verify.
type VerifyingKey struct {
	ProgramID string `cbor:"1,keyasint"`
	Scheme    string `cbor:"2,keyasint"`
	Key       []byte `cbor:"3,keyasint"`
}

// Receipt is the proof artifact of one run.
type Receipt struct {
	ProgramID    string      `cbor:"1,keyasint"`
	InputDigest  common.Hash `cbor:"2,keyasint"`
	PublicValues []byte      `cbor:"3,keyasint"`
	Cycles       uint64      `cbor:"4,keyasint"`
	Scheme       string      `cbor:"5,keyasint"`
	Proof        []byte      `cbor:"6,keyasint,omitempty"`
}

// Claims returns the encoding of everything the proof attests to, that is
// the receipt without its proof.
func (r *Receipt) Claims() ([]byte, error) {
	c := *r
	c.Proof = nil
	return Marshal(&c)
}

// MarshalBinary encodes the receipt as deterministic CBOR.
func (r *Receipt) MarshalBinary() ([]byte, error) {
	return Marshal(r)
}

// UnmarshalReceipt decodes a receipt written by MarshalBinary.
func UnmarshalReceipt(b []byte) (*Receipt, error) {
	var r Receipt
	if err := Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("zkvm: decode receipt: %w", err)
	}
	return &r, nil
}

// CID addresses the encoded receipt.
func (r *Receipt) CID() (cid.Cid, error) {
	b, err := r.MarshalBinary()
	if err != nil {
		return cid.Undef, err
	}
	mh, err := multihash.Sum(b, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}
