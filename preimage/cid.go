package preimage

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256 returns a CIDv1 (raw + sha2-256) derived from data.
//
// This is the identity used for program images, receipts and exported store
// bundles, so that they can be cross-checked against any IPFS tooling.
func CIDv1RawSHA256(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// CIDv1RawKeccak256 returns a CIDv1 (raw + keccak-256) derived from data. For
// a keccak256-type key, the CID digest equals the key apart from its type byte.
func CIDv1RawKeccak256(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.KECCAK_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
