package preimage

import (
	"bytes"
	"fmt"

	"github.com/multiformats/go-multihash"
)

// KeccakKey returns the keccak256-type key for value.
func KeccakKey(value []byte) Key {
	return typedKey(KeyTypeKeccak256, mustDigest(value, multihash.KECCAK_256))
}

// Sha256Key returns the sha256-type key for value.
func Sha256Key(value []byte) Key {
	return typedKey(KeyTypeSha256, mustDigest(value, multihash.SHA2_256))
}

// Verify checks that value is the preimage k commits to.
//
// Keys whose type is not derived from the value alone (local, generic, blob,
// precompile) cannot be checked and are accepted. Unknown key types fail with
// ErrInvalidKey; a digest mismatch fails with ErrKeyMismatch.
func Verify(k Key, value []byte) error {
	t := k.Type()
	if !t.Valid() {
		return fmt.Errorf("%w: key %s has unknown type %d", ErrInvalidKey, k, uint8(t))
	}
	var code uint64
	switch t {
	case KeyTypeKeccak256:
		code = multihash.KECCAK_256
	case KeyTypeSha256:
		code = multihash.SHA2_256
	default:
		return nil
	}
	d, err := digest(value, code)
	if err != nil {
		return err
	}
	if !bytes.Equal(d[1:], k[1:]) {
		return fmt.Errorf("%w: key %s", ErrKeyMismatch, k)
	}
	return nil
}

func digest(value []byte, code uint64) ([]byte, error) {
	mh, err := multihash.Sum(value, code, -1)
	if err != nil {
		return nil, err
	}
	dec, err := multihash.Decode(mh)
	if err != nil {
		return nil, err
	}
	return dec.Digest, nil
}

func mustDigest(value []byte, code uint64) []byte {
	d, err := digest(value, code)
	if err != nil {
		// multihash.Sum only errors for unregistered codes; both codes used
		// here are always registered.
		panic(err)
	}
	return d
}

func typedKey(t KeyType, d []byte) Key {
	var k Key
	copy(k[:], d)
	k[0] = byte(t)
	return k
}
