// Package preimage defines the 32-byte keys of the witness store and checks
// that a value really is the preimage its key commits to.
package preimage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the length of a preimage key in bytes.
const KeySize = 32

// KeyType is the first byte of a preimage key.
type KeyType uint8

const (
	KeyTypeLocal         KeyType = 1
	KeyTypeKeccak256     KeyType = 2
	KeyTypeGlobalGeneric KeyType = 3
	KeyTypeSha256        KeyType = 4
	KeyTypeBlob          KeyType = 5
	KeyTypePrecompile    KeyType = 6
)

var (
	ErrInvalidKey  = errors.New("preimage: invalid key")
	ErrKeyMismatch = errors.New("preimage: value does not hash to key")
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeLocal:
		return "local"
	case KeyTypeKeccak256:
		return "keccak256"
	case KeyTypeGlobalGeneric:
		return "global-generic"
	case KeyTypeSha256:
		return "sha256"
	case KeyTypeBlob:
		return "blob"
	case KeyTypePrecompile:
		return "precompile"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid reports whether t is a known key type.
func (t KeyType) Valid() bool {
	return t >= KeyTypeLocal && t <= KeyTypePrecompile
}

// Verifiable reports whether a key of type t is derived from the value alone,
// so that hash(value) can be checked against it.
func (t KeyType) Verifiable() bool {
	return t == KeyTypeKeccak256 || t == KeyTypeSha256
}

// Key is a preimage key.
type Key [KeySize]byte

// Type returns the key's type byte.
func (k Key) Type() KeyType { return KeyType(k[0]) }

// Hex returns the 0x-prefixed lowercase hex form of k.
func (k Key) Hex() string { return "0x" + hex.EncodeToString(k[:]) }

func (k Key) String() string { return k.Hex() }

// ParseKey decodes 64 hex characters with an optional 0x prefix.
func ParseKey(s string) (Key, error) {
	body := s
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		body = body[2:]
	}
	if len(body) != 2*KeySize {
		return Key{}, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidKey, 2*KeySize, len(body))
	}
	var k Key
	if _, err := hex.Decode(k[:], []byte(body)); err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return k, nil
}

// KeyFromBytes copies a 32-byte slice into a Key.
func KeyFromBytes(b []byte) (Key, error) {
	if len(b) != KeySize {
		return Key{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(b))
	}
	var k Key
	copy(k[:], b)
	return k, nil
}

// LocalKey returns the local-type key for a small integer identifier, the
// convention used for host-provided boot values.
func LocalKey(id uint64) Key {
	var k Key
	k[0] = byte(KeyTypeLocal)
	for i := 0; i < 8; i++ {
		k[KeySize-1-i] = byte(id >> (8 * i))
	}
	return k
}
