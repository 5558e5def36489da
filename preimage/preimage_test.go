package preimage

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeccakKeyMatchesKeccak256(t *testing.T) {
	value := []byte("state trie node")
	k := KeccakKey(value)

	want := crypto.Keccak256(value)
	assert.Equal(t, KeyTypeKeccak256, k.Type())
	assert.Equal(t, want[1:], k[1:])
	require.NoError(t, Verify(k, value))
}

func TestSha256Key(t *testing.T) {
	value := []byte("blob commitment")
	k := Sha256Key(value)

	want := sha256.Sum256(value)
	assert.Equal(t, KeyTypeSha256, k.Type())
	assert.Equal(t, want[1:], k[1:])
	require.NoError(t, Verify(k, value))
}

func TestVerifyDetectsMismatch(t *testing.T) {
	k := KeccakKey([]byte("original"))
	assert.ErrorIs(t, Verify(k, []byte("tampered")), ErrKeyMismatch)

	s := Sha256Key([]byte("original"))
	assert.ErrorIs(t, Verify(s, []byte("tampered")), ErrKeyMismatch)
}

func TestVerifyAcceptsUnverifiableTypes(t *testing.T) {
	for _, typ := range []KeyType{KeyTypeLocal, KeyTypeGlobalGeneric, KeyTypeBlob, KeyTypePrecompile} {
		var k Key
		k[0] = byte(typ)
		k[31] = 7
		assert.NoError(t, Verify(k, []byte{1, 2, 3}), typ.String())
		assert.False(t, typ.Verifiable())
	}
}

func TestVerifyRejectsUnknownType(t *testing.T) {
	for _, b := range []byte{0, 7, 0xff} {
		var k Key
		k[0] = b
		assert.ErrorIs(t, Verify(k, nil), ErrInvalidKey)
	}
}

func TestParseKey(t *testing.T) {
	k := KeccakKey([]byte("x"))

	got, err := ParseKey(k.Hex())
	require.NoError(t, err)
	assert.Equal(t, k, got)

	got, err = ParseKey(strings.TrimPrefix(k.Hex(), "0x"))
	require.NoError(t, err)
	assert.Equal(t, k, got)

	for _, bad := range []string{"", "0x", strings.Repeat("a", 63), strings.Repeat("q", 64)} {
		_, err := ParseKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestKeyFromBytes(t *testing.T) {
	_, err := KeyFromBytes(make([]byte, 31))
	assert.ErrorIs(t, err, ErrInvalidKey)

	b := make([]byte, 32)
	b[0] = 1
	k, err := KeyFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, KeyTypeLocal, k.Type())
}

func TestLocalKey(t *testing.T) {
	k := LocalKey(0x0102)
	assert.Equal(t, KeyTypeLocal, k.Type())
	assert.Equal(t, byte(0x01), k[30])
	assert.Equal(t, byte(0x02), k[31])
}

func TestCIDs(t *testing.T) {
	value := []byte("program image")

	c1, err := CIDv1RawSHA256(value)
	require.NoError(t, err)
	c2, err := CIDv1RawSHA256(value)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	kc, err := CIDv1RawKeccak256(value)
	require.NoError(t, err)
	assert.NotEqual(t, c1, kc)

	k := KeccakKey(value)
	digest := kc.Hash()[len(kc.Hash())-32:]
	assert.Equal(t, []byte(digest[1:]), k[1:])
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Strict, m)

	m, err = ParseMode("permissive")
	require.NoError(t, err)
	assert.Equal(t, Permissive, m)

	_, err = ParseMode("lenient")
	assert.Error(t, err)
}
