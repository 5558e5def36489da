package local

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"

	"xdao.co/zkhost/zkvm"
)

// Scheme names the signature scheme that stands in for a proof system.
type Scheme string

const (
	SchemeEd25519    Scheme = "ed25519"
	SchemeDilithium3 Scheme = "dilithium3"
)

const seedSize = 32

// ParseScheme accepts the scheme names above; empty selects ed25519.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case "", SchemeEd25519:
		return SchemeEd25519, nil
	case SchemeDilithium3:
		return SchemeDilithium3, nil
	default:
		return "", fmt.Errorf("local: unknown scheme %q", s)
	}
}

// deriveSeed binds the key pair to the program image, so Setup is
// deterministic and a key never verifies receipts of another program.
func deriveSeed(p zkvm.Program, s Scheme) ([]byte, error) {
	kdf := hkdf.New(sha256.New, p.Image, []byte("xdao-zkhost-local-prover-v1"), []byte("scheme:"+string(s)))
	seed := make([]byte, seedSize)
	if _, err := io.ReadFull(kdf, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

func publicKey(s Scheme, seed []byte) ([]byte, error) {
	switch s {
	case SchemeEd25519:
		priv := ed25519.NewKeyFromSeed(seed)
		return append([]byte(nil), priv.Public().(ed25519.PublicKey)...), nil
	case SchemeDilithium3:
		var sd [mode3.SeedSize]byte
		copy(sd[:], seed)
		pk, _ := mode3.NewKeyFromSeed(&sd)
		return pk.Bytes(), nil
	default:
		return nil, fmt.Errorf("local: unknown scheme %q", s)
	}
}

func sign(s Scheme, seed, msg []byte) ([]byte, error) {
	if len(seed) != seedSize {
		return nil, fmt.Errorf("local: proving key must be %d bytes, got %d", seedSize, len(seed))
	}
	switch s {
	case SchemeEd25519:
		digest := sha256.Sum256(msg)
		return ed25519.Sign(ed25519.NewKeyFromSeed(seed), digest[:]), nil
	case SchemeDilithium3:
		var sd [mode3.SeedSize]byte
		copy(sd[:], seed)
		_, sk := mode3.NewKeyFromSeed(&sd)
		digest := sha3.Sum256(msg)
		sig := make([]byte, mode3.SignatureSize)
		mode3.SignTo(sk, digest[:], sig)
		return sig, nil
	default:
		return nil, fmt.Errorf("local: unknown scheme %q", s)
	}
}

func verify(s Scheme, pub, msg, sig []byte) bool {
	switch s {
	case SchemeEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return false
		}
		digest := sha256.Sum256(msg)
		return ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig)
	case SchemeDilithium3:
		if len(sig) != mode3.SignatureSize {
			return false
		}
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return false
		}
		digest := sha3.Sum256(msg)
		return mode3.Verify(&pk, digest[:], sig)
	default:
		return false
	}
}
