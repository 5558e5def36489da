package zkvm

import (
	"errors"
	"fmt"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Program is a guest program image.
type Program struct {
	Name  string `cbor:"1,keyasint"`
	Image []byte `cbor:"2,keyasint"`
}

// ID identifies the image: CIDv1, raw codec, sha2-256.
func (p Program) ID() cid.Cid {
	mh, err := multihash.Sum(p.Image, multihash.SHA2_256, -1)
	if err != nil {
		// sha2-256 is always registered.
		panic(err)
	}
	return cid.NewCidV1(cid.Raw, mh)
}

func (p Program) String() string {
	if p.Name == "" {
		return p.ID().String()
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.ID())
}

// LoadProgram reads a program image from disk.
func LoadProgram(path string) (Program, error) {
	if path == "" {
		return Program{}, errors.New("zkvm: empty program path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Program{}, err
	}
	if len(b) == 0 {
		return Program{}, fmt.Errorf("zkvm: program image %s is empty", path)
	}
	return Program{Name: path, Image: b}, nil
}
