package zkvm

import (
	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes v as deterministic CBOR. Stdin frames, receipts and the
// remote prover's payloads all use it.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR produced by Marshal.
func Unmarshal(b []byte, v any) error {
	return cbor.Unmarshal(b, v)
}
