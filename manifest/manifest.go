// Package manifest builds the boot manifest: the public parameters that name
// the L2 state-transition claim being proven.
package manifest

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"xdao.co/zkhost/model"
)

// RecordSize is the length of the canonical binary boot record.
const RecordSize = 3*common.HashLength + 8 + 8

var ErrRecordSize = errors.New("manifest: invalid record size")

// BootInfo is the boot manifest. It is a value type; once built it is never
// mutated. Binary codecs (including CBOR) see it as its canonical record.
type BootInfo struct {
	L1Head       common.Hash `json:"l1Head"`
	L2OutputRoot common.Hash `json:"l2OutputRoot"`
	L2Claim      common.Hash `json:"l2Claim"`
	L2ClaimBlock uint64      `json:"l2ClaimBlock"`
	ChainID      uint64      `json:"chainId"`
}

// Raw is the unparsed, CLI-shaped form of a BootInfo.
type Raw struct {
	L1Head       string
	L2OutputRoot string
	L2Claim      string
	L2ClaimBlock string
	ChainID      string
}

// Build parses and validates raw into a BootInfo.
//
// On failure the zero BootInfo is returned together with a *model.Error of
// kind Parse naming the first offending field.
func Build(raw Raw) (BootInfo, error) {
	l1Head, err := ParseHash("l1_head", raw.L1Head)
	if err != nil {
		return BootInfo{}, err
	}
	outputRoot, err := ParseHash("l2_output_root", raw.L2OutputRoot)
	if err != nil {
		return BootInfo{}, err
	}
	claim, err := ParseHash("l2_claim", raw.L2Claim)
	if err != nil {
		return BootInfo{}, err
	}
	block, err := ParseNumber("l2_claim_block", raw.L2ClaimBlock)
	if err != nil {
		return BootInfo{}, err
	}
	chainID, err := ParseNumber("chain_id", raw.ChainID)
	if err != nil {
		return BootInfo{}, err
	}
	return BootInfo{
		L1Head:       l1Head,
		L2OutputRoot: outputRoot,
		L2Claim:      claim,
		L2ClaimBlock: block,
		ChainID:      chainID,
	}, nil
}

// ParseHash decodes exactly 64 hex characters, with an optional 0x prefix,
// into a 32-byte hash.
func ParseHash(field, s string) (common.Hash, error) {
	body := s
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		body = body[2:]
	}
	if len(body) != 2*common.HashLength {
		return common.Hash{}, model.NewError(model.KindParse, model.CodeInvalidHash,
			fmt.Sprintf("manifest: %s: want %d hex characters, got %d", field, 2*common.HashLength, len(body)))
	}
	b, err := hex.DecodeString(body)
	if err != nil {
		return common.Hash{}, model.WrapError(model.KindParse, model.CodeInvalidHash,
			fmt.Sprintf("manifest: %s: invalid hex", field), err)
	}
	return common.BytesToHash(b), nil
}

// ParseNumber parses an unsigned 64-bit decimal integer.
func ParseNumber(field, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, model.WrapError(model.KindParse, model.CodeInvalidNumber,
			fmt.Sprintf("manifest: %s: invalid unsigned integer %q", field, s), err)
	}
	return n, nil
}

// MarshalBinary returns the fixed-size canonical record:
// l1_head | l2_output_root | l2_claim | l2_claim_block (u64 LE) | chain_id (u64 LE).
func (b BootInfo) MarshalBinary() ([]byte, error) {
	out := make([]byte, RecordSize)
	b.PutRecord(out)
	return out, nil
}

// PutRecord writes the canonical record into dst, which must hold RecordSize bytes.
func (b BootInfo) PutRecord(dst []byte) {
	_ = dst[RecordSize-1]
	copy(dst[0:32], b.L1Head[:])
	copy(dst[32:64], b.L2OutputRoot[:])
	copy(dst[64:96], b.L2Claim[:])
	binary.LittleEndian.PutUint64(dst[96:104], b.L2ClaimBlock)
	binary.LittleEndian.PutUint64(dst[104:112], b.ChainID)
}

// UnmarshalBinary decodes a canonical record produced by MarshalBinary.
func (b *BootInfo) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return fmt.Errorf("%w: %d", ErrRecordSize, len(data))
	}
	var out BootInfo
	copy(out.L1Head[:], data[0:32])
	copy(out.L2OutputRoot[:], data[32:64])
	copy(out.L2Claim[:], data[64:96])
	out.L2ClaimBlock = binary.LittleEndian.Uint64(data[96:104])
	out.ChainID = binary.LittleEndian.Uint64(data[104:112])
	*b = out
	return nil
}

// Commitment is keccak256 of the canonical record. A guest that accepts the
// claim commits exactly this value as its public output.
func (b BootInfo) Commitment() common.Hash {
	var rec [RecordSize]byte
	b.PutRecord(rec[:])
	return crypto.Keccak256Hash(rec[:])
}

func (b BootInfo) String() string {
	return fmt.Sprintf("BootInfo{l1_head=%s l2_output_root=%s l2_claim=%s l2_claim_block=%d chain_id=%d}",
		b.L1Head.Hex(), b.L2OutputRoot.Hex(), b.L2Claim.Hex(), b.L2ClaimBlock, b.ChainID)
}
