package host

import (
	"encoding/hex"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"

	"xdao.co/zkhost/manifest"
	"xdao.co/zkhost/model"
	"xdao.co/zkhost/zkvm"
)

// Mode selects what a run does after assembling its input.
type Mode string

const (
	ModeProve   Mode = "prove"
	ModeExecute Mode = "execute"
)

// Result is the outcome of one run. It is returned for failed runs too, with
// State == StateFailed and Err set.
type Result struct {
	Mode     Mode
	State    State
	History  []State
	Manifest manifest.BootInfo

	ProgramID    cid.Cid
	StoreEntries int
	StoreBytes   int
	InputBytes   int
	InputDigest  common.Hash

	// Report is set by execute runs, Receipt by prove runs.
	Report  *zkvm.Report
	Receipt *zkvm.Receipt

	Err error
}

// Cycles returns the executor's cycle count, including for failed runs that
// report one.
func (r *Result) Cycles() uint64 {
	switch {
	case r.Receipt != nil:
		return r.Receipt.Cycles
	case r.Report != nil:
		return r.Report.Cycles
	}
	var f *zkvm.ExecutionFailure
	if errors.As(r.Err, &f) {
		return f.Cycles
	}
	return 0
}

// RunResult projects r for JSON output.
func (r *Result) RunResult() model.RunResult {
	out := model.RunResult{
		State:        string(r.State),
		Mode:         string(r.Mode),
		StoreEntries: r.StoreEntries,
		StoreBytes:   r.StoreBytes,
		InputBytes:   r.InputBytes,
		Cycles:       r.Cycles(),
		Error:        model.NewErrorInfo(r.Err),
	}
	if r.Manifest != (manifest.BootInfo{}) {
		out.L1Head = r.Manifest.L1Head.Hex()
		out.L2OutputRoot = r.Manifest.L2OutputRoot.Hex()
		out.L2Claim = r.Manifest.L2Claim.Hex()
		out.L2ClaimBlock = r.Manifest.L2ClaimBlock
		out.ChainID = r.Manifest.ChainID
	}
	if r.ProgramID.Defined() {
		out.ProgramID = r.ProgramID.String()
	}
	if r.InputDigest != (common.Hash{}) {
		out.InputDigest = r.InputDigest.Hex()
	}
	var public []byte
	switch {
	case r.Receipt != nil:
		public = r.Receipt.PublicValues
		if id, err := r.Receipt.CID(); err == nil {
			out.ReceiptCID = id.String()
		}
	case r.Report != nil:
		public = r.Report.PublicValues
	}
	if len(public) > 0 {
		out.PublicValues = "0x" + hex.EncodeToString(public)
	}
	return out
}
