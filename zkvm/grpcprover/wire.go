package grpcprover

import (
	"errors"

	"xdao.co/zkhost/zkvm"
)

type setupReply struct {
	PK *zkvm.ProvingKey   `cbor:"1,keyasint"`
	VK *zkvm.VerifyingKey `cbor:"2,keyasint"`
}

type executeRequest struct {
	Program zkvm.Program `cbor:"1,keyasint"`
	Stdin   *zkvm.Stdin  `cbor:"2,keyasint"`
}

type proveRequest struct {
	PK    *zkvm.ProvingKey `cbor:"1,keyasint"`
	Stdin *zkvm.Stdin      `cbor:"2,keyasint"`
}

type verifyRequest struct {
	Receipt *zkvm.Receipt      `cbor:"1,keyasint"`
	VK      *zkvm.VerifyingKey `cbor:"2,keyasint"`
}

// runReply carries either a result or the guest's failure. Guest failures
// travel in band so their cycle count and trace survive the hop.
type runReply struct {
	Report  *zkvm.Report  `cbor:"1,keyasint,omitempty"`
	Receipt *zkvm.Receipt `cbor:"2,keyasint,omitempty"`
	Failure *failure      `cbor:"3,keyasint,omitempty"`
}

type verifyReply struct {
	Valid  bool   `cbor:"1,keyasint"`
	Reason string `cbor:"2,keyasint,omitempty"`
}

type failure struct {
	Cycles   uint64 `cbor:"1,keyasint"`
	ExitCode int    `cbor:"2,keyasint"`
	Trace    string `cbor:"3,keyasint"`
	Message  string `cbor:"4,keyasint"`
}

func toWire(f *zkvm.ExecutionFailure) *failure {
	w := &failure{Cycles: f.Cycles, ExitCode: f.ExitCode, Trace: f.Trace}
	if f.Err != nil {
		w.Message = f.Err.Error()
	}
	return w
}

func (w *failure) executionFailure() *zkvm.ExecutionFailure {
	f := &zkvm.ExecutionFailure{Cycles: w.Cycles, ExitCode: w.ExitCode, Trace: w.Trace}
	if w.Message != "" {
		f.Err = errors.New(w.Message)
	}
	return f
}
