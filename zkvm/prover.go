package zkvm

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidProof   = errors.New("zkvm: invalid proof")
	ErrUnknownProgram = errors.New("zkvm: unknown program")
	ErrCycleLimit     = errors.New("zkvm: cycle limit exceeded")
)

// Report describes a finished run.
type Report struct {
	PublicValues []byte `cbor:"1,keyasint"`
	Cycles       uint64 `cbor:"2,keyasint"`
	ExitCode     int    `cbor:"3,keyasint"`
}

// Prover drives a deterministic executor. Implementations honor ctx
// cancellation and deadlines on every call.
type Prover interface {
	Setup(ctx context.Context, p Program) (*ProvingKey, *VerifyingKey, error)
	Execute(ctx context.Context, p Program, stdin *Stdin) (*Report, error)
	Prove(ctx context.Context, pk *ProvingKey, stdin *Stdin) (*Receipt, error)
	Verify(ctx context.Context, r *Receipt, vk *VerifyingKey) error
}

// ExecutionFailure is returned when the guest itself does not terminate
// successfully. It carries enough to debug the run offline.
type ExecutionFailure struct {
	Cycles   uint64
	ExitCode int
	// Trace is a free-form reference to the failure site (panic message,
	// guest error, or an external trace location).
	Trace string
	Err   error
}

func (f *ExecutionFailure) Error() string {
	msg := fmt.Sprintf("zkvm: guest failed after %d cycles (exit code %d)", f.Cycles, f.ExitCode)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *ExecutionFailure) Unwrap() error { return f.Err }
