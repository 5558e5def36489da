// Package local is an in-process zkvm.Prover. Guests are Go functions
// registered against a program image; receipts are signatures over the run's
// claims with a key derived from that image.
//
// It does not prove anything in the cryptographic sense and exists for
// development, execute-only runs and tests.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"

	"xdao.co/zkhost/zkvm"
)

// Prover runs registered guests in process.
type Prover struct {
	Scheme    Scheme
	MaxCycles uint64
	Logger    zerolog.Logger

	mu     sync.RWMutex
	guests map[string]Guest
}

var _ zkvm.Prover = (*Prover)(nil)

// New returns a Prover signing with scheme.
func New(scheme Scheme) *Prover {
	return &Prover{Scheme: scheme, Logger: zerolog.Nop(), guests: map[string]Guest{}}
}

// Register makes g the body of program p.
func (lp *Prover) Register(p zkvm.Program, g Guest) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.guests == nil {
		lp.guests = map[string]Guest{}
	}
	lp.guests[p.ID().String()] = g
}

func (lp *Prover) guest(programID string) (Guest, error) {
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	g, ok := lp.guests[programID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", zkvm.ErrUnknownProgram, programID)
	}
	return g, nil
}

func (lp *Prover) scheme() Scheme {
	if lp.Scheme == "" {
		return SchemeEd25519
	}
	return lp.Scheme
}

func (lp *Prover) Setup(ctx context.Context, p zkvm.Program) (*zkvm.ProvingKey, *zkvm.VerifyingKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	id := p.ID().String()
	if _, err := lp.guest(id); err != nil {
		return nil, nil, err
	}
	s := lp.scheme()
	seed, err := deriveSeed(p, s)
	if err != nil {
		return nil, nil, err
	}
	pub, err := publicKey(s, seed)
	if err != nil {
		return nil, nil, err
	}
	lp.Logger.Debug().Str("program", id).Str("scheme", string(s)).Msg("setup")
	return &zkvm.ProvingKey{ProgramID: id, Scheme: string(s), Key: seed},
		&zkvm.VerifyingKey{ProgramID: id, Scheme: string(s), Key: pub}, nil
}

func (lp *Prover) Execute(ctx context.Context, p zkvm.Program, stdin *zkvm.Stdin) (*zkvm.Report, error) {
	return lp.run(ctx, p.ID().String(), stdin)
}

func (lp *Prover) Prove(ctx context.Context, pk *zkvm.ProvingKey, stdin *zkvm.Stdin) (*zkvm.Receipt, error) {
	if pk == nil {
		return nil, errors.New("local: nil proving key")
	}
	rep, err := lp.run(ctx, pk.ProgramID, stdin)
	if err != nil {
		return nil, err
	}
	r := &zkvm.Receipt{
		ProgramID:    pk.ProgramID,
		InputDigest:  stdin.Digest(),
		PublicValues: rep.PublicValues,
		Cycles:       rep.Cycles,
		Scheme:       pk.Scheme,
	}
	claims, err := r.Claims()
	if err != nil {
		return nil, err
	}
	if r.Proof, err = sign(Scheme(pk.Scheme), pk.Key, claims); err != nil {
		return nil, err
	}
	lp.Logger.Debug().Str("program", pk.ProgramID).Uint64("cycles", rep.Cycles).Msg("proved")
	return r, nil
}

func (lp *Prover) Verify(ctx context.Context, r *zkvm.Receipt, vk *zkvm.VerifyingKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r == nil || vk == nil {
		return fmt.Errorf("%w: missing receipt or verifying key", zkvm.ErrInvalidProof)
	}
	if r.ProgramID != vk.ProgramID {
		return fmt.Errorf("%w: receipt is for program %s, key is for %s", zkvm.ErrInvalidProof, r.ProgramID, vk.ProgramID)
	}
	if r.Scheme != vk.Scheme {
		return fmt.Errorf("%w: scheme %q does not match key scheme %q", zkvm.ErrInvalidProof, r.Scheme, vk.Scheme)
	}
	claims, err := r.Claims()
	if err != nil {
		return fmt.Errorf("%w: %v", zkvm.ErrInvalidProof, err)
	}
	if !verify(Scheme(vk.Scheme), vk.Key, claims, r.Proof) {
		return fmt.Errorf("%w: signature check failed", zkvm.ErrInvalidProof)
	}
	return nil
}

func (lp *Prover) run(ctx context.Context, programID string, stdin *zkvm.Stdin) (rep *zkvm.Report, err error) {
	g, err := lp.guest(programID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := newEnv(ctx, stdin, lp.MaxCycles)

	defer func() {
		if v := recover(); v != nil {
			rep = nil
			err = &zkvm.ExecutionFailure{
				Cycles:   env.cycles,
				ExitCode: 101,
				Trace:    fmt.Sprintf("panic: %v\n%s", v, bytes.TrimSpace(debug.Stack())),
				Err:      fmt.Errorf("guest panicked: %v", v),
			}
		}
	}()

	if gerr := g(env); gerr != nil {
		return nil, &zkvm.ExecutionFailure{
			Cycles:   env.cycles,
			ExitCode: 1,
			Trace:    gerr.Error(),
			Err:      gerr,
		}
	}
	return &zkvm.Report{PublicValues: env.public, Cycles: env.cycles}, nil
}
