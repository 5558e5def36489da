// Package host drives one claim through the pipeline: load the witness
// store, encode it with the boot manifest, then execute or prove and verify
// the guest program over that input.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/zkhost/codec"
	"xdao.co/zkhost/manifest"
	"xdao.co/zkhost/model"
	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/zkvm"
)

// Loader returns the witness store for a block height. *storage.Loader is
// the usual implementation.
type Loader interface {
	Load(ctx context.Context, height uint64) (*storage.Store, error)
}

// Observer is told about every state transition of a run.
type Observer func(from, to State)

// Host runs claims. Runs share nothing mutable, so one Host may serve
// concurrent runs as long as its Loader and Prover allow it.
type Host struct {
	Loader  Loader
	Prover  zkvm.Prover
	Program zkvm.Program

	// MaxInputBytes caps the encoded input when positive.
	MaxInputBytes int
	// Timeout bounds setup, proving, execution and verification when positive.
	Timeout time.Duration

	Logger   zerolog.Logger
	Observer Observer
}

// RunRaw builds the manifest from raw and runs it in prove mode.
func (h *Host) RunRaw(ctx context.Context, raw manifest.Raw) (*Result, error) {
	m, err := manifest.Build(raw)
	if err != nil {
		return h.start(ModeProve, manifest.BootInfo{}).fail(err)
	}
	return h.Run(ctx, m)
}

// ExecuteRaw builds the manifest from raw and runs it in execute mode.
func (h *Host) ExecuteRaw(ctx context.Context, raw manifest.Raw) (*Result, error) {
	m, err := manifest.Build(raw)
	if err != nil {
		return h.start(ModeExecute, manifest.BootInfo{}).fail(err)
	}
	return h.Execute(ctx, m)
}

// Run proves the claim m and verifies the proof.
//
// The returned Result is never nil. On failure its State is StateFailed and
// the error, also returned, is a *model.Error.
func (h *Host) Run(ctx context.Context, m manifest.BootInfo) (*Result, error) {
	r := h.start(ModeProve, m)
	stdin, err := r.assemble(ctx)
	if err != nil {
		return r.fail(err)
	}
	if err := r.advance(StateProving); err != nil {
		return r.fail(err)
	}

	ctx, cancel := h.deadline(ctx)
	defer cancel()

	pk, vk, err := h.Prover.Setup(ctx, h.Program)
	if err != nil {
		return r.fail(executionError(model.CodeSetup, "setup "+h.Program.String(), err))
	}
	r.log.Info().Msg("proving")
	receipt, err := h.Prover.Prove(ctx, pk, stdin)
	if err != nil {
		return r.fail(executionError(model.CodeProve, "prove", err))
	}
	r.res.Receipt = receipt
	if err := r.advance(StateProved); err != nil {
		return r.fail(err)
	}
	r.log.Info().Uint64("cycles", receipt.Cycles).Msg("generated proof")

	if err := h.Prover.Verify(ctx, receipt, vk); err != nil {
		if isDeadline(err) {
			return r.fail(executionError(model.CodeDeadline, "verify", err))
		}
		return r.fail(model.WrapError(model.KindVerification, model.CodeInvalidProof, "host: proof rejected", err))
	}
	if err := r.checkBinding(receipt); err != nil {
		return r.fail(err)
	}
	if err := r.advance(StateVerified); err != nil {
		return r.fail(err)
	}
	r.log.Info().Msg("verified")
	return r.res, nil
}

// Execute runs the guest over the claim's input without proving and checks
// that the guest accepted the claim.
func (h *Host) Execute(ctx context.Context, m manifest.BootInfo) (*Result, error) {
	r := h.start(ModeExecute, m)
	stdin, err := r.assemble(ctx)
	if err != nil {
		return r.fail(err)
	}
	if err := r.advance(StateExecuting); err != nil {
		return r.fail(err)
	}

	ctx, cancel := h.deadline(ctx)
	defer cancel()

	rep, err := h.Prover.Execute(ctx, h.Program, stdin)
	if err != nil {
		return r.fail(executionError(model.CodeProve, "execute", err))
	}
	r.res.Report = rep
	if err := r.checkPublicValues(rep.PublicValues); err != nil {
		return r.fail(err)
	}
	if err := r.advance(StateExecuted); err != nil {
		return r.fail(err)
	}
	r.log.Info().Uint64("cycles", rep.Cycles).Msg("executed")
	return r.res, nil
}

// Encode loads the store for m and returns the encoded input buffer, without
// running anything.
func (h *Host) Encode(ctx context.Context, m manifest.BootInfo) ([]byte, *storage.Store, error) {
	if h.Loader == nil {
		return nil, nil, model.NewError(model.KindLoad, model.CodeUnavailable, "host: no loader configured")
	}
	s, err := h.load(ctx, m.L2ClaimBlock)
	if err != nil {
		return nil, nil, err
	}
	buf, err := codec.NewEncoder(h.MaxInputBytes).Encode(m, s)
	if err != nil {
		return nil, nil, err
	}
	return buf, s, nil
}

func (h *Host) load(ctx context.Context, height uint64) (*storage.Store, error) {
	s, err := h.Loader.Load(ctx, height)
	if err != nil {
		if model.KindOf(err) == "" {
			err = model.WrapError(model.KindLoad, model.CodeUnavailable,
				fmt.Sprintf("host: load store for block %d", height), err)
		}
		return nil, err
	}
	return s, nil
}

func (h *Host) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.Timeout > 0 {
		return context.WithTimeout(ctx, h.Timeout)
	}
	return context.WithCancel(ctx)
}

type run struct {
	h   *Host
	res *Result
	log zerolog.Logger
}

func (h *Host) start(mode Mode, m manifest.BootInfo) *run {
	res := &Result{
		Mode:      mode,
		State:     StateIdle,
		History:   []State{StateIdle},
		Manifest:  m,
		ProgramID: h.Program.ID(),
	}
	log := h.Logger.With().
		Str("component", "host").
		Str("mode", string(mode)).
		Uint64("block", m.L2ClaimBlock).
		Logger()
	return &run{h: h, res: res, log: log}
}

func (r *run) advance(to State) error {
	from := r.res.State
	if err := checkTransition(from, to); err != nil {
		return err
	}
	r.res.State = to
	r.res.History = append(r.res.History, to)
	r.log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("state transition")
	if r.h.Observer != nil {
		r.h.Observer(from, to)
	}
	return nil
}

func (r *run) fail(err error) (*Result, error) {
	r.res.Err = err
	if !r.res.State.Terminal() {
		_ = r.advance(StateFailed)
	}
	r.log.Error().Err(err).
		Str("kind", string(model.KindOf(err))).
		Str("code", string(model.CodeOf(err))).
		Bool("retryable", model.Retryable(err)).
		Msg("run failed")
	return r.res, err
}

// assemble loads and encodes the input and moves the run to InputAssembled.
func (r *run) assemble(ctx context.Context) (*zkvm.Stdin, error) {
	if r.h.Loader == nil || r.h.Prover == nil {
		return nil, model.NewError(model.KindExecution, model.CodeSetup, "host: loader and prover are required")
	}
	m := r.res.Manifest

	s, err := r.h.load(ctx, m.L2ClaimBlock)
	if err != nil {
		return nil, err
	}
	r.res.StoreEntries = s.Len()
	r.res.StoreBytes = s.Size()
	r.log.Info().Int("entries", s.Len()).Int("bytes", s.Size()).Msg("loaded witness store")

	buf, err := codec.NewEncoder(r.h.MaxInputBytes).Encode(m, s)
	if err != nil {
		return nil, err
	}

	stdin := &zkvm.Stdin{}
	if err := stdin.Write(m); err != nil {
		return nil, model.WrapError(model.KindSerialization, model.CodeEncoding, "host: write boot info", err)
	}
	stdin.WriteSlice(buf)
	r.res.InputBytes = len(buf)
	r.res.InputDigest = stdin.Digest()

	if err := r.advance(StateInputAssembled); err != nil {
		return nil, err
	}
	r.log.Info().Int("bytes", len(buf)).Str("digest", r.res.InputDigest.Hex()).Msg("input assembled")
	return stdin, nil
}

// checkBinding ties a verified receipt to this run: right program, right
// input, and public values that accept the requested claim.
func (r *run) checkBinding(receipt *zkvm.Receipt) error {
	if want := r.res.ProgramID.String(); receipt.ProgramID != want {
		return model.NewError(model.KindVerification, model.CodeInvalidProof,
			fmt.Sprintf("host: receipt is for program %s, want %s", receipt.ProgramID, want))
	}
	if receipt.InputDigest != r.res.InputDigest {
		return model.NewError(model.KindVerification, model.CodeInvalidProof,
			fmt.Sprintf("host: receipt input digest %s does not match %s", receipt.InputDigest.Hex(), r.res.InputDigest.Hex()))
	}
	return r.checkPublicValues(receipt.PublicValues)
}

func (r *run) checkPublicValues(public []byte) error {
	want := r.res.Manifest.Commitment()
	if !bytes.Equal(public, want[:]) {
		return model.NewError(model.KindVerification, model.CodeClaimMismatch,
			fmt.Sprintf("host: guest does not support claim %s at block %d", r.res.Manifest.L2Claim.Hex(), r.res.Manifest.L2ClaimBlock))
	}
	return nil
}

func executionError(code model.Code, stage string, err error) error {
	if isDeadline(err) {
		return model.WrapError(model.KindExecution, model.CodeDeadline, "host: "+stage+": deadline exceeded", err)
	}
	return model.WrapError(model.KindExecution, code, "host: "+stage+" failed", err)
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
