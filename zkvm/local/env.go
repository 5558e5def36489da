package local

import (
	"context"
	"fmt"
	"io"

	"xdao.co/zkhost/zkvm"
)

// Guest is a program body run by the local executor. It reads its input
// through env and commits public values back through it.
type Guest func(env *Env) error

// Env is the guest's view of one run.
type Env struct {
	ctx       context.Context
	frames    [][]byte
	next      int
	cycles    uint64
	maxCycles uint64
	public    []byte
}

func newEnv(ctx context.Context, stdin *zkvm.Stdin, maxCycles uint64) *Env {
	var frames [][]byte
	if stdin != nil {
		frames = stdin.Frames
	}
	return &Env{ctx: ctx, frames: frames, maxCycles: maxCycles}
}

// Read decodes the next frame, written with Stdin.Write, into v.
func (e *Env) Read(v any) error {
	f, err := e.frame()
	if err != nil {
		return err
	}
	if err := zkvm.Unmarshal(f, v); err != nil {
		return fmt.Errorf("stdin frame %d: %w", e.next-1, err)
	}
	return nil
}

// ReadSlice returns the next frame, written with Stdin.WriteSlice. The slice
// aliases the host's buffer and must not be modified.
func (e *Env) ReadSlice() ([]byte, error) {
	return e.frame()
}

// Commit appends b to the public values.
func (e *Env) Commit(b []byte) {
	e.public = append(e.public, b...)
}

// Cycle charges n cycles. It fails once the run's context is done or the
// cycle limit is crossed; guests should return that error unchanged.
func (e *Env) Cycle(n uint64) error {
	e.cycles += n
	if err := e.ctx.Err(); err != nil {
		return err
	}
	if e.maxCycles > 0 && e.cycles > e.maxCycles {
		return fmt.Errorf("%w: %d > %d", zkvm.ErrCycleLimit, e.cycles, e.maxCycles)
	}
	return nil
}

// Cycles reports the cycles charged so far.
func (e *Env) Cycles() uint64 { return e.cycles }

func (e *Env) frame() ([]byte, error) {
	if e.next >= len(e.frames) {
		return nil, fmt.Errorf("stdin exhausted after %d frames: %w", len(e.frames), io.ErrUnexpectedEOF)
	}
	f := e.frames[e.next]
	e.next++
	if err := e.Cycle(uint64(len(f)/8 + 1)); err != nil {
		return nil, err
	}
	return f, nil
}
