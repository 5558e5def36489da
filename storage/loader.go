package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/zkhost/model"
	"xdao.co/zkhost/preimage"
)

// Loader loads and verifies the witness store for one claim.
type Loader struct {
	Source Source
	Mode   preimage.Mode
	Logger zerolog.Logger
}

// NewLoader returns a strict Loader over src that does not log.
func NewLoader(src Source) *Loader {
	return &Loader{Source: src, Mode: preimage.Strict, Logger: zerolog.Nop()}
}

// Load resolves the store for height and verifies every entry.
//
// Errors are *model.Error values: kind Load for missing, corrupt or
// unreachable data, kind Integrity when a value does not match its key.
// No store is returned alongside an error.
func (l *Loader) Load(ctx context.Context, height uint64) (*Store, error) {
	if l == nil || l.Source == nil {
		return nil, model.NewError(model.KindLoad, model.CodeUnavailable, "storage: no source configured")
	}
	start := time.Now()

	s, err := l.Source.Load(ctx, height)
	if err != nil {
		return nil, classify(height, err)
	}
	if s == nil {
		return nil, model.NewError(model.KindLoad, model.CodeCorruptStore,
			fmt.Sprintf("storage: source returned no store for block %d", height))
	}

	if l.Mode == preimage.Strict {
		if err := VerifyStore(s); err != nil {
			return nil, err
		}
	}

	l.Logger.Debug().
		Uint64("height", height).
		Int("entries", s.Len()).
		Int("bytes", s.Size()).
		Str("mode", l.Mode.String()).
		Dur("took", time.Since(start)).
		Msg("loaded witness store")
	return s, nil
}

// VerifyStore checks every entry of s against its key. The error is a
// *model.Error of kind Integrity naming the first bad entry.
func VerifyStore(s *Store) error {
	var err error
	s.Range(func(k preimage.Key, v []byte) bool {
		if verr := preimage.Verify(k, v); verr != nil {
			code := model.CodeKeyMismatch
			if errors.Is(verr, preimage.ErrInvalidKey) {
				code = model.CodeInvalidKey
			}
			err = model.WrapError(model.KindIntegrity, code, "storage: integrity check failed", verr)
			return false
		}
		return true
	})
	return err
}

func classify(height uint64, err error) error {
	var me *model.Error
	switch {
	case errors.As(err, &me):
		return err
	case IsNotFound(err):
		return model.WrapError(model.KindLoad, model.CodeNotFound,
			fmt.Sprintf("storage: no witness store for block %d", height), err)
	case errors.Is(err, ErrCorrupt), errors.Is(err, ErrImmutable), errors.Is(err, preimage.ErrInvalidKey):
		return model.WrapError(model.KindLoad, model.CodeCorruptStore,
			fmt.Sprintf("storage: corrupt witness store for block %d", height), err)
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return model.WrapError(model.KindLoad, model.CodeUnavailable,
			fmt.Sprintf("storage: witness store for block %d unavailable", height), err)
	default:
		return model.WrapError(model.KindLoad, model.CodeUnavailable,
			fmt.Sprintf("storage: read witness store for block %d", height), err)
	}
}
