package storage

import "context"

// Source provides the witness store for a block height.
//
// Contract:
//   - Load MUST return ErrNotFound when no backing data exists for the height.
//   - Load MUST return either a complete Store or an error, never a partial Store.
//   - Malformed backing data MUST surface as ErrCorrupt (or wrap it).
//   - Transient failures (remote unreachable, timeouts) SHOULD wrap ErrUnavailable.
type Source interface {
	Load(ctx context.Context, height uint64) (*Store, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context, height uint64) (*Store, error)

func (f SourceFunc) Load(ctx context.Context, height uint64) (*Store, error) {
	return f(ctx, height)
}

// MapSource serves fixed in-memory stores, keyed by height.
type MapSource map[uint64]*Store

func (m MapSource) Load(ctx context.Context, height uint64) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, ok := m[height]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}
