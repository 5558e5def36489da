package storage

import (
	"context"
	"errors"
)

// MultiSource provides deterministic, ordered fallback across multiple sources.
//
// Lookup order is the slice order in Sources; callers MUST supply a fixed order.
// A not-found result falls through to the next source; any other error stops
// the lookup, so a corrupt local copy is never masked by a remote one.
type MultiSource struct {
	Sources []Source
}

var _ Source = MultiSource{}

func (m MultiSource) Load(ctx context.Context, height uint64) (*Store, error) {
	if len(m.Sources) == 0 {
		return nil, errors.New("storage: MultiSource has no sources")
	}
	for _, src := range m.Sources {
		s, err := src.Load(ctx, height)
		if err == nil {
			return s, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}
