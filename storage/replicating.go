package storage

import (
	"context"
	"fmt"

	"xdao.co/zkhost/preimage"
)

// Sink accepts whole block stores. localfs.Dir is the usual implementation.
type Sink interface {
	Import(height uint64, s *Store) error
}

// NamedSink associates a Sink with a stable name for error reporting.
type NamedSink struct {
	Name string
	Sink Sink
}

// ReplicatingSource loads from Source and copies every store it returns into
// all Replicas before handing it out.
//
// A store is only returned once every replica holds it. Replicas are
// immutable, so a replica holding different bytes for a key fails the load
// with ErrImmutable. In Strict mode a store is verified before any replica
// sees it, so a bad reply from Source is never persisted.
type ReplicatingSource struct {
	Source   Source
	Replicas []NamedSink
	Mode     preimage.Mode
}

var _ Source = ReplicatingSource{}

func (r ReplicatingSource) Load(ctx context.Context, height uint64) (*Store, error) {
	if r.Source == nil {
		return nil, fmt.Errorf("storage: ReplicatingSource has no source")
	}
	s, err := r.Source.Load(ctx, height)
	if err != nil {
		return nil, err
	}
	if r.Mode == preimage.Strict {
		if err := VerifyStore(s); err != nil {
			return nil, err
		}
	}
	for _, rep := range r.Replicas {
		if rep.Sink == nil {
			return nil, fmt.Errorf("storage: nil sink for replica %q", rep.Name)
		}
		if err := rep.Sink.Import(height, s); err != nil {
			return nil, fmt.Errorf("storage: replicate block %d to %q: %w", height, rep.Name, err)
		}
	}
	return s, nil
}

// CachedSource serves height from cache when present and otherwise loads it
// from src, writing it through to cache. mode governs what may enter the
// cache, as for ReplicatingSource.
func CachedSource(cache interface {
	Source
	Sink
}, name string, src Source, mode preimage.Mode) Source {
	return MultiSource{Sources: []Source{
		cache,
		ReplicatingSource{Source: src, Replicas: []NamedSink{{Name: name, Sink: cache}}, Mode: mode},
	}}
}
