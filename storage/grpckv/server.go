package grpckv

import (
	"bytes"
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/zkhost/storage"
	"xdao.co/zkhost/storage/bundle"
)

// Server exposes a storage.Source over the PreimageStore gRPC service.
type Server struct {
	UnimplementedPreimageStoreServer
	Source storage.Source
	Logger zerolog.Logger
}

func (s *Server) Load(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Source == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing source")
	}
	height := in.GetValue()
	st, err := s.Source.Load(ctx, height)
	if err != nil {
		s.Logger.Debug().Err(err).Uint64("height", height).Msg("load failed")
		return nil, mapErr(err)
	}
	var buf bytes.Buffer
	if err := bundle.Export(&buf, height, st, bundle.ExportOptions{}); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s.Logger.Debug().Uint64("height", height).Int("entries", st.Len()).Int("bytes", buf.Len()).Msg("served store")
	return wrapperspb.Bytes(buf.Bytes()), nil
}

// Has reports whether the source holds a store for the height. Sources that
// cannot answer cheaply are probed with a full Load.
func (s *Server) Has(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Source == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing source")
	}
	if h, ok := s.Source.(interface{ Has(uint64) bool }); ok {
		return wrapperspb.Bool(h.Has(in.GetValue())), nil
	}
	_, err := s.Source.Load(ctx, in.GetValue())
	switch {
	case err == nil:
		return wrapperspb.Bool(true), nil
	case storage.IsNotFound(err):
		return wrapperspb.Bool(false), nil
	default:
		return nil, mapErr(err)
	}
}
