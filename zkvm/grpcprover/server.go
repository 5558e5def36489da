package grpcprover

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/zkhost/zkvm"
)

// Server exposes a zkvm.Prover over the Prover gRPC service.
type Server struct {
	UnimplementedProverServer
	Prover zkvm.Prover
	Logger zerolog.Logger
}

func (s *Server) Setup(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var p zkvm.Program
	if err := zkvm.Unmarshal(in.GetValue(), &p); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	pk, vk, err := s.Prover.Setup(ctx, p)
	if err != nil {
		return nil, mapErr(err)
	}
	s.Logger.Debug().Str("program", p.ID().String()).Msg("setup")
	return reply(setupReply{PK: pk, VK: vk})
}

func (s *Server) Execute(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req executeRequest
	if err := zkvm.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rep, err := s.Prover.Execute(ctx, req.Program, req.Stdin)
	if err != nil {
		return runFailure(err)
	}
	return reply(runReply{Report: rep})
}

func (s *Server) Prove(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req proveRequest
	if err := zkvm.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	r, err := s.Prover.Prove(ctx, req.PK, req.Stdin)
	if err != nil {
		return runFailure(err)
	}
	s.Logger.Debug().Str("program", r.ProgramID).Uint64("cycles", r.Cycles).Msg("proved")
	return reply(runReply{Receipt: r})
}

func (s *Server) Verify(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req verifyRequest
	if err := zkvm.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	err := s.Prover.Verify(ctx, req.Receipt, req.VK)
	switch {
	case err == nil:
		return reply(verifyReply{Valid: true})
	case errors.Is(err, zkvm.ErrInvalidProof):
		return reply(verifyReply{Reason: err.Error()})
	default:
		return nil, mapErr(err)
	}
}

func (s *Server) ready() error {
	if s == nil || s.Prover == nil {
		return status.Error(codes.FailedPrecondition, "missing prover")
	}
	return nil
}

func runFailure(err error) (*wrapperspb.BytesValue, error) {
	var f *zkvm.ExecutionFailure
	if errors.As(err, &f) && !isContextErr(err) {
		return reply(runReply{Failure: toWire(f)})
	}
	return nil, mapErr(err)
}

func reply(v any) (*wrapperspb.BytesValue, error) {
	b, err := zkvm.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(b), nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, zkvm.ErrUnknownProgram):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
