// Package grpcprover exposes a zkvm.Prover as a gRPC service and provides a
// client that implements zkvm.Prover against it.
//
// Every method takes and returns a BytesValue holding a CBOR payload, so the
// service needs no codegen.
package grpcprover

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "xdao.zkhost.prover.v1.Prover"

// ProverServer is the server API for the Prover gRPC service.
type ProverServer interface {
	Setup(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Execute(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Prove(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Verify(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedProverServer can be embedded to have forward compatible implementations.
type UnimplementedProverServer struct{}

func (UnimplementedProverServer) Setup(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Setup not implemented")
}
func (UnimplementedProverServer) Execute(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Execute not implemented")
}
func (UnimplementedProverServer) Prove(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Prove not implemented")
}
func (UnimplementedProverServer) Verify(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Verify not implemented")
}

// RegisterProverServer registers the service on a gRPC server.
func RegisterProverServer(s grpc.ServiceRegistrar, srv ProverServer) {
	s.RegisterService(&Prover_ServiceDesc, srv)
}

type proverClient struct{ cc grpc.ClientConnInterface }

func (c *proverClient) call(ctx context.Context, method string, in []byte, opts ...grpc.CallOption) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, wrapperspb.Bytes(in), out, opts...); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

type serverMethod func(ProverServer, context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)

func handler(method string, call serverMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(wrapperspb.BytesValue)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ProverServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
			h := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ProverServer), ctx, req.(*wrapperspb.BytesValue))
			}
			return interceptor(ctx, in, info, h)
		},
	}
}

// Prover_ServiceDesc is the grpc.ServiceDesc for the Prover service.
var Prover_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ProverServer)(nil),
	Methods: []grpc.MethodDesc{
		handler("Setup", ProverServer.Setup),
		handler("Execute", ProverServer.Execute),
		handler("Prove", ProverServer.Prove),
		handler("Verify", ProverServer.Verify),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "prover.proto",
}
