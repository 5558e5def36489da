package grpckv

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "xdao.zkhost.storage.v1.PreimageStore"

// PreimageStoreServer is the server API for the PreimageStore gRPC service.
//
// Messages are protobuf well-known wrapper types, so no codegen step is
// needed. Load returns the block's store encoded as a bundle.
type PreimageStoreServer interface {
	Load(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error)
	Has(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BoolValue, error)
}

// UnimplementedPreimageStoreServer can be embedded to have forward compatible implementations.
type UnimplementedPreimageStoreServer struct{}

func (UnimplementedPreimageStoreServer) Load(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Load not implemented")
}
func (UnimplementedPreimageStoreServer) Has(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}

// RegisterPreimageStoreServer registers the service on a gRPC server.
func RegisterPreimageStoreServer(s grpc.ServiceRegistrar, srv PreimageStoreServer) {
	s.RegisterService(&PreimageStore_ServiceDesc, srv)
}

// PreimageStoreClient is the client API for the PreimageStore gRPC service.
type PreimageStoreClient interface {
	Load(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Has(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type preimageStoreClient struct{ cc grpc.ClientConnInterface }

func NewPreimageStoreClient(cc grpc.ClientConnInterface) PreimageStoreClient {
	return &preimageStoreClient{cc: cc}
}

func (c *preimageStoreClient) Load(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Load", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *preimageStoreClient) Has(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Has", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _PreimageStore_Load_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PreimageStoreServer).Load(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Load"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PreimageStoreServer).Load(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func _PreimageStore_Has_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PreimageStoreServer).Has(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Has"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PreimageStoreServer).Has(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// PreimageStore_ServiceDesc is the grpc.ServiceDesc for the PreimageStore service.
var PreimageStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PreimageStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Load", Handler: _PreimageStore_Load_Handler},
		{MethodName: "Has", Handler: _PreimageStore_Has_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "preimage_store.proto",
}
