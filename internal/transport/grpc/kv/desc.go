package kvgrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The channel service is described by hand over protobuf well-known types,
// so no generated stubs are needed on either side.
const (
	ChannelServiceName = "kvchan.channel.v1.ChannelService"

	openMethod  = "/" + ChannelServiceName + "/Open"
	writeMethod = "/" + ChannelServiceName + "/Write"
	readMethod  = "/" + ChannelServiceName + "/Read"
	closeMethod = "/" + ChannelServiceName + "/Close"
)

// SessionIDKey is the metadata key carrying the session id on Write, Read and Close.
const SessionIDKey = "kvchan-session-id"

// ChannelServiceServer is the server API for the channel service.
type ChannelServiceServer interface {
	Open(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Write(context.Context, *wrapperspb.BytesValue) (*wrapperspb.Int64Value, error)
	Read(context.Context, *wrapperspb.UInt32Value) (*wrapperspb.BytesValue, error)
	Close(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// RegisterChannelServiceServer registers srv on s.
func RegisterChannelServiceServer(s grpc.ServiceRegistrar, srv ChannelServiceServer) {
	s.RegisterService(&channelServiceDesc, srv)
}

var channelServiceDesc = grpc.ServiceDesc{
	ServiceName: ChannelServiceName,
	HandlerType: (*ChannelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Open", Handler: openHandler},
		{MethodName: "Write", Handler: writeHandler},
		{MethodName: "Read", Handler: readHandler},
		{MethodName: "Close", Handler: closeHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func openHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChannelServiceServer).Open(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: openMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChannelServiceServer).Open(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func writeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChannelServiceServer).Write(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: writeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChannelServiceServer).Write(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func readHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.UInt32Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChannelServiceServer).Read(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: readMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChannelServiceServer).Read(ctx, req.(*wrapperspb.UInt32Value))
	}
	return interceptor(ctx, in, info, handler)
}

func closeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChannelServiceServer).Close(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: closeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChannelServiceServer).Close(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
