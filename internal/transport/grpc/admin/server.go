// Package admingrpc exposes node statistics over gRPC.
package admingrpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/i-melnichenko/kvchan/internal/service"
)

const (
	AdminServiceName = "kvchan.admin.v1.AdminService"

	getNodeInfoMethod = "/" + AdminServiceName + "/GetNodeInfo"
)

// Field names of the GetNodeInfo response struct.
const (
	FieldNodeID         = "node_id"
	FieldStartedAt      = "started_at"
	FieldSessionsOpen   = "sessions_open"
	FieldSessionsOpened = "sessions_opened"
	FieldStoreEntries   = "store_entries"
	FieldBuckets        = "buckets"
	FieldUsedBuckets    = "used_buckets"
	FieldLongestChain   = "longest_chain"
	FieldMaxValueLen    = "max_value_len"
)

// StatsSource is the subset of *service.Channel required by the admin server.
// *service.Channel satisfies this interface.
type StatsSource interface {
	Stats() service.Stats
}

// AdminServiceServer is the server API for the admin service.
type AdminServiceServer interface {
	GetNodeInfo(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterAdminServiceServer registers srv on s.
func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv AdminServiceServer) {
	s.RegisterService(&adminServiceDesc, srv)
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetNodeInfo", Handler: getNodeInfoHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func getNodeInfoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).GetNodeInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getNodeInfoMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServiceServer).GetNodeInfo(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Server implements AdminServiceServer.
type Server struct {
	source StatsSource
}

// NewServer creates an admin gRPC server adapter.
func NewServer(source StatsSource) *Server {
	return &Server{source: source}
}

// GetNodeInfo returns administrative information about the current node.
func (s *Server) GetNodeInfo(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := s.source.Stats()
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldNodeID:         structpb.NewStringValue(st.NodeID),
		FieldStartedAt:      structpb.NewStringValue(st.StartedAt.UTC().Format(time.RFC3339)),
		FieldSessionsOpen:   structpb.NewNumberValue(float64(st.SessionsOpen)),
		FieldSessionsOpened: structpb.NewNumberValue(float64(st.SessionsOpened)),
		FieldStoreEntries:   structpb.NewNumberValue(float64(st.Store.Entries)),
		FieldBuckets:        structpb.NewNumberValue(float64(st.Store.Buckets)),
		FieldUsedBuckets:    structpb.NewNumberValue(float64(st.Store.UsedBuckets)),
		FieldLongestChain:   structpb.NewNumberValue(float64(st.Store.LongestChain)),
		FieldMaxValueLen:    structpb.NewNumberValue(float64(st.Store.MaxValueLen)),
	}}, nil
}
