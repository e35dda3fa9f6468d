package kvgrpc

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/i-melnichenko/kvchan/internal/kv"
	"github.com/i-melnichenko/kvchan/internal/service"
)

// Handler is the subset of *service.Channel required by the gRPC server.
// *service.Channel satisfies this interface.
type Handler interface {
	Open(ctx context.Context) *service.Session
	Write(ctx context.Context, id string, raw []byte) (int, error)
	Read(ctx context.Context, id string, maxLen int) ([]byte, error)
	Close(id string) error
}

// Server implements ChannelServiceServer by delegating to a session channel.
type Server struct {
	handler Handler
	tracer  oteltrace.Tracer
}

// NewServer creates a channel gRPC server adapter for the provided handler.
func NewServer(handler Handler, tracer oteltrace.Tracer) *Server {
	return &Server{handler: handler, tracer: tracer}
}

// Open handles a channel Open RPC.
func (s *Server) Open(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	ctx, span := s.tracer.Start(ctx, "kvgrpc.server.Open")
	defer span.End()

	sess := s.handler.Open(ctx)
	span.SetAttributes(attribute.String("kv.session_id", sess.ID()))
	return wrapperspb.String(sess.ID()), nil
}

// Write handles a channel Write RPC.
func (s *Server) Write(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.Int64Value, error) {
	ctx, span := s.tracer.Start(ctx, "kvgrpc.server.Write", oteltrace.WithAttributes(
		attribute.Int("kv.request.bytes", len(req.GetValue())),
	))
	defer span.End()

	id, err := sessionIDFromContext(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	n, err := s.handler.Write(ctx, id, req.GetValue())
	if err != nil {
		recordSpanError(span, err)
		return nil, toGRPCStatus(err)
	}
	return wrapperspb.Int64(int64(n)), nil
}

// Read handles a channel Read RPC. A zero length means no limit.
func (s *Server) Read(ctx context.Context, req *wrapperspb.UInt32Value) (*wrapperspb.BytesValue, error) {
	ctx, span := s.tracer.Start(ctx, "kvgrpc.server.Read", oteltrace.WithAttributes(
		attribute.Int64("kv.read.max_bytes", int64(req.GetValue())),
	))
	defer span.End()

	id, err := sessionIDFromContext(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	out, err := s.handler.Read(ctx, id, int(req.GetValue()))
	if err != nil {
		recordSpanError(span, err)
		return nil, toGRPCStatus(err)
	}
	return wrapperspb.Bytes(out), nil
}

// Close handles a channel Close RPC.
func (s *Server) Close(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	ctx, span := s.tracer.Start(ctx, "kvgrpc.server.Close")
	defer span.End()

	id, err := sessionIDFromContext(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if err := s.handler.Close(id); err != nil {
		recordSpanError(span, err)
		return nil, toGRPCStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func sessionIDFromContext(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	if ids := md.Get(SessionIDKey); len(ids) > 0 && ids[0] != "" {
		return ids[0], nil
	}
	return "", status.Error(codes.InvalidArgument, "kvgrpc: missing "+SessionIDKey+" metadata")
}

func recordSpanError(span oteltrace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}

func toGRPCStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		code = codes.NotFound
	case kv.IsParseError(err):
		code = codes.InvalidArgument
	case errors.Is(err, kv.ErrChannelTransport):
		code = codes.FailedPrecondition
	}

	st := status.New(code, err.Error())
	reason := service.Reason(err)
	if reason == "" {
		return st.Err()
	}
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: kv.ErrorDomain})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

func fromGRPCStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != kv.ErrorDomain {
			continue
		}
		if remote := service.RemoteError(info.GetReason(), st.Message()); remote != nil {
			return remote
		}
	}
	return err
}
