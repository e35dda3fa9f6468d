// Package kvconnect serves and calls the session channel over the Connect
// protocol (plain HTTP/1.1 or HTTP/2).
package kvconnect

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/i-melnichenko/kvchan/internal/kv"
	"github.com/i-melnichenko/kvchan/internal/service"
)

const (
	ChannelServiceName = "kvchan.channel.v1.ChannelService"

	OpenProcedure  = "/" + ChannelServiceName + "/Open"
	WriteProcedure = "/" + ChannelServiceName + "/Write"
	ReadProcedure  = "/" + ChannelServiceName + "/Read"
	CloseProcedure = "/" + ChannelServiceName + "/Close"
)

// SessionIDHeader carries the session id on Write, Read and Close.
const SessionIDHeader = "Kvchan-Session-Id"

// Handler is the subset of *service.Channel required by the Connect handler.
// *service.Channel satisfies this interface.
type Handler interface {
	Open(ctx context.Context) *service.Session
	Write(ctx context.Context, id string, raw []byte) (int, error)
	Read(ctx context.Context, id string, maxLen int) ([]byte, error)
	Close(id string) error
}

type server struct {
	handler Handler
	tracer  oteltrace.Tracer
}

// NewHandler builds an HTTP handler serving the channel service. The returned
// path is the mount prefix for an http.ServeMux.
func NewHandler(handler Handler, tracer oteltrace.Tracer, opts ...connect.HandlerOption) (string, http.Handler) {
	s := &server{handler: handler, tracer: tracer}

	mux := http.NewServeMux()
	mux.Handle(OpenProcedure, connect.NewUnaryHandler(OpenProcedure, s.open, opts...))
	mux.Handle(WriteProcedure, connect.NewUnaryHandler(WriteProcedure, s.write, opts...))
	mux.Handle(ReadProcedure, connect.NewUnaryHandler(ReadProcedure, s.read, opts...))
	mux.Handle(CloseProcedure, connect.NewUnaryHandler(CloseProcedure, s.close, opts...))
	return "/" + ChannelServiceName + "/", mux
}

func (s *server) open(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[wrapperspb.StringValue], error) {
	ctx, span := s.tracer.Start(ctx, "kvconnect.server.Open")
	defer span.End()

	sess := s.handler.Open(ctx)
	span.SetAttributes(attribute.String("kv.session_id", sess.ID()))
	return connect.NewResponse(wrapperspb.String(sess.ID())), nil
}

func (s *server) write(ctx context.Context, req *connect.Request[wrapperspb.BytesValue]) (*connect.Response[wrapperspb.Int64Value], error) {
	ctx, span := s.tracer.Start(ctx, "kvconnect.server.Write", oteltrace.WithAttributes(
		attribute.Int("kv.request.bytes", len(req.Msg.GetValue())),
	))
	defer span.End()

	id, err := sessionID(req.Header())
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	n, err := s.handler.Write(ctx, id, req.Msg.GetValue())
	if err != nil {
		recordSpanError(span, err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(wrapperspb.Int64(int64(n))), nil
}

func (s *server) read(ctx context.Context, req *connect.Request[wrapperspb.UInt32Value]) (*connect.Response[wrapperspb.BytesValue], error) {
	ctx, span := s.tracer.Start(ctx, "kvconnect.server.Read", oteltrace.WithAttributes(
		attribute.Int64("kv.read.max_bytes", int64(req.Msg.GetValue())),
	))
	defer span.End()

	id, err := sessionID(req.Header())
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	out, err := s.handler.Read(ctx, id, int(req.Msg.GetValue()))
	if err != nil {
		recordSpanError(span, err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(wrapperspb.Bytes(out)), nil
}

func (s *server) close(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	_, span := s.tracer.Start(ctx, "kvconnect.server.Close")
	defer span.End()

	id, err := sessionID(req.Header())
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if err := s.handler.Close(id); err != nil {
		recordSpanError(span, err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func sessionID(h http.Header) (string, error) {
	if id := h.Get(SessionIDHeader); id != "" {
		return id, nil
	}
	return "", connect.NewError(connect.CodeInvalidArgument, errors.New("kvconnect: missing "+SessionIDHeader+" header"))
}

func recordSpanError(span oteltrace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}

func toConnectError(err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		code = connect.CodeNotFound
	case kv.IsParseError(err):
		code = connect.CodeInvalidArgument
	case errors.Is(err, kv.ErrChannelTransport):
		code = connect.CodeFailedPrecondition
	}

	cerr := connect.NewError(code, err)
	if reason := service.Reason(err); reason != "" {
		if detail, derr := connect.NewErrorDetail(&errdetails.ErrorInfo{Reason: reason, Domain: kv.ErrorDomain}); derr == nil {
			cerr.AddDetail(detail)
		}
	}
	return cerr
}

func fromConnectError(err error) error {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return err
	}
	for _, d := range cerr.Details() {
		msg, verr := d.Value()
		if verr != nil {
			continue
		}
		info, ok := msg.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != kv.ErrorDomain {
			continue
		}
		if remote := service.RemoteError(info.GetReason(), cerr.Message()); remote != nil {
			return remote
		}
	}
	return err
}
