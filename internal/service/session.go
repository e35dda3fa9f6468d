package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/i-melnichenko/kvchan/internal/kv"
)

// State is the protocol state of a session.
type State int

// Session states. A Get moves the session to StateResponseReady; a read or a
// Put moves it back to StateIdle.
const (
	StateIdle State = iota
	StateResponseReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResponseReady:
		return "response_ready"
	default:
		return "unknown"
	}
}

// Session is one open channel. It holds the response staged by the most
// recent Get until the next read consumes it.
type Session struct {
	id string
	ch *Channel

	mu       sync.Mutex
	state    State
	staged   []byte
	lastUsed time.Time
	closed   bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current protocol state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Write decodes and applies one request buffer and returns the number of
// bytes accepted. A rejected request leaves the store and the staged
// response untouched.
func (s *Session) Write(ctx context.Context, raw []byte) (int, error) {
	c := s.ch
	ctx, span := c.startSpan(
		ctx,
		"kv.service.Write",
		attribute.String("kv.session_id", s.id),
		attribute.Int("kv.request.bytes", len(raw)),
	)
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		spanRecordError(span, ErrSessionClosed)
		return 0, ErrSessionClosed
	}
	s.lastUsed = c.now()

	cmd, err := kv.Parse(raw, c.store.MaxValueLen())
	if err != nil {
		c.metrics.IncCommand(c.nodeID, "invalid", strings.ToLower(kv.Reason(err)))
		spanRecordError(span, err)
		c.logger.Debug("request rejected", "session_id", s.id, "bytes", len(raw), "error", err)
		return 0, err
	}
	op := strings.ToLower(string(cmd.Type))
	span.SetAttributes(
		attribute.String("kv.command.type", op),
		attribute.String("kv.key", strconv.FormatUint(cmd.Key, 10)),
	)

	result := "ok"
	switch cmd.Type {
	case kv.PutCmd:
		if err := c.store.Put(ctx, cmd.Key, cmd.Value); err != nil {
			c.metrics.IncCommand(c.nodeID, op, strings.ToLower(kv.Reason(err)))
			spanRecordError(span, err)
			return 0, err
		}
		s.staged = nil
		s.state = StateIdle
		c.metrics.SetStoreEntries(c.nodeID, c.store.Len())
		c.logger.Debug("put applied", "session_id", s.id, "key", cmd.Key, "value_bytes", len(cmd.Value))

	case kv.GetCmd:
		value, found := c.store.Get(cmd.Key)
		s.staged = []byte(value)
		s.state = StateResponseReady
		result = "miss"
		if found {
			result = "hit"
		}
		c.logger.Debug("get staged", "session_id", s.id, "key", cmd.Key, "found", found)
	}

	c.metrics.IncCommand(c.nodeID, op, result)
	c.metrics.ObserveCommandDuration(c.nodeID, op, time.Since(start))
	return len(raw), nil
}

// Read hands out the staged response and resets the session to idle. With
// nothing staged it returns an empty result. If maxLen > 0 and the staged
// value does not fit, the read fails with kv.ErrChannelTransport and the
// value stays staged.
func (s *Session) Read(ctx context.Context, maxLen int) ([]byte, error) {
	c := s.ch
	_, span := c.startSpan(
		ctx,
		"kv.service.Read",
		attribute.String("kv.session_id", s.id),
		attribute.Int("kv.read.max_bytes", maxLen),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		c.metrics.IncRead(c.nodeID, ReadResultError)
		spanRecordError(span, ErrSessionClosed)
		return nil, ErrSessionClosed
	}
	s.lastUsed = c.now()

	if s.state != StateResponseReady {
		c.metrics.IncRead(c.nodeID, ReadResultEmpty)
		return nil, nil
	}
	if maxLen > 0 && len(s.staged) > maxLen {
		err := fmt.Errorf("%w: staged %d bytes, buffer %d", kv.ErrChannelTransport, len(s.staged), maxLen)
		c.metrics.IncRead(c.nodeID, ReadResultError)
		spanRecordError(span, err)
		return nil, err
	}

	out := s.staged
	s.staged = nil
	s.state = StateIdle

	result := ReadResultValue
	if len(out) == 0 {
		result = ReadResultEmpty
	}
	c.metrics.IncRead(c.nodeID, result)
	span.SetAttributes(attribute.Int("kv.response.bytes", len(out)))
	return out, nil
}

// Close releases the session. Closing twice returns ErrSessionClosed.
func (s *Session) Close() error {
	if !s.ch.closeSession(s, CloseReasonClient) {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	s.closed = true
	s.staged = nil
	s.state = StateIdle
}

