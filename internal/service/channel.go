// Package service contains the session channel that sits between transports
// and the KV store.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/i-melnichenko/kvchan/internal/kv"
)

// ErrSessionNotFound is returned when a session id is unknown or already closed.
var ErrSessionNotFound = errors.New("service: session not found")

// ErrSessionClosed is returned by operations on a closed session handle.
var ErrSessionClosed = fmt.Errorf("service: session closed: %w", kv.ErrChannelTransport)

// Logger is a minimal structured logger interface, compatible with slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Stats is a point-in-time view of the channel and its store.
type Stats struct {
	NodeID         string
	StartedAt      time.Time
	SessionsOpen   int
	SessionsOpened uint64
	Store          kv.Stats
}

// Channel owns the session registry and drives requests against the store.
type Channel struct {
	store     *kv.Store
	logger    Logger
	tracer    oteltrace.Tracer
	metrics   Metrics
	nodeID    string
	startedAt time.Time
	now       func() time.Time

	// IdleTimeout closes sessions with no write or read for this long.
	// Zero disables the reaper.
	IdleTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	opened   uint64
}

// NewChannel creates a Channel serving the provided store.
func NewChannel(store *kv.Store, logger Logger, tracer oteltrace.Tracer, metrics Metrics, nodeID string) *Channel {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Channel{
		store:     store,
		logger:    logger,
		tracer:    tracer,
		metrics:   metrics,
		nodeID:    nodeID,
		startedAt: time.Now(),
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

func (c *Channel) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := c.tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func spanRecordError(span oteltrace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}

// Open starts a new session with an empty response slot.
func (c *Channel) Open(ctx context.Context) *Session {
	_, span := c.startSpan(ctx, "kv.service.Open")
	defer span.End()

	s := &Session{
		id:       uuid.Must(uuid.NewV7()).String(),
		ch:       c,
		lastUsed: c.now(),
	}

	c.mu.Lock()
	c.sessions[s.id] = s
	c.opened++
	opened := c.opened
	open := len(c.sessions)
	c.mu.Unlock()

	span.SetAttributes(attribute.String("kv.session_id", s.id))
	c.metrics.IncSessionOpened(c.nodeID)
	c.metrics.SetSessionsOpen(c.nodeID, open)
	c.logger.Info("session opened", "session_id", s.id, "opened_total", opened)
	return s
}

// Session returns the open session with the given id.
func (c *Channel) Session(id string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Write forwards a request buffer to the session identified by id.
func (c *Channel) Write(ctx context.Context, id string, raw []byte) (int, error) {
	s, err := c.Session(id)
	if err != nil {
		return 0, err
	}
	return s.Write(ctx, raw)
}

// Read retrieves the staged response of the session identified by id.
func (c *Channel) Read(ctx context.Context, id string, maxLen int) ([]byte, error) {
	s, err := c.Session(id)
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, maxLen)
}

// Close closes the session identified by id.
func (c *Channel) Close(id string) error {
	s, err := c.Session(id)
	if err != nil {
		return err
	}
	return s.Close()
}

// Shutdown closes every open session.
func (c *Channel) Shutdown() {
	c.mu.Lock()
	all := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		all = append(all, s)
	}
	c.mu.Unlock()

	for _, s := range all {
		c.closeSession(s, CloseReasonShutdown)
	}
	if len(all) > 0 {
		c.logger.Info("channel shut down", "sessions_closed", len(all))
	}
}

// Stats reports session counters and store occupancy.
func (c *Channel) Stats() Stats {
	c.mu.Lock()
	open := len(c.sessions)
	opened := c.opened
	c.mu.Unlock()

	return Stats{
		NodeID:         c.nodeID,
		StartedAt:      c.startedAt,
		SessionsOpen:   open,
		SessionsOpened: opened,
		Store:          c.store.Stats(),
	}
}

// minReaperTick bounds how often the reaper scans the registry.
const minReaperTick = time.Millisecond

// RunReaper closes idle sessions until ctx is canceled. It returns nil
// immediately when IdleTimeout is zero.
func (c *Channel) RunReaper(ctx context.Context) error {
	if c.IdleTimeout <= 0 {
		return nil
	}
	ticker := time.NewTicker(max(c.IdleTimeout/2, minReaperTick))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := c.reapIdle(); n > 0 {
				c.logger.Debug("reaped idle sessions", "count", n)
			}
		}
	}
}

// reapIdle closes every session unused since the cutoff. The idle check and
// the close happen under the same session lock, so a request that lands
// first keeps its session.
func (c *Channel) reapIdle() int {
	cutoff := c.now().Add(-c.IdleTimeout)

	c.mu.Lock()
	var reaped []string
	for id, s := range c.sessions {
		s.mu.Lock()
		if s.lastUsed.Before(cutoff) {
			s.closeLocked()
			delete(c.sessions, id)
			reaped = append(reaped, id)
		}
		s.mu.Unlock()
	}
	open := len(c.sessions)
	c.mu.Unlock()

	if len(reaped) == 0 {
		return 0
	}
	for _, id := range reaped {
		c.metrics.IncSessionClosed(c.nodeID, CloseReasonIdle)
		c.logger.Info("session closed", "session_id", id, "reason", CloseReasonIdle)
	}
	c.metrics.SetSessionsOpen(c.nodeID, open)
	return len(reaped)
}

func (c *Channel) closeSession(s *Session, reason string) bool {
	c.mu.Lock()
	_, ok := c.sessions[s.id]
	delete(c.sessions, s.id)
	open := len(c.sessions)
	c.mu.Unlock()

	s.markClosed()
	if !ok {
		return false
	}
	c.metrics.IncSessionClosed(c.nodeID, reason)
	c.metrics.SetSessionsOpen(c.nodeID, open)
	c.logger.Info("session closed", "session_id", s.id, "reason", reason)
	return true
}
