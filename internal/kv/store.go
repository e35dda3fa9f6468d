package kv

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// DefaultBuckets is the bucket count used when StoreConfig.Buckets is unset.
const DefaultBuckets = 256

// StoreConfig sizes a Store.
type StoreConfig struct {
	// Buckets is the fixed number of hash chains.
	Buckets int
	// MaxValueLen caps the byte length of a stored value.
	MaxValueLen int
}

// Stats describes the shape of the table.
type Stats struct {
	Entries      int
	Buckets      int
	UsedBuckets  int
	LongestChain int
	MaxValueLen  int
}

type entry struct {
	key   uint64
	value string
	next  *entry
}

// Store is an in-memory hash table keyed by non-negative integers.
//
// A key lives in bucket key % Buckets. There is no mixing step, so key sets
// that share a residue modulo the bucket count land on the same chain.
// Collisions are resolved by chaining; a chain never holds two entries for
// the same key.
type Store struct {
	mu          sync.RWMutex
	buckets     []*entry
	size        int
	maxValueLen int
	tracer      oteltrace.Tracer
}

// NewStore creates an empty store. Zero config fields take their defaults.
func NewStore(cfg StoreConfig, tracer oteltrace.Tracer) *Store {
	if cfg.Buckets <= 0 {
		cfg.Buckets = DefaultBuckets
	}
	if cfg.MaxValueLen <= 0 {
		cfg.MaxValueLen = DefaultMaxValueLen
	}
	return &Store{
		buckets:     make([]*entry, cfg.Buckets),
		maxValueLen: cfg.MaxValueLen,
		tracer:      tracer,
	}
}

// MaxValueLen returns the configured value length limit.
func (s *Store) MaxValueLen() int {
	return s.maxValueLen
}

// Get returns the current value for key, if present.
func (s *Store) Get(key uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for e := s.buckets[s.bucket(key)]; e != nil; e = e.next {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// Put inserts value under key, replacing any existing value.
func (s *Store) Put(ctx context.Context, key uint64, value string) error {
	_, span := s.tracer.Start(ctx, "kv.store.Put", oteltrace.WithAttributes(
		attribute.Int64("kv.bucket", int64(s.bucket(key))),
		attribute.Int("kv.value.bytes", len(value)),
	))
	defer span.End()

	if len(value) > s.maxValueLen {
		span.RecordError(ErrValueTooLong)
		span.SetStatus(otelcodes.Error, ErrValueTooLong.Error())
		return ErrValueTooLong
	}

	replaced := s.put(key, value)
	span.SetAttributes(attribute.Bool("kv.replaced", replaced))
	return nil
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Stats walks every chain and reports table occupancy.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Entries:     s.size,
		Buckets:     len(s.buckets),
		MaxValueLen: s.maxValueLen,
	}
	for _, head := range s.buckets {
		n := 0
		for e := head; e != nil; e = e.next {
			n++
		}
		if n > 0 {
			st.UsedBuckets++
		}
		if n > st.LongestChain {
			st.LongestChain = n
		}
	}
	return st
}

func (s *Store) put(key uint64, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bucket(key)
	for e := s.buckets[b]; e != nil; e = e.next {
		if e.key == key {
			e.value = value
			return true
		}
	}
	s.buckets[b] = &entry{key: key, value: value, next: s.buckets[b]}
	s.size++
	return false
}

func (s *Store) bucket(key uint64) int {
	return int(key % uint64(len(s.buckets)))
}
