// Package memory implements the Memory Service (spec.md §4.7): namespaced
// key/value storage with upsert semantics, access-statistics tracking
// split out from reads, and namespace listing.
package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/coordframe/agentcoord/internal/clock"
	"github.com/coordframe/agentcoord/internal/eventbus"
	"github.com/coordframe/agentcoord/internal/store"
	"github.com/coordframe/agentcoord/internal/telemetry"
)

// ErrInvalidKey indicates an empty key was supplied to Save.
var ErrInvalidKey = errors.New("memory: key must not be empty")

// ErrInvalidValue indicates an empty value was supplied to Save.
var ErrInvalidValue = errors.New("memory: value must not be empty")

// DefaultNamespace is used when callers pass an empty namespace.
const DefaultNamespace = ""

// DefaultType is the entry type used when callers do not specify one.
const DefaultType = "json"

// Service owns Memory Entry persistence.
type Service struct {
	store   store.Store
	bus     *eventbus.Bus
	clock   clock.Clock
	logger  telemetry.Logger
	metrics telemetry.Metrics
}

// Options configures a Service.
type Options struct {
	Store   store.Store
	Bus     *eventbus.Bus
	Clock   clock.Clock
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// New constructs a Service. Store, Bus, and Clock are required.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("memory: store is required")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("memory: bus is required")
	}
	if opts.Clock == nil {
		return nil, fmt.Errorf("memory: clock is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Service{store: opts.Store, bus: opts.Bus, clock: opts.Clock, logger: logger, metrics: metrics}, nil
}

// Save upserts the entry at (namespace, key). An existing entry has its
// value, type, and metadata replaced and lastUpdatedAt bumped, preserving
// createdAt and access statistics; a new entry starts with
// accessCount=0 and accessedAt=nil.
func (s *Service) Save(ctx context.Context, namespace, key, value, entryType string, metadata *string) (store.MemoryEntry, error) {
	if key == "" {
		return store.MemoryEntry{}, ErrInvalidKey
	}
	if value == "" {
		return store.MemoryEntry{}, ErrInvalidValue
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if entryType == "" {
		entryType = DefaultType
	}

	ws, err := s.store.NewWrite(ctx)
	if err != nil {
		return store.MemoryEntry{}, fmt.Errorf("memory: save: %w", err)
	}
	defer func() {
		if ws != nil {
			ws.Discard()
		}
	}()

	now := s.clock.Now()
	existing, existed := ws.GetMemoryEntry(namespace, key)

	entry := store.MemoryEntry{
		Namespace:     namespace,
		Key:           key,
		Value:         value,
		Type:          entryType,
		Metadata:      metadata,
		Size:          len(value),
		LastUpdatedAt: now,
	}
	if existed {
		entry.CreatedAt = existing.CreatedAt
		entry.AccessedAt = existing.AccessedAt
		entry.AccessCount = existing.AccessCount
	} else {
		entry.CreatedAt = now
	}
	ws.PutMemoryEntry(entry)

	variant := eventbus.MemorySaved
	if existed {
		variant = eventbus.MemoryUpdated
	}
	ws.OnCommit(func() {
		_ = s.bus.Publish(context.Background(), eventbus.MemoryEvent{
			VariantName: variant,
			Namespace:   namespace,
			Key:         key,
		})
	})

	commitScope := ws
	ws = nil
	if err := commitScope.Commit(ctx); err != nil {
		return store.MemoryEntry{}, fmt.Errorf("memory: save: %w", err)
	}
	s.metrics.IncCounter("memory.saved", 1)
	return entry, nil
}

// Read returns the entry at (namespace, key) without mutating access
// statistics.
func (s *Service) Read(ctx context.Context, namespace, key string) (store.MemoryEntry, bool, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	rs, err := s.store.NewRead(ctx)
	if err != nil {
		return store.MemoryEntry{}, false, fmt.Errorf("memory: read: %w", err)
	}
	entry, ok := rs.GetMemoryEntry(namespace, key)
	return entry, ok, nil
}

// TouchAccess increments accessCount and sets accessedAt for (namespace,
// key). It is a separate write so Read remains cheap and side-effect-free.
// Returns false if the entry does not exist.
func (s *Service) TouchAccess(ctx context.Context, namespace, key string) (bool, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	ws, err := s.store.NewWrite(ctx)
	if err != nil {
		return false, fmt.Errorf("memory: touch access: %w", err)
	}
	defer func() {
		if ws != nil {
			ws.Discard()
		}
	}()

	entry, ok := ws.GetMemoryEntry(namespace, key)
	if !ok {
		return false, nil
	}
	now := s.clock.Now()
	entry.AccessCount++
	entry.AccessedAt = &now
	ws.PutMemoryEntry(entry)

	commitScope := ws
	ws = nil
	if err := commitScope.Commit(ctx); err != nil {
		return false, fmt.Errorf("memory: touch access: %w", err)
	}
	return true, nil
}

// List returns every entry in namespace.
func (s *Service) List(ctx context.Context, namespace string) ([]store.MemoryEntry, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	rs, err := s.store.NewRead(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: list: %w", err)
	}
	return rs.ListMemoryEntries(namespace), nil
}
