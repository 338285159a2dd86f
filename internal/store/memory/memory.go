// Package memory provides an in-process implementation of store.Store.
//
// It uses a single-writer model: NewWrite acquires an exclusive token before
// returning, so at most one WriteScope is ever open at a time. This trivially
// satisfies store.Store's "two concurrent write scopes that mutate the same
// row must serialize" requirement — there is structurally never a second
// writer to collide with, so this implementation never returns
// store.ErrConflict. Read scopes take a point-in-time snapshot of the
// underlying maps under a brief read lock; because Agent, Task, and
// MemoryEntry are immutable value types (no exported field is ever mutated
// in place — a changed entity is always a freshly built value written back
// via Put*), a shallow copy of the map is a true, independent snapshot.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/coordframe/agentcoord/internal/store"
)

// Store is an in-memory, single-writer implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	writeTok chan struct{} // buffered(1) semaphore; held by the single open WriteScope

	agents map[string]store.Agent
	tasks  map[string]store.Task
	mem    map[store.MemoryKey]store.MemoryEntry
	events []store.EventLogEntry
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New creates an empty in-memory Store.
func New() *Store {
	tok := make(chan struct{}, 1)
	tok <- struct{}{}
	return &Store{
		writeTok: tok,
		agents:   make(map[string]store.Agent),
		tasks:    make(map[string]store.Task),
		mem:      make(map[store.MemoryKey]store.MemoryEntry),
	}
}

// NewRead returns a snapshot-consistent read scope.
func (s *Store) NewRead(ctx context.Context) (store.ReadScope, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &scope{
		agents: cloneMap(s.agents),
		tasks:  cloneMap(s.tasks),
		mem:    cloneMap(s.mem),
		events: append([]store.EventLogEntry(nil), s.events...),
	}, nil
}

// NewWrite acquires the store's single write token and returns a write
// scope seeded with the current committed state.
func (s *Store) NewWrite(ctx context.Context) (store.WriteScope, error) {
	select {
	case <-s.writeTok:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.RLock()
	base := &scope{
		agents: cloneMap(s.agents),
		tasks:  cloneMap(s.tasks),
		mem:    cloneMap(s.mem),
		events: append([]store.EventLogEntry(nil), s.events...),
	}
	s.mu.RUnlock()

	return &writeScope{store: s, scope: base}, nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func invariantf(format string, args ...any) {
	panic(fmt.Sprintf("store: invariant violation: "+format, args...))
}
