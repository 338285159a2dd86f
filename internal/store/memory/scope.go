package memory

import (
	"context"

	"github.com/coordframe/agentcoord/internal/store"
)

// scope is a read-only snapshot shared by both ReadScope and WriteScope.
type scope struct {
	agents map[string]store.Agent
	tasks  map[string]store.Task
	mem    map[store.MemoryKey]store.MemoryEntry
	events []store.EventLogEntry
}

func (s *scope) GetAgent(id string) (store.Agent, bool) {
	a, ok := s.agents[id]
	return a, ok
}

func (s *scope) ListAgents() []store.Agent {
	out := make([]store.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	return out
}

func (s *scope) GetTask(id string) (store.Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

func (s *scope) ListTasks() []store.Task {
	out := make([]store.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

func (s *scope) ListTasksByStatus(status store.TaskStatus) []store.Task {
	var out []store.Task
	for _, t := range s.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func (s *scope) ListTasksByAgent(agentID string) []store.Task {
	var out []store.Task
	for _, t := range s.tasks {
		if t.AssignedAgentID == agentID {
			out = append(out, t)
		}
	}
	return out
}

func (s *scope) GetMemoryEntry(namespace, key string) (store.MemoryEntry, bool) {
	m, ok := s.mem[store.MemoryKey{Namespace: namespace, Key: key}]
	return m, ok
}

func (s *scope) ListMemoryEntries(namespace string) []store.MemoryEntry {
	var out []store.MemoryEntry
	for k, m := range s.mem {
		if k.Namespace == namespace {
			out = append(out, m)
		}
	}
	return out
}

func (s *scope) ListEventLog() []store.EventLogEntry {
	return append([]store.EventLogEntry(nil), s.events...)
}

// writeScope adds mutation methods and commit/discard semantics on top of a
// scope snapshot.
type writeScope struct {
	store *Store
	scope *scope

	onCommit []func()
	done     bool // true once Commit or Discard has been called
}

var _ store.WriteScope = (*writeScope)(nil)

func (w *writeScope) checkOpen() {
	if w.done {
		invariantf("write scope used after Commit or Discard")
	}
}

func (w *writeScope) GetAgent(id string) (store.Agent, bool) { w.checkOpen(); return w.scope.GetAgent(id) }
func (w *writeScope) ListAgents() []store.Agent              { w.checkOpen(); return w.scope.ListAgents() }
func (w *writeScope) GetTask(id string) (store.Task, bool)    { w.checkOpen(); return w.scope.GetTask(id) }
func (w *writeScope) ListTasks() []store.Task                 { w.checkOpen(); return w.scope.ListTasks() }
func (w *writeScope) ListTasksByStatus(s store.TaskStatus) []store.Task {
	w.checkOpen()
	return w.scope.ListTasksByStatus(s)
}
func (w *writeScope) ListTasksByAgent(agentID string) []store.Task {
	w.checkOpen()
	return w.scope.ListTasksByAgent(agentID)
}
func (w *writeScope) GetMemoryEntry(namespace, key string) (store.MemoryEntry, bool) {
	w.checkOpen()
	return w.scope.GetMemoryEntry(namespace, key)
}
func (w *writeScope) ListMemoryEntries(namespace string) []store.MemoryEntry {
	w.checkOpen()
	return w.scope.ListMemoryEntries(namespace)
}
func (w *writeScope) ListEventLog() []store.EventLogEntry { w.checkOpen(); return w.scope.ListEventLog() }

func (w *writeScope) PutAgent(a store.Agent) {
	w.checkOpen()
	w.scope.agents[a.ID] = a
}

func (w *writeScope) PutTask(t store.Task) {
	w.checkOpen()
	w.scope.tasks[t.ID] = t
}

func (w *writeScope) PutMemoryEntry(m store.MemoryEntry) {
	w.checkOpen()
	w.scope.mem[store.MemoryKey{Namespace: m.Namespace, Key: m.Key}] = m
}

func (w *writeScope) AppendEventLog(e store.EventLogEntry) {
	w.checkOpen()
	w.scope.events = append(w.scope.events, e)
}

func (w *writeScope) OnCommit(fn func()) {
	w.checkOpen()
	w.onCommit = append(w.onCommit, fn)
}

// Commit atomically swaps the store's live maps for this scope's mutated
// copies, releases the single-writer token, then runs OnCommit callbacks.
func (w *writeScope) Commit(ctx context.Context) error {
	w.checkOpen()
	w.done = true

	w.store.mu.Lock()
	w.store.agents = w.scope.agents
	w.store.tasks = w.scope.tasks
	w.store.mem = w.scope.mem
	w.store.events = w.scope.events
	w.store.mu.Unlock()

	w.store.writeTok <- struct{}{}

	for _, fn := range w.onCommit {
		fn()
	}
	return nil
}

// Discard releases the single-writer token without applying any mutation.
func (w *writeScope) Discard() {
	w.checkOpen()
	w.done = true
	w.store.writeTok <- struct{}{}
}
