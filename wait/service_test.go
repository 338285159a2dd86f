package wait

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordframe/agentcoord/agents"
	"github.com/coordframe/agentcoord/internal/clock"
	"github.com/coordframe/agentcoord/internal/eventbus"
	"github.com/coordframe/agentcoord/internal/store"
	memstore "github.com/coordframe/agentcoord/internal/store/memory"
	"github.com/coordframe/agentcoord/tasks"
)

type harness struct {
	svc   *Service
	reg   *agents.Registry
	coord *tasks.Coordinator
	store store.Store
	bus   *eventbus.Bus
	clock *clock.Test
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s := memstore.New()
	bus := eventbus.New(nil)
	c := clock.NewTest(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	reg, err := agents.New(agents.Options{Store: s, Bus: bus, Clock: c})
	require.NoError(t, err)
	coord, err := tasks.New(tasks.Options{Store: s, Bus: bus, Clock: c})
	require.NoError(t, err)
	svc, err := New(Options{Bus: bus, Store: s, Agents: reg, Tasks: coord})
	require.NoError(t, err)
	return &harness{svc: svc, reg: reg, coord: coord, store: s, bus: bus, clock: c}
}

func TestGetNextTaskRejectsUnknownAgent(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.GetNextTask(context.Background(), "nonexistent", 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestGetNextTaskReturnsPreExistingTaskImmediately(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	agentID, err := h.reg.Register(ctx, "persona-a", "/work", "", "")
	require.NoError(t, err)
	taskID, err := h.coord.CreateTask(ctx, "", "persona-a", "prompt", "do it", store.PriorityNormal)
	require.NoError(t, err)

	start := time.Now()
	env, err := h.svc.GetNextTask(ctx, agentID, 5*time.Second)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.False(t, env.Synthetic)
	assert.Equal(t, taskID, env.TaskID)
	assert.Less(t, elapsed, time.Second, "a pre-existing task must be returned well under the timeout")
}

func TestGetNextTaskReturnsSyntheticEnvelopeOnTimeout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	agentID, err := h.reg.Register(ctx, "persona-a", "/work", "", "")
	require.NoError(t, err)

	env, err := h.svc.GetNextTask(ctx, agentID, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, env.Synthetic)
	assert.Contains(t, env.TaskID, "system:")
	assert.Contains(t, env.Message, "No tasks available")
	assert.Contains(t, env.Message, "call this tool again")
}

func TestGetNextTaskWakesOnLaterTaskCreation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	agentID, err := h.reg.Register(ctx, "persona-a", "/work", "", "")
	require.NoError(t, err)

	resultCh := make(chan TaskEnvelope, 1)
	errCh := make(chan error, 1)
	go func() {
		env, err := h.svc.GetNextTask(ctx, agentID, 5*time.Second)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- env
	}()

	time.Sleep(50 * time.Millisecond)
	taskID, err := h.coord.CreateTask(ctx, "", "persona-a", "prompt", "do it", store.PriorityNormal)
	require.NoError(t, err)

	select {
	case env := <-resultCh:
		assert.False(t, env.Synthetic)
		assert.Equal(t, taskID, env.TaskID)
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("getNextTask did not wake on task creation")
	}
}

func TestGetNextTaskHeartbeatsAgent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	agentID, err := h.reg.Register(ctx, "persona-a", "/work", "", "")
	require.NoError(t, err)

	before, _, err := h.reg.Get(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, store.AgentStarting, before.Status)

	_, err = h.svc.GetNextTask(ctx, agentID, 20*time.Millisecond)
	require.NoError(t, err)

	after, _, err := h.reg.Get(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, store.AgentRunning, after.Status, "getNextTask must heartbeat (and thus activate) the agent before waiting")
}

func TestWaitForMemoryKeyTimesOut(t *testing.T) {
	h := newHarness(t)
	_, found, err := h.svc.WaitForMemoryKey(context.Background(), "ns", "missing-key", 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWaitForMemoryKeyReturnsPreExistingEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ws, err := h.store.NewWrite(ctx)
	require.NoError(t, err)
	ws.PutMemoryEntry(store.MemoryEntry{Namespace: "ns", Key: "k", Value: "v"})
	require.NoError(t, ws.Commit(ctx))

	entry, found, err := h.svc.WaitForMemoryKey(ctx, "ns", "k", 5*time.Second)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", entry.Value)
}

func TestWaitForMemoryKeyWakesOnLaterSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resultCh := make(chan store.MemoryEntry, 1)
	go func() {
		entry, found, err := h.svc.WaitForMemoryKey(ctx, "ns", "k", 5*time.Second)
		require.NoError(t, err)
		if found {
			resultCh <- entry
		}
	}()

	time.Sleep(50 * time.Millisecond)
	ws, err := h.store.NewWrite(ctx)
	require.NoError(t, err)
	ws.PutMemoryEntry(store.MemoryEntry{Namespace: "ns", Key: "k", Value: "v2"})
	require.NoError(t, ws.Commit(ctx))
	require.NoError(t, h.bus.Publish(ctx, eventbus.MemoryEvent{VariantName: eventbus.MemorySaved, Namespace: "ns", Key: "k"}))

	select {
	case entry := <-resultCh:
		assert.Equal(t, "v2", entry.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("waitForMemoryKey did not wake on later save")
	}
}
