package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordframe/agentcoord/internal/store"
)

func TestCommitMakesWritesVisibleToNewReadScopes(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws, err := s.NewWrite(ctx)
	require.NoError(t, err)
	ws.PutAgent(store.Agent{ID: "a1", Status: store.AgentStarting})
	require.NoError(t, ws.Commit(ctx))

	rs, err := s.NewRead(ctx)
	require.NoError(t, err)
	a, ok := rs.GetAgent("a1")
	require.True(t, ok)
	assert.Equal(t, store.AgentStarting, a.Status)
}

func TestDiscardLeavesNoTrace(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws, err := s.NewWrite(ctx)
	require.NoError(t, err)
	ws.PutAgent(store.Agent{ID: "a1"})
	ws.Discard()

	rs, err := s.NewRead(ctx)
	require.NoError(t, err)
	_, ok := rs.GetAgent("a1")
	assert.False(t, ok)
}

func TestReadScopeSnapshotIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	rs, err := s.NewRead(ctx)
	require.NoError(t, err)

	ws, err := s.NewWrite(ctx)
	require.NoError(t, err)
	ws.PutAgent(store.Agent{ID: "a1"})
	require.NoError(t, ws.Commit(ctx))

	_, ok := rs.GetAgent("a1")
	assert.False(t, ok, "a read scope created before the commit must not observe it")

	rs2, err := s.NewRead(ctx)
	require.NoError(t, err)
	_, ok = rs2.GetAgent("a1")
	assert.True(t, ok)
}

func TestWriteScopeReadYourWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws, err := s.NewWrite(ctx)
	require.NoError(t, err)
	ws.PutAgent(store.Agent{ID: "a1", Status: store.AgentStarting})
	a, ok := ws.GetAgent("a1")
	require.True(t, ok)
	assert.Equal(t, store.AgentStarting, a.Status)
	ws.Discard()
}

func TestNewWriteSerializesConcurrentScopes(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws1, err := s.NewWrite(ctx)
	require.NoError(t, err)

	secondOpened := make(chan struct{})
	go func() {
		ws2, err := s.NewWrite(ctx)
		require.NoError(t, err)
		close(secondOpened)
		ws2.Discard()
	}()

	select {
	case <-secondOpened:
		t.Fatal("second write scope must not open while the first is outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	ws1.Discard()

	select {
	case <-secondOpened:
	case <-time.After(time.Second):
		t.Fatal("second write scope should open once the first is discarded")
	}
}

func TestNewWriteRespectsContextCancellation(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws1, err := s.NewWrite(ctx)
	require.NoError(t, err)
	defer ws1.Discard()

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.NewWrite(cctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCommitOrDiscardTwiceInvariantPanics(t *testing.T) {
	s := New()
	ctx := context.Background()
	ws, err := s.NewWrite(ctx)
	require.NoError(t, err)
	require.NoError(t, ws.Commit(ctx))
	assert.Panics(t, func() { ws.Discard() })
}

func TestOnCommitCallbacksRunOnlyAfterCommit(t *testing.T) {
	s := New()
	ctx := context.Background()

	var committed bool
	ws, err := s.NewWrite(ctx)
	require.NoError(t, err)
	ws.OnCommit(func() { committed = true })
	ws.Discard()
	assert.False(t, committed, "OnCommit callbacks must not run for a discarded scope")

	ws2, err := s.NewWrite(ctx)
	require.NoError(t, err)
	ws2.OnCommit(func() { committed = true })
	require.NoError(t, ws2.Commit(ctx))
	assert.True(t, committed)
}

func TestListTasksByStatusAndAgent(t *testing.T) {
	s := New()
	ctx := context.Background()

	ws, err := s.NewWrite(ctx)
	require.NoError(t, err)
	ws.PutTask(store.Task{ID: "t1", Status: store.TaskPending, AssignedAgentID: "a1"})
	ws.PutTask(store.Task{ID: "t2", Status: store.TaskInProgress, AssignedAgentID: "a1"})
	ws.PutTask(store.Task{ID: "t3", Status: store.TaskPending})
	require.NoError(t, ws.Commit(ctx))

	rs, err := s.NewRead(ctx)
	require.NoError(t, err)
	assert.Len(t, rs.ListTasksByStatus(store.TaskPending), 2)
	assert.Len(t, rs.ListTasksByAgent("a1"), 2)
}
