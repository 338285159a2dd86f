package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordframe/agentcoord/agents"
	"github.com/coordframe/agentcoord/collaborators"
	"github.com/coordframe/agentcoord/internal/clock"
	"github.com/coordframe/agentcoord/internal/eventbus"
	memstore "github.com/coordframe/agentcoord/internal/store/memory"
	"github.com/coordframe/agentcoord/memory"
	"github.com/coordframe/agentcoord/tasks"
	"github.com/coordframe/agentcoord/wait"
)

func newTestServer(t *testing.T) (*Server, *clock.Test) {
	t.Helper()
	s := memstore.New()
	bus := eventbus.New(nil)
	c := clock.NewTest(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	reg, err := agents.New(agents.Options{Store: s, Bus: bus, Clock: c})
	require.NoError(t, err)
	coord, err := tasks.New(tasks.Options{Store: s, Bus: bus, Clock: c})
	require.NoError(t, err)
	waitSvc, err := wait.New(wait.Options{Bus: bus, Store: s, Agents: reg, Tasks: coord})
	require.NoError(t, err)
	memSvc, err := memory.New(memory.Options{Store: s, Bus: bus, Clock: c})
	require.NoError(t, err)

	srv, err := New(Options{
		Agents:     reg,
		Tasks:      coord,
		Wait:       waitSvc,
		Memory:     memSvc,
		Personas:   collaborators.EmbeddedResolver{Personas: map[string]string{"persona-a": "you are persona a"}},
		Workspaces: collaborators.LocalWorkspaceManager{Root: t.TempDir()},
		VCS:        &collaborators.NoopVersionControl{},
		Terminals:  collaborators.NoopTerminalLauncher{},
	})
	require.NoError(t, err)
	return srv, c
}

func TestCreateTaskAndGetTaskStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	res := srv.CreateTask(ctx, "", "", "prompt", "do it", "High")
	require.True(t, res.Success)
	require.NotEmpty(t, res.TaskID)

	status := srv.GetTaskStatus(ctx, res.TaskID)
	assert.True(t, status.Success)
	assert.Equal(t, "Pending", status.Status)
}

func TestGetTaskStatusUnknownIsSuccessWithEmptyFields(t *testing.T) {
	srv, _ := newTestServer(t)
	status := srv.GetTaskStatus(context.Background(), "nonexistent")
	assert.True(t, status.Success)
	assert.Empty(t, status.TaskID)
	assert.Empty(t, status.Status)
}

func TestCreateTaskUnknownAgentReturnsFailureMessage(t *testing.T) {
	srv, _ := newTestServer(t)
	res := srv.CreateTask(context.Background(), "nonexistent", "", "", "desc", "")
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "Agent not found")
}

func TestGetNextTaskSyntheticMessageOnTimeout(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	launch := srv.LaunchAgent(ctx, "persona-a", "", "", "", false)
	require.True(t, launch.Success)

	res := srv.GetNextTask(ctx, launch.AgentID, 30*time.Millisecond)
	assert.True(t, res.Success)
	assert.Contains(t, res.TaskID, "system:")
	assert.Contains(t, res.Message, "No tasks available")
	assert.Contains(t, res.Message, "call this tool again")
}

func TestGetNextTaskUnknownAgentFails(t *testing.T) {
	srv, _ := newTestServer(t)
	res := srv.GetNextTask(context.Background(), "nonexistent", 10*time.Millisecond)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Agent not found")
}

func TestReportTaskCompletionMessages(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	notFound := srv.ReportTaskCompletion(ctx, "nonexistent", "x")
	assert.False(t, notFound.Success)
	assert.Contains(t, notFound.Message, "Task not found")

	createRes := srv.CreateTask(ctx, "", "", "prompt", "desc", "")
	require.True(t, createRes.Success)
	launch := srv.LaunchAgent(ctx, "persona-a", "", "", "", false)
	require.True(t, launch.Success)
	next := srv.GetNextTask(ctx, launch.AgentID, 2*time.Second)
	require.True(t, next.Success)

	ok := srv.ReportTaskCompletion(ctx, next.TaskID, "done")
	assert.True(t, ok.Success)

	again := srv.ReportTaskCompletion(ctx, next.TaskID, "done again")
	assert.False(t, again.Success)
	assert.Contains(t, again.Message, "already completed")
}

func TestLaunchAgentThenListAgentsThenKillAgent(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	launch := srv.LaunchAgent(ctx, "persona-a", "initial work", "", "", false)
	require.True(t, launch.Success)
	require.NotEmpty(t, launch.AgentID)

	list := srv.ListAgents(ctx, "")
	assert.True(t, list.Success)
	require.Len(t, list.Agents, 1)
	assert.Equal(t, "persona-a", list.Agents[0].PersonaID)

	byAgent := srv.GetTasksByAgentID(ctx, launch.AgentID)
	assert.True(t, byAgent.Success)
	assert.Len(t, byAgent.Tasks, 1, "launchAgent with a description should seed an initial task")

	kill := srv.KillAgent(ctx, launch.AgentID)
	assert.True(t, kill.Success)

	killAgain := srv.KillAgent(ctx, launch.AgentID)
	assert.False(t, killAgain.Success)
}

func TestLaunchAgentUnknownPersonaFails(t *testing.T) {
	srv, _ := newTestServer(t)
	res := srv.LaunchAgent(context.Background(), "nonexistent-persona", "", "", "", false)
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "Persona not found")
}

func TestKillAgentUnknownFails(t *testing.T) {
	srv, _ := newTestServer(t)
	res := srv.KillAgent(context.Background(), "nonexistent")
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "Agent not found")
}

func TestSaveReadAndListMemory(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	save := srv.SaveMemory(ctx, "ns", "k", "v1", "", nil)
	assert.True(t, save.Success)
	assert.Equal(t, "k", save.Key)

	read := srv.ReadMemory(ctx, "ns", "k")
	assert.True(t, read.Success)
	assert.Equal(t, "v1", read.Value)

	list := srv.ListMemory(ctx, "ns")
	assert.True(t, list.Success)
	assert.Len(t, list.Entries, 1)
}

func TestReadMemoryUnknownKeyFails(t *testing.T) {
	srv, _ := newTestServer(t)
	res := srv.ReadMemory(context.Background(), "", "nonexistent")
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "not found")
}

func TestGetTasksByStatusUnknownStatusFails(t *testing.T) {
	srv, _ := newTestServer(t)
	res := srv.GetTasksByStatus(context.Background(), "Bogus")
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "unknown status")
}
