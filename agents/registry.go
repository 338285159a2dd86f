// Package agents implements the Agent Registry (spec.md §4.4): agent
// registration, heartbeat/activation, and kill with dangling-task cascade.
// It is the sole mutator of Agent rows; the Task Coordinator never edits
// them. The only Task rows this package edits are the InProgress tasks that
// the kill cascade fails, in the same write scope as the kill (spec.md §9).
package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coordframe/agentcoord/internal/clock"
	"github.com/coordframe/agentcoord/internal/eventbus"
	"github.com/coordframe/agentcoord/internal/store"
	"github.com/coordframe/agentcoord/internal/telemetry"
)

// ErrNotFound indicates the referenced agent does not exist.
var ErrNotFound = errors.New("agents: not found")

// ProcessTerminator is the narrow interface Kill uses to end an agent's
// child process. See collaborators.OSProcessTerminator for the production
// implementation; Kill works fine with a nil Terminator (no process to
// terminate, e.g. in tests).
type ProcessTerminator interface {
	Terminate(ctx context.Context, processID string) error
}

// Registry owns the Agent lifecycle state machine.
type Registry struct {
	store      store.Store
	bus        *eventbus.Bus
	clock      clock.Clock
	logger     telemetry.Logger
	metrics    telemetry.Metrics
	terminator ProcessTerminator
}

// Options configures a Registry.
type Options struct {
	Store      store.Store
	Bus        *eventbus.Bus
	Clock      clock.Clock
	Logger     telemetry.Logger
	Metrics    telemetry.Metrics
	Terminator ProcessTerminator // optional; nil means no process to kill
}

// New constructs a Registry. Store, Bus, and Clock are required.
func New(opts Options) (*Registry, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("agents: store is required")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("agents: bus is required")
	}
	if opts.Clock == nil {
		return nil, fmt.Errorf("agents: clock is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Registry{
		store:      opts.Store,
		bus:        opts.Bus,
		clock:      opts.Clock,
		logger:     logger,
		metrics:    metrics,
		terminator: opts.Terminator,
	}, nil
}

// Register creates a new Agent in the Starting status and publishes
// Registered. workingDirectory, model, and worktreeName are recorded
// verbatim; none of them is validated, and any may be empty.
func (r *Registry) Register(ctx context.Context, personaID, workingDirectory, model, worktreeName string) (string, error) {
	now := r.clock.Now()
	id := uuid.New().String()
	agent := store.Agent{
		ID:               id,
		PersonaID:        personaID,
		WorkingDirectory: workingDirectory,
		Model:            model,
		WorktreeName:     worktreeName,
		Status:           store.AgentStarting,
		RegisteredAt:     now,
		LastHeartbeat:    now,
	}

	ws, err := r.store.NewWrite(ctx)
	if err != nil {
		return "", fmt.Errorf("agents: register: %w", err)
	}
	ws.PutAgent(agent)
	ws.OnCommit(func() {
		_ = r.bus.Publish(context.Background(), eventbus.AgentEvent{
			VariantName: eventbus.AgentRegistered,
			AgentID:     id,
			PersonaID:   personaID,
			NewStatus:   string(store.AgentStarting),
		})
	})
	if err := ws.Commit(ctx); err != nil {
		return "", fmt.Errorf("agents: register: %w", err)
	}
	r.metrics.IncCounter("agents.registered", 1)
	r.logger.Info(ctx, "agent registered", "agentId", id, "personaId", personaID)
	return id, nil
}

// Heartbeat refreshes an agent's liveness and, on first heartbeat,
// activates it (Starting -> Running). Returns false if the agent does not
// exist; otherwise returns true even if the agent was already Killed —
// last writer wins on lastHeartbeat, but a killed agent never resurrects
// (spec.md §4.4).
func (r *Registry) Heartbeat(ctx context.Context, agentID string) (bool, error) {
	ws, err := r.store.NewWrite(ctx)
	if err != nil {
		return false, fmt.Errorf("agents: heartbeat: %w", err)
	}
	defer func() {
		if ws != nil {
			ws.Discard()
		}
	}()

	agent, ok := ws.GetAgent(agentID)
	if !ok {
		return false, nil
	}

	now := r.clock.Now()
	agent.LastHeartbeat = now

	activated := agent.Status == store.AgentStarting
	prevStatus := agent.Status
	if activated {
		agent.Status = store.AgentRunning
		startedAt := now
		agent.StartedAt = &startedAt
	}
	ws.PutAgent(agent)

	if activated {
		ws.OnCommit(func() {
			_ = r.bus.Publish(context.Background(), eventbus.AgentEvent{
				VariantName: eventbus.AgentStatusChanged,
				AgentID:     agentID,
				PersonaID:   agent.PersonaID,
				PrevStatus:  string(prevStatus),
				NewStatus:   string(store.AgentRunning),
			})
		})
	}

	commitScope := ws
	ws = nil // transfer responsibility for calling Commit/Discard to commitScope below
	if err := commitScope.Commit(ctx); err != nil {
		return false, fmt.Errorf("agents: heartbeat: %w", err)
	}
	return true, nil
}

// Kill transitions an agent from {Starting, Running} to Killed, terminates
// its process (if any), and fails every one of its InProgress tasks.
// Returns false if the agent does not exist or is already in a terminal
// status.
func (r *Registry) Kill(ctx context.Context, agentID string) (bool, error) {
	ws, err := r.store.NewWrite(ctx)
	if err != nil {
		return false, fmt.Errorf("agents: kill: %w", err)
	}
	defer func() {
		if ws != nil {
			ws.Discard()
		}
	}()

	agent, ok := ws.GetAgent(agentID)
	if !ok {
		return false, nil
	}
	if agent.Status != store.AgentStarting && agent.Status != store.AgentRunning {
		return false, nil
	}

	if agent.ProcessID != "" && r.terminator != nil {
		if termErr := r.terminator.Terminate(ctx, agent.ProcessID); termErr != nil {
			r.logger.Warn(ctx, "process termination failed", "agentId", agentID, "processId", agent.ProcessID, "error", termErr)
		}
	}

	now := r.clock.Now()
	prevStatus := agent.Status
	agent.Status = store.AgentKilled
	agent.StoppedAt = &now
	ws.PutAgent(agent)

	var failedTaskIDs []string
	for _, t := range ws.ListTasksByAgent(agentID) {
		if t.Status != store.TaskInProgress {
			continue
		}
		result := "Agent terminated"
		t.Status = store.TaskFailed
		t.Result = &result
		t.CompletedAt = &now
		ws.PutTask(t)
		failedTaskIDs = append(failedTaskIDs, t.ID)
	}

	ws.OnCommit(func() {
		bgCtx := context.Background()
		_ = r.bus.Publish(bgCtx, eventbus.AgentEvent{
			VariantName: eventbus.AgentKilled,
			AgentID:     agentID,
			PersonaID:   agent.PersonaID,
			Reason:      "Agent terminated",
		})
		_ = r.bus.Publish(bgCtx, eventbus.AgentEvent{
			VariantName: eventbus.AgentStatusChanged,
			AgentID:     agentID,
			PersonaID:   agent.PersonaID,
			PrevStatus:  string(prevStatus),
			NewStatus:   string(store.AgentKilled),
		})
		for _, taskID := range failedTaskIDs {
			_ = r.bus.Publish(bgCtx, eventbus.TaskEvent{
				VariantName: eventbus.TaskFailed,
				TaskID:      taskID,
				AgentID:     agentID,
			})
		}
	})

	commitScope := ws
	ws = nil
	if err := commitScope.Commit(ctx); err != nil {
		return false, fmt.Errorf("agents: kill: %w", err)
	}
	r.metrics.IncCounter("agents.killed", 1)
	r.logger.Info(ctx, "agent killed", "agentId", agentID, "failedTasks", len(failedTaskIDs))
	return true, nil
}

// SetProcessID records the opaque child process id for an agent, e.g. after
// launchAgent spawns it. Returns false if the agent does not exist.
func (r *Registry) SetProcessID(ctx context.Context, agentID, processID string) (bool, error) {
	ws, err := r.store.NewWrite(ctx)
	if err != nil {
		return false, fmt.Errorf("agents: set process id: %w", err)
	}
	defer func() {
		if ws != nil {
			ws.Discard()
		}
	}()
	agent, ok := ws.GetAgent(agentID)
	if !ok {
		return false, nil
	}
	agent.ProcessID = processID
	ws.PutAgent(agent)
	commitScope := ws
	ws = nil
	if err := commitScope.Commit(ctx); err != nil {
		return false, fmt.Errorf("agents: set process id: %w", err)
	}
	return true, nil
}

// Get returns the agent identified by agentID.
func (r *Registry) Get(ctx context.Context, agentID string) (store.Agent, bool, error) {
	rs, err := r.store.NewRead(ctx)
	if err != nil {
		return store.Agent{}, false, fmt.Errorf("agents: get: %w", err)
	}
	a, ok := rs.GetAgent(agentID)
	return a, ok, nil
}

// List returns every agent, optionally filtered by personaID (empty string
// means no filter).
func (r *Registry) List(ctx context.Context, personaFilter string) ([]store.Agent, error) {
	rs, err := r.store.NewRead(ctx)
	if err != nil {
		return nil, fmt.Errorf("agents: list: %w", err)
	}
	all := rs.ListAgents()
	if personaFilter == "" {
		return all, nil
	}
	out := make([]store.Agent, 0, len(all))
	for _, a := range all {
		if a.PersonaID == personaFilter {
			out = append(out, a)
		}
	}
	return out, nil
}

// IsLive reports whether agentID exists and is in {Starting, Running}.
func (r *Registry) IsLive(ctx context.Context, agentID string) (bool, error) {
	a, ok, err := r.Get(ctx, agentID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return a.Status == store.AgentStarting || a.Status == store.AgentRunning, nil
}
