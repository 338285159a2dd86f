// Package tasks implements the Task Coordinator (spec.md §4.5): task
// creation, atomic fetch-next-and-claim under priority+FIFO ordering, and
// completion. It is the sole mutator of Task rows other than the Agent
// Registry's kill cascade (spec.md §9).
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/coordframe/agentcoord/internal/clock"
	"github.com/coordframe/agentcoord/internal/eventbus"
	"github.com/coordframe/agentcoord/internal/store"
	"github.com/coordframe/agentcoord/internal/telemetry"
)

// ErrAgentNotFound indicates agentId does not refer to a registered agent.
var ErrAgentNotFound = errors.New("tasks: agent not found")

// ErrAgentNotEligible indicates the agent exists but is not in a status
// that may be assigned new work (it is Stopped or Killed).
var ErrAgentNotEligible = errors.New("tasks: agent is not in a startable state")

// ErrTaskNotFound indicates taskId does not refer to an existing task.
var ErrTaskNotFound = errors.New("tasks: task not found")

// ErrTaskAlreadyTerminal indicates the task is already Completed or Failed.
var ErrTaskAlreadyTerminal = errors.New("tasks: task is already in a terminal state")

// Coordinator owns the Task lifecycle: creation, claiming, and completion.
type Coordinator struct {
	store   store.Store
	bus     *eventbus.Bus
	clock   clock.Clock
	logger  telemetry.Logger
	metrics telemetry.Metrics
}

// Options configures a Coordinator.
type Options struct {
	Store   store.Store
	Bus     *eventbus.Bus
	Clock   clock.Clock
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// New constructs a Coordinator. Store, Bus, and Clock are required.
func New(opts Options) (*Coordinator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("tasks: store is required")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("tasks: bus is required")
	}
	if opts.Clock == nil {
		return nil, fmt.Errorf("tasks: clock is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Coordinator{
		store:   opts.Store,
		bus:     opts.Bus,
		clock:   opts.Clock,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// CreateTask inserts a new Pending Work Item. If agentID is non-empty, the
// agent must exist and be in {Starting, Running}; an empty agentID leaves
// the task unassigned, eligible for claiming by persona.
func (c *Coordinator) CreateTask(ctx context.Context, agentID, personaID, personaText, description string, priority store.Priority) (string, error) {
	ws, err := c.store.NewWrite(ctx)
	if err != nil {
		return "", fmt.Errorf("tasks: create task: %w", err)
	}
	defer func() {
		if ws != nil {
			ws.Discard()
		}
	}()

	if agentID != "" {
		agent, ok := ws.GetAgent(agentID)
		if !ok {
			return "", ErrAgentNotFound
		}
		if agent.Status != store.AgentStarting && agent.Status != store.AgentRunning {
			return "", ErrAgentNotEligible
		}
	}

	id := uuid.New().String()
	task := store.Task{
		ID:              id,
		AssignedAgentID: agentID,
		PersonaID:       personaID,
		PersonaText:     personaText,
		Description:     description,
		Priority:        priority,
		Status:          store.TaskPending,
		CreatedAt:       c.clock.Now(),
	}
	ws.PutTask(task)
	ws.OnCommit(func() {
		_ = c.bus.Publish(context.Background(), eventbus.TaskEvent{
			VariantName: eventbus.TaskCreated,
			TaskID:      id,
			AgentID:     agentID,
			PersonaID:   personaID,
		})
	})

	commitScope := ws
	ws = nil
	if err := commitScope.Commit(ctx); err != nil {
		return "", fmt.Errorf("tasks: create task: %w", err)
	}
	c.metrics.IncCounter("tasks.created", 1)
	return id, nil
}

// ClaimNext atomically selects and assigns the best-eligible Pending task
// for agentID, per the S1-then-S2 selection rule in spec.md §4.5: tasks
// already assigned to agentID win over any unassigned, persona-eligible
// task, and within each set the highest priority wins, ties broken by
// earliest creation. ok is false if no eligible task exists.
func (c *Coordinator) ClaimNext(ctx context.Context, agentID string) (task store.Task, ok bool, err error) {
	ws, err := c.store.NewWrite(ctx)
	if err != nil {
		return store.Task{}, false, fmt.Errorf("tasks: claim next: %w", err)
	}
	defer func() {
		if ws != nil {
			ws.Discard()
		}
	}()

	agent, found := ws.GetAgent(agentID)
	if !found {
		return store.Task{}, false, ErrAgentNotFound
	}

	winner, found := selectClaimCandidate(ws.ListTasksByStatus(store.TaskPending), agentID, agent.PersonaID)
	if !found {
		return store.Task{}, false, nil
	}

	now := c.clock.Now()
	winner.AssignedAgentID = agentID
	winner.Status = store.TaskInProgress
	winner.StartedAt = &now
	ws.PutTask(winner)
	ws.OnCommit(func() {
		_ = c.bus.Publish(context.Background(), eventbus.TaskEvent{
			VariantName: eventbus.TaskClaimed,
			TaskID:      winner.ID,
			AgentID:     agentID,
			PersonaID:   winner.PersonaID,
		})
	})

	commitScope := ws
	ws = nil
	if err := commitScope.Commit(ctx); err != nil {
		return store.Task{}, false, fmt.Errorf("tasks: claim next: %w", err)
	}
	c.metrics.IncCounter("tasks.claimed", 1)
	return winner, true, nil
}

// selectClaimCandidate implements the S1/S2 union rule: assigned-to-me
// Pending tasks (S1) beat unassigned, persona-eligible Pending tasks (S2),
// with priority-then-FIFO ordering inside each set.
func selectClaimCandidate(pending []store.Task, agentID, agentPersonaID string) (store.Task, bool) {
	var s1, s2 []store.Task
	for _, t := range pending {
		switch {
		case t.AssignedAgentID == agentID:
			s1 = append(s1, t)
		case t.AssignedAgentID == "" && (t.PersonaID == "" || t.PersonaID == agentPersonaID):
			s2 = append(s2, t)
		}
	}
	if best, found := bestByPriorityThenFIFO(s1); found {
		return best, true
	}
	return bestByPriorityThenFIFO(s2)
}

func bestByPriorityThenFIFO(candidates []store.Task) (store.Task, bool) {
	if len(candidates) == 0 {
		return store.Task{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates[0], true
}

// Complete transitions taskID to Completed, recording resultText.
func (c *Coordinator) Complete(ctx context.Context, taskID, resultText string) (store.Task, error) {
	ws, err := c.store.NewWrite(ctx)
	if err != nil {
		return store.Task{}, fmt.Errorf("tasks: complete: %w", err)
	}
	defer func() {
		if ws != nil {
			ws.Discard()
		}
	}()

	task, found := ws.GetTask(taskID)
	if !found {
		return store.Task{}, ErrTaskNotFound
	}
	if task.Status == store.TaskCompleted || task.Status == store.TaskFailed {
		return store.Task{}, ErrTaskAlreadyTerminal
	}

	now := c.clock.Now()
	task.Status = store.TaskCompleted
	task.CompletedAt = &now
	task.Result = &resultText
	ws.PutTask(task)
	ws.OnCommit(func() {
		_ = c.bus.Publish(context.Background(), eventbus.TaskEvent{
			VariantName: eventbus.TaskCompleted,
			TaskID:      taskID,
			AgentID:     task.AssignedAgentID,
			PersonaID:   task.PersonaID,
		})
	})

	commitScope := ws
	ws = nil
	if err := commitScope.Commit(ctx); err != nil {
		return store.Task{}, fmt.Errorf("tasks: complete: %w", err)
	}
	c.metrics.IncCounter("tasks.completed", 1)
	return task, nil
}

// TasksByStatus returns a Store snapshot of every task in the given status.
func (c *Coordinator) TasksByStatus(ctx context.Context, status store.TaskStatus) ([]store.Task, error) {
	rs, err := c.store.NewRead(ctx)
	if err != nil {
		return nil, fmt.Errorf("tasks: tasks by status: %w", err)
	}
	return rs.ListTasksByStatus(status), nil
}

// TasksByAgent returns a Store snapshot of every task assigned to agentID.
func (c *Coordinator) TasksByAgent(ctx context.Context, agentID string) ([]store.Task, error) {
	rs, err := c.store.NewRead(ctx)
	if err != nil {
		return nil, fmt.Errorf("tasks: tasks by agent: %w", err)
	}
	return rs.ListTasksByAgent(agentID), nil
}

// TaskStatus returns the task identified by taskID. ok is false if it does
// not exist; this is a pure query and is never an error (spec.md §7).
func (c *Coordinator) TaskStatus(ctx context.Context, taskID string) (store.Task, bool, error) {
	rs, err := c.store.NewRead(ctx)
	if err != nil {
		return store.Task{}, false, fmt.Errorf("tasks: task status: %w", err)
	}
	t, ok := rs.GetTask(taskID)
	return t, ok, nil
}
