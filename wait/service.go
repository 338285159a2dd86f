// Package wait implements the Wait Service (spec.md §4.6): a generic
// long-poll primitive, built once and reused by getNextTask and
// waitForMemoryKey, that subscribes before reading the Store so no wakeup
// can be missed between the read and the subscribe.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coordframe/agentcoord/agents"
	"github.com/coordframe/agentcoord/internal/eventbus"
	"github.com/coordframe/agentcoord/internal/store"
	"github.com/coordframe/agentcoord/internal/telemetry"
	"github.com/coordframe/agentcoord/tasks"
)

// ErrAgentNotFound indicates agentId does not refer to a registered agent.
var ErrAgentNotFound = errors.New("wait: agent not found")

// systemRequeryTaskID prefixes the synthetic envelope returned when
// getNextTask's deadline fires with no claimable task (spec.md §4.6).
const systemRequeryTaskID = "system:no-task-available"

// TaskEnvelope is the result of getNextTask: either a newly claimed task or
// the synthetic requery envelope.
type TaskEnvelope struct {
	TaskID      string
	PersonaText string
	Description string
	Message     string
	Synthetic   bool
}

// Service implements the long-poll operations built on top of the Agent
// Registry, Task Coordinator, and Event Bus.
type Service struct {
	bus    *eventbus.Bus
	store  store.Store
	agents *agents.Registry
	tasks  *tasks.Coordinator
	logger telemetry.Logger
}

// Options configures a Service.
type Options struct {
	Bus    *eventbus.Bus
	Store  store.Store
	Agents *agents.Registry
	Tasks  *tasks.Coordinator
	Logger telemetry.Logger
}

// New constructs a Service.
func New(opts Options) (*Service, error) {
	if opts.Bus == nil {
		return nil, fmt.Errorf("wait: bus is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("wait: store is required")
	}
	if opts.Agents == nil {
		return nil, fmt.Errorf("wait: agents registry is required")
	}
	if opts.Tasks == nil {
		return nil, fmt.Errorf("wait: tasks coordinator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Service{bus: opts.Bus, store: opts.Store, agents: opts.Agents, tasks: opts.Tasks, logger: logger}, nil
}

// GetNextTask refreshes agentID's heartbeat, then waits up to timeout for a
// claimable task. If the deadline fires with nothing claimed, it returns the
// synthetic "system:" requery envelope rather than an error (spec.md §4.6).
func (s *Service) GetNextTask(ctx context.Context, agentID string, timeout time.Duration) (TaskEnvelope, error) {
	live, err := s.agents.Heartbeat(ctx, agentID)
	if err != nil {
		return TaskEnvelope{}, fmt.Errorf("wait: get next task: %w", err)
	}
	if !live {
		return TaskEnvelope{}, ErrAgentNotFound
	}

	agent, _, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return TaskEnvelope{}, fmt.Errorf("wait: get next task: %w", err)
	}

	filter := eventbus.TaskEventsForAgentOrPersona(agentID, agent.PersonaID)
	check := func() (store.Task, bool, error) {
		return s.tasks.ClaimNext(ctx, agentID)
	}

	task, claimed, err := await(ctx, s.bus, filter, timeout, check)
	if err != nil {
		return TaskEnvelope{}, fmt.Errorf("wait: get next task: %w", err)
	}
	if !claimed {
		return TaskEnvelope{
			TaskID:    systemRequeryTaskID,
			Message:   "No tasks available right now; call this tool again to check for new work.",
			Synthetic: true,
		}, nil
	}
	return TaskEnvelope{
		TaskID:      task.ID,
		PersonaText: task.PersonaText,
		Description: task.Description,
		Message:     "Task claimed. Report completion, then call this tool again for the next one.",
	}, nil
}

// WaitForMemoryKey waits up to timeout for a memory entry at (namespace,
// key) to exist. found is false on timeout, which is distinct from an
// error: a deadline firing is an expected outcome, not a failure.
func (s *Service) WaitForMemoryKey(ctx context.Context, namespace, key string, timeout time.Duration) (entry store.MemoryEntry, found bool, err error) {
	filter := eventbus.MemoryEventsFor(namespace, key)
	check := func() (store.MemoryEntry, bool, error) {
		rs, err := s.store.NewRead(ctx)
		if err != nil {
			return store.MemoryEntry{}, false, err
		}
		m, ok := rs.GetMemoryEntry(namespace, key)
		return m, ok, nil
	}
	return await(ctx, s.bus, filter, timeout, check)
}

// await implements the three-step algorithm from spec.md §4.6: subscribe
// first, check the store, then loop on events until check succeeds or the
// deadline (timeout <= 0 means no deadline beyond ctx) fires.
func await[T any](ctx context.Context, bus *eventbus.Bus, filter eventbus.Filter, timeout time.Duration, check func() (T, bool, error)) (T, bool, error) {
	sub := bus.Subscribe(filter, eventbus.SubscribeOptions{})
	defer sub.Cancel()

	if v, ok, err := check(); err != nil || ok {
		return v, ok, err
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		if _, ok := sub.Next(waitCtx); !ok {
			var zero T
			return zero, false, nil
		}
		if v, ok, err := check(); err != nil || ok {
			return v, ok, err
		}
	}
}
