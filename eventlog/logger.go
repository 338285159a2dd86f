// Package eventlog implements the Event Logger (spec.md §4.8): a background
// subscriber that mirrors task and agent lifecycle events into the
// append-only Event Log table for audit purposes. It is a read-only
// downstream consumer of the Event Bus and the sole writer of Event Log
// Entries.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coordframe/agentcoord/internal/clock"
	"github.com/coordframe/agentcoord/internal/eventbus"
	"github.com/coordframe/agentcoord/internal/store"
	"github.com/coordframe/agentcoord/internal/telemetry"
)

// Logger subscribes to all task and agent events and appends an Event Log
// Entry for each one it observes.
type Logger struct {
	store  store.Store
	bus    *eventbus.Bus
	clock  clock.Clock
	logger telemetry.Logger

	taskSub  *eventbus.Subscription
	agentSub *eventbus.Subscription
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Options configures a Logger.
type Options struct {
	Store  store.Store
	Bus    *eventbus.Bus
	Clock  clock.Clock
	Logger telemetry.Logger
}

// New constructs a Logger. Store, Bus, and Clock are required.
func New(opts Options) (*Logger, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("eventlog: store is required")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("eventlog: bus is required")
	}
	if opts.Clock == nil {
		return nil, fmt.Errorf("eventlog: clock is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Logger{store: opts.Store, bus: opts.Bus, clock: opts.Clock, logger: logger}, nil
}

// Start subscribes to the task and agent event streams and begins
// persisting events in the background. Subscribe is synchronous (spec.md
// §4.2), so by the time Start returns, no event published afterward can be
// missed — callers may immediately begin producing events that must be
// logged.
func (l *Logger) Start() {
	l.taskSub = l.bus.Subscribe(eventbus.AnyFamily(eventbus.FamilyTask), eventbus.SubscribeOptions{})
	l.agentSub = l.bus.Subscribe(eventbus.AnyFamily(eventbus.FamilyAgent), eventbus.SubscribeOptions{})

	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(2)
	go l.consume(runCtx, l.taskSub)
	go l.consume(runCtx, l.agentSub)
}

// Stop cancels both subscriptions and waits for any write already in flight
// to finish. Events still queued in the subscription buffer at the moment
// of cancellation are discarded (eventbus.Subscription.Cancel's documented
// behavior) rather than drained — only the write in progress, if any, is
// allowed to complete.
func (l *Logger) Stop() {
	if l.taskSub != nil {
		l.taskSub.Cancel()
	}
	if l.agentSub != nil {
		l.agentSub.Cancel()
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}

func (l *Logger) consume(ctx context.Context, sub *eventbus.Subscription) {
	defer l.wg.Done()
	for {
		ev, ok := sub.Next(ctx)
		if !ok {
			return
		}
		l.persist(ev)
	}
}

func (l *Logger) persist(ev eventbus.Event) {
	entry, err := buildEntry(l.clock.Now(), ev)
	if err != nil {
		l.logger.Error(context.Background(), "eventlog: failed to build entry", "error", err)
		return
	}

	ws, err := l.store.NewWrite(context.Background())
	if err != nil {
		l.logger.Error(context.Background(), "eventlog: failed to open write scope", "error", err)
		return
	}
	ws.AppendEventLog(entry)
	if err := ws.Commit(context.Background()); err != nil {
		l.logger.Error(context.Background(), "eventlog: failed to persist entry", "error", err, "eventType", entry.EventType)
	}
}

// buildEntry maps a bus event to the Event Log Entry shape described in
// spec.md §4.8: eventType is the family name concatenated with the
// variant, severity is Warning for *Failed and AgentKilled and Information
// otherwise, and tags carry persona/event hints used by audit queries.
func buildEntry(now time.Time, ev eventbus.Event) (store.EventLogEntry, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return store.EventLogEntry{}, fmt.Errorf("marshal event payload: %w", err)
	}

	entry := store.EventLogEntry{
		ID:        uuid.New().String(),
		Timestamp: now,
		Payload:   string(payload),
		Severity:  store.SeverityInformation,
	}

	switch e := ev.(type) {
	case eventbus.TaskEvent:
		entry.EventType = "Task" + e.Variant()
		entry.EntityType = store.EntityTask
		entry.EntityID = e.TaskID
		entry.Actor = e.AgentID
		if e.Variant() == eventbus.TaskFailed {
			entry.Severity = store.SeverityWarning
		}
		if e.Variant() == eventbus.TaskCreated && e.PersonaID != "" {
			entry.Tags = append(entry.Tags, "persona:"+e.PersonaID)
		}
	case eventbus.AgentEvent:
		entry.EventType = "Agent" + e.Variant()
		entry.EntityType = store.EntityAgent
		entry.EntityID = e.AgentID
		entry.Actor = e.AgentID
		if e.Variant() == eventbus.AgentKilled {
			entry.Severity = store.SeverityWarning
		}
		entry.Tags = append(entry.Tags, "event:"+e.Variant())
	default:
		return store.EventLogEntry{}, fmt.Errorf("unrecognized event type %T", ev)
	}

	return entry, nil
}
