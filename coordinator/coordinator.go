// Package coordinator assembles the coordination kernel's components
// (Clock, Event Bus, Store, Agent Registry, Task Coordinator, Wait
// Service, Memory Service, Event Logger) into a single runnable unit,
// analogous to how the teacher wires its registry.Registry.
package coordinator

import (
	"context"
	"fmt"

	"github.com/coordframe/agentcoord/agents"
	"github.com/coordframe/agentcoord/collaborators"
	"github.com/coordframe/agentcoord/eventlog"
	"github.com/coordframe/agentcoord/internal/clock"
	"github.com/coordframe/agentcoord/internal/eventbus"
	"github.com/coordframe/agentcoord/internal/store"
	"github.com/coordframe/agentcoord/internal/store/memory"
	"github.com/coordframe/agentcoord/internal/telemetry"
	memsvc "github.com/coordframe/agentcoord/memory"
	"github.com/coordframe/agentcoord/rpc"
	"github.com/coordframe/agentcoord/tasks"
	"github.com/coordframe/agentcoord/wait"
)

// Coordinator holds every wired component of a running kernel instance.
type Coordinator struct {
	Clock   clock.Clock
	Bus     *eventbus.Bus
	Store   store.Store
	Agents  *agents.Registry
	Tasks   *tasks.Coordinator
	Wait    *wait.Service
	Memory  *memsvc.Service
	Logger  *eventlog.Logger
	RPC     *rpc.Server

	telemetryLogger telemetry.Logger
}

// Config configures a Coordinator. All fields are optional; zero values
// select in-process defaults suitable for a single-node deployment.
type Config struct {
	// Clock overrides the wall clock, primarily for deterministic tests.
	Clock clock.Clock
	// Store overrides the persistence backend. Defaults to an in-memory
	// single-writer store (internal/store/memory).
	Store store.Store
	// Logger is the structured logger used across every component.
	Logger telemetry.Logger
	// Metrics is the metrics sink used across every component.
	Metrics telemetry.Metrics
	// EventBusCapacity bounds each subscriber's buffer; zero selects
	// eventbus.DefaultCapacity.
	EventBusCapacity int

	// Personas, Workspaces, VCS, and Terminals wire rpc.Server.LaunchAgent
	// to concrete collaborator implementations. Leaving Personas,
	// Workspaces, or Terminals nil disables LaunchAgent (every other
	// operation still works); a nil VCS only skips worktree creation.
	Personas   collaborators.PersonaResolver
	Workspaces collaborators.WorkspaceManager
	VCS        collaborators.VersionControl
	Terminals  collaborators.TerminalLauncher
}

// New wires a Coordinator per cfg and starts the Event Logger.
func New(cfg Config) (*Coordinator, error) {
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}
	s := cfg.Store
	if s == nil {
		s = memory.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	bus := eventbus.NewWithCapacity(metrics, cfg.EventBusCapacity)

	agentRegistry, err := agents.New(agents.Options{Store: s, Bus: bus, Clock: c, Logger: logger, Metrics: metrics})
	if err != nil {
		return nil, fmt.Errorf("coordinator: agents: %w", err)
	}
	taskCoordinator, err := tasks.New(tasks.Options{Store: s, Bus: bus, Clock: c, Logger: logger, Metrics: metrics})
	if err != nil {
		return nil, fmt.Errorf("coordinator: tasks: %w", err)
	}
	waitService, err := wait.New(wait.Options{Bus: bus, Store: s, Agents: agentRegistry, Tasks: taskCoordinator, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("coordinator: wait: %w", err)
	}
	memoryService, err := memsvc.New(memsvc.Options{Store: s, Bus: bus, Clock: c, Logger: logger, Metrics: metrics})
	if err != nil {
		return nil, fmt.Errorf("coordinator: memory: %w", err)
	}
	logEntries, err := eventlog.New(eventlog.Options{Store: s, Bus: bus, Clock: c, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("coordinator: eventlog: %w", err)
	}
	logEntries.Start()

	rpcServer, err := rpc.New(rpc.Options{
		Agents:     agentRegistry,
		Tasks:      taskCoordinator,
		Wait:       waitService,
		Memory:     memoryService,
		Logger:     logger,
		Personas:   cfg.Personas,
		Workspaces: cfg.Workspaces,
		VCS:        cfg.VCS,
		Terminals:  cfg.Terminals,
	})
	if err != nil {
		logEntries.Stop()
		return nil, fmt.Errorf("coordinator: rpc: %w", err)
	}

	return &Coordinator{
		Clock:           c,
		Bus:             bus,
		Store:           s,
		Agents:          agentRegistry,
		Tasks:           taskCoordinator,
		Wait:            waitService,
		Memory:          memoryService,
		Logger:          logEntries,
		RPC:             rpcServer,
		telemetryLogger: logger,
	}, nil
}

// Shutdown stops the Event Logger, waiting for it until ctx is done; if ctx
// ends first it returns ctx.Err() and the Logger finishes stopping in the
// background. It does not touch in-flight RPC calls; callers are expected
// to stop accepting new work before calling Shutdown.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		c.Logger.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
