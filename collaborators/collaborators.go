// Package collaborators defines the narrow interfaces to external systems
// that the coordination kernel calls out to, per spec.md §6: process
// termination, persona text resolution, workspace/file-system setup,
// version-control worktrees, and terminal launching. None of these hold
// shared state with the coordinator beyond the persisted Agent row.
//
// The kernel (agents, tasks, memory, wait, eventlog) never imports this
// package directly — only out-of-core code does: the rpc.LaunchAgent
// wrapper, to set up a newly launched agent, and the coordinator and
// cmd/coordinatord wiring that hand implementations to it. The interfaces
// live here, rather than in rpc, so alternative local implementations
// (tests, a future CLI) can be swapped in without touching rpc.
package collaborators

import "context"

// ProcessTerminator kills a previously spawned agent process by its opaque
// process id. Implementations must be idempotent and must not return an
// error for a process that is already gone.
type ProcessTerminator interface {
	Terminate(ctx context.Context, processID string) error
}

// PersonaResolver resolves a personaId to the prompt text delivered to an
// agent. The core never parses this text; it is opaque as far as the
// kernel is concerned (spec.md §9).
type PersonaResolver interface {
	Resolve(ctx context.Context, personaID string) (text string, found bool, err error)
}

// WorkspaceManager creates the on-disk working directory and context files
// for a newly launched agent.
type WorkspaceManager interface {
	PrepareWorkspace(ctx context.Context, agentID, personaID string) (workingDirectory string, err error)
}

// VersionControl creates and lists git worktrees used to isolate an agent's
// working copy from its siblings.
type VersionControl interface {
	CreateWorktree(ctx context.Context, name string) (path string, err error)
	ListWorktrees(ctx context.Context) ([]string, error)
}

// TerminalLauncher spawns an interactive child process for an agent with a
// given working directory and command line.
type TerminalLauncher interface {
	Launch(ctx context.Context, workingDirectory string, command []string) (processID string, err error)
}
