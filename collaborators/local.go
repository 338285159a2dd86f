package collaborators

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
)

// OSProcessTerminator terminates processes by PID using SIGTERM. It treats
// "process not found" as success, matching the idempotency contract.
type OSProcessTerminator struct{}

// Terminate sends SIGTERM to the process identified by processID (a decimal
// PID). A processID that does not parse or no longer exists is not an
// error — termination is idempotent.
func (OSProcessTerminator) Terminate(_ context.Context, processID string) error {
	pid, err := strconv.Atoi(processID)
	if err != nil {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil && !strings.Contains(err.Error(), "process already finished") {
		return fmt.Errorf("terminate process %d: %w", pid, err)
	}
	return nil
}

// EmbeddedResolver resolves personas from a compiled-in map, matching the
// "embedded resources" strategy named in spec.md §9.
type EmbeddedResolver struct {
	Personas map[string]string
}

// Resolve looks up personaID in the embedded map.
func (r EmbeddedResolver) Resolve(_ context.Context, personaID string) (string, bool, error) {
	text, ok := r.Personas[personaID]
	return text, ok, nil
}

// DirectoryResolver resolves personas by scanning a directory for
// "<personaId>.md" files, matching the "external search path" strategy
// named in spec.md §9.
type DirectoryResolver struct {
	Dir string
}

// Resolve reads Dir/<personaID>.md if it exists.
func (r DirectoryResolver) Resolve(_ context.Context, personaID string) (string, bool, error) {
	path := filepath.Join(r.Dir, personaID+".md")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read persona file %s: %w", path, err)
	}
	return string(data), true, nil
}

// ChainResolver tries each resolver in order, returning the first hit.
type ChainResolver struct {
	Resolvers []PersonaResolver
}

// Resolve tries each resolver in order.
func (r ChainResolver) Resolve(ctx context.Context, personaID string) (string, bool, error) {
	for _, res := range r.Resolvers {
		text, found, err := res.Resolve(ctx, personaID)
		if err != nil {
			return "", false, err
		}
		if found {
			return text, true, nil
		}
	}
	return "", false, nil
}

// LocalWorkspaceManager creates a plain directory under Root named after
// the agent id.
type LocalWorkspaceManager struct {
	Root string
}

// PrepareWorkspace creates Root/<agentID> and returns its path.
func (m LocalWorkspaceManager) PrepareWorkspace(_ context.Context, agentID, _ string) (string, error) {
	dir := filepath.Join(m.Root, agentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare workspace %s: %w", dir, err)
	}
	return dir, nil
}

// NoopVersionControl is a VersionControl that performs no git operations;
// CreateWorktree returns the requested name as-is and ListWorktrees
// reports whatever has been created so far in-process.
type NoopVersionControl struct {
	mu        sync.Mutex
	worktrees []string
}

// CreateWorktree records name and returns it unchanged as the path.
func (v *NoopVersionControl) CreateWorktree(_ context.Context, name string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, existing := range v.worktrees {
		if existing == name {
			return "", fmt.Errorf("worktree %q already exists", name)
		}
	}
	v.worktrees = append(v.worktrees, name)
	return name, nil
}

// ListWorktrees returns every name passed to CreateWorktree so far.
func (v *NoopVersionControl) ListWorktrees(_ context.Context) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.worktrees...), nil
}

// NoopTerminalLauncher does not actually spawn a process; it synthesizes a
// stable process id from the working directory so tests and local runs can
// exercise the launchAgent flow without a real terminal.
type NoopTerminalLauncher struct{}

// Launch returns a synthetic process id; it never starts a real process.
func (NoopTerminalLauncher) Launch(_ context.Context, workingDirectory string, _ []string) (string, error) {
	return "local:" + workingDirectory, nil
}
