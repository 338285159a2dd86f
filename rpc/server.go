package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coordframe/agentcoord/agents"
	"github.com/coordframe/agentcoord/collaborators"
	"github.com/coordframe/agentcoord/internal/store"
	"github.com/coordframe/agentcoord/internal/telemetry"
	"github.com/coordframe/agentcoord/memory"
	"github.com/coordframe/agentcoord/tasks"
	"github.com/coordframe/agentcoord/wait"
)

// Server exposes the spec.md §6 operation contracts over the kernel.
type Server struct {
	agents *agents.Registry
	tasks  *tasks.Coordinator
	wait   *wait.Service
	memory *memory.Service
	logger telemetry.Logger

	personas   collaborators.PersonaResolver
	workspaces collaborators.WorkspaceManager
	vcs        collaborators.VersionControl
	terminals  collaborators.TerminalLauncher
}

// Options configures a Server. Agents, Tasks, Wait, and Memory are
// required. LaunchAgent additionally needs Personas, Workspaces, and
// Terminals; VCS is optional and, when nil, no worktree is created.
type Options struct {
	Agents     *agents.Registry
	Tasks      *tasks.Coordinator
	Wait       *wait.Service
	Memory     *memory.Service
	Logger     telemetry.Logger
	Personas   collaborators.PersonaResolver
	Workspaces collaborators.WorkspaceManager
	VCS        collaborators.VersionControl
	Terminals  collaborators.TerminalLauncher
}

// New constructs a Server.
func New(opts Options) (*Server, error) {
	if opts.Agents == nil {
		return nil, fmt.Errorf("rpc: agents registry is required")
	}
	if opts.Tasks == nil {
		return nil, fmt.Errorf("rpc: tasks coordinator is required")
	}
	if opts.Wait == nil {
		return nil, fmt.Errorf("rpc: wait service is required")
	}
	if opts.Memory == nil {
		return nil, fmt.Errorf("rpc: memory service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Server{
		agents:     opts.Agents,
		tasks:      opts.Tasks,
		wait:       opts.Wait,
		memory:     opts.Memory,
		logger:     logger,
		personas:   opts.Personas,
		workspaces: opts.Workspaces,
		vcs:        opts.VCS,
		terminals:  opts.Terminals,
	}, nil
}

// CreateTask implements createTask (spec.md §6).
func (s *Server) CreateTask(ctx context.Context, agentID, personaID, personaText, description string, priorityName string) CreateTaskResult {
	priority, _ := store.ParsePriority(priorityName)
	id, err := s.tasks.CreateTask(ctx, agentID, personaID, personaText, description, priority)
	if err != nil {
		return CreateTaskResult{Success: false, ErrorMessage: taskCreateErrorMessage(err, agentID)}
	}
	return CreateTaskResult{Success: true, TaskID: id}
}

func taskCreateErrorMessage(err error, agentID string) string {
	switch {
	case errors.Is(err, tasks.ErrAgentNotFound):
		return fmt.Sprintf("Agent not found: %s", agentID)
	case errors.Is(err, tasks.ErrAgentNotEligible):
		return fmt.Sprintf("Agent %s is not in a state that can accept new tasks", agentID)
	default:
		return err.Error()
	}
}

// GetNextTask implements getNextTask (spec.md §6).
func (s *Server) GetNextTask(ctx context.Context, agentID string, timeout time.Duration) GetNextTaskResult {
	env, err := s.wait.GetNextTask(ctx, agentID, timeout)
	if err != nil {
		if errors.Is(err, wait.ErrAgentNotFound) {
			return GetNextTaskResult{Success: false, Message: fmt.Sprintf("Agent not found: %s", agentID)}
		}
		return GetNextTaskResult{Success: false, Message: err.Error()}
	}
	return GetNextTaskResult{
		Success:     true,
		TaskID:      env.TaskID,
		PersonaText: env.PersonaText,
		Description: env.Description,
		Message:     env.Message,
	}
}

// ReportTaskCompletion implements reportTaskCompletion (spec.md §6).
func (s *Server) ReportTaskCompletion(ctx context.Context, taskID, resultText string) ReportTaskCompletionResult {
	_, err := s.tasks.Complete(ctx, taskID, resultText)
	switch {
	case err == nil:
		return ReportTaskCompletionResult{Success: true, Message: "Task completed"}
	case errors.Is(err, tasks.ErrTaskNotFound):
		return ReportTaskCompletionResult{Success: false, Message: fmt.Sprintf("Task not found: %s", taskID)}
	case errors.Is(err, tasks.ErrTaskAlreadyTerminal):
		return ReportTaskCompletionResult{Success: false, Message: fmt.Sprintf("Task %s is already completed", taskID)}
	default:
		return ReportTaskCompletionResult{Success: false, Message: err.Error()}
	}
}

// GetTaskStatus implements getTaskStatus (spec.md §6). A not-found task id
// is a successful query with empty fields, never an error.
func (s *Server) GetTaskStatus(ctx context.Context, taskID string) GetTaskStatusResult {
	task, ok, err := s.tasks.TaskStatus(ctx, taskID)
	if err != nil {
		return GetTaskStatusResult{Success: false}
	}
	if !ok {
		return GetTaskStatusResult{Success: true}
	}
	return GetTaskStatusResult{
		Success:     true,
		TaskID:      task.ID,
		Status:      string(task.Status),
		AgentID:     task.AssignedAgentID,
		StartedAt:   task.StartedAt,
		CompletedAt: task.CompletedAt,
	}
}

// GetTasksByStatus implements getTasksByStatus (spec.md §6).
func (s *Server) GetTasksByStatus(ctx context.Context, statusName string) GetTasksByStatusResult {
	status, ok := parseTaskStatus(statusName)
	if !ok {
		return GetTasksByStatusResult{Success: false, ErrorMessage: fmt.Sprintf("unknown status: %s", statusName)}
	}
	matching, err := s.tasks.TasksByStatus(ctx, status)
	if err != nil {
		return GetTasksByStatusResult{Success: false, ErrorMessage: err.Error()}
	}
	return GetTasksByStatusResult{Success: true, Tasks: toTaskViews(matching)}
}

func parseTaskStatus(name string) (store.TaskStatus, bool) {
	switch store.TaskStatus(name) {
	case store.TaskPending, store.TaskInProgress, store.TaskCompleted, store.TaskFailed:
		return store.TaskStatus(name), true
	default:
		return "", false
	}
}

// GetTasksByAgentID implements getTasksByAgentId (spec.md §6). An unknown
// agent yields an empty list, not an error.
func (s *Server) GetTasksByAgentID(ctx context.Context, agentID string) GetTasksByAgentIDResult {
	assigned, err := s.tasks.TasksByAgent(ctx, agentID)
	if err != nil {
		return GetTasksByAgentIDResult{Success: false}
	}
	return GetTasksByAgentIDResult{Success: true, Tasks: toTaskViews(assigned)}
}

// ListAgents implements listAgents (spec.md §6).
func (s *Server) ListAgents(ctx context.Context, personaFilter string) ListAgentsResult {
	list, err := s.agents.List(ctx, personaFilter)
	if err != nil {
		return ListAgentsResult{Success: false}
	}
	views := make([]AgentView, 0, len(list))
	for _, a := range list {
		views = append(views, AgentView{
			AgentID:          a.ID,
			PersonaID:        a.PersonaID,
			WorkingDirectory: a.WorkingDirectory,
			Model:            a.Model,
			WorktreeName:     a.WorktreeName,
			Status:           string(a.Status),
			RegisteredAt:     a.RegisteredAt,
			StartedAt:        a.StartedAt,
			LastHeartbeat:    a.LastHeartbeat,
			StoppedAt:        a.StoppedAt,
		})
	}
	return ListAgentsResult{Success: true, Agents: views}
}

// LaunchAgent implements launchAgent (spec.md §6): it resolves the
// persona's prompt text, optionally creates a worktree, registers the agent
// — which must exist before the child process can call back — then prepares
// a workspace named after the new agent id, spawns the interactive process
// there, and seeds it with an initial task built from description. The
// agent is registered with an empty working directory; the prepared
// workspace path is passed to the launched process but not recorded on the
// Agent row.
func (s *Server) LaunchAgent(ctx context.Context, personaID, description, model, worktreeName string, yolo bool) LaunchAgentResult {
	if s.personas == nil || s.workspaces == nil || s.terminals == nil {
		return LaunchAgentResult{Success: false, ErrorMessage: "launchAgent is not configured with collaborators"}
	}

	personaText, found, err := s.personas.Resolve(ctx, personaID)
	if err != nil {
		return LaunchAgentResult{Success: false, ErrorMessage: fmt.Sprintf("resolve persona: %v", err)}
	}
	if !found {
		return LaunchAgentResult{Success: false, ErrorMessage: fmt.Sprintf("Persona not found: %s", personaID)}
	}

	if worktreeName != "" && s.vcs != nil {
		if _, err := s.vcs.CreateWorktree(ctx, worktreeName); err != nil {
			return LaunchAgentResult{Success: false, ErrorMessage: fmt.Sprintf("create worktree: %v", err)}
		}
	}

	agentID, err := s.agents.Register(ctx, personaID, "", model, worktreeName)
	if err != nil {
		return LaunchAgentResult{Success: false, ErrorMessage: fmt.Sprintf("register agent: %v", err)}
	}

	workingDirectory, err := s.workspaces.PrepareWorkspace(ctx, agentID, personaID)
	if err != nil {
		s.logger.Error(ctx, "launchAgent: workspace preparation failed", "agentId", agentID, "error", err)
		return LaunchAgentResult{Success: false, ErrorMessage: fmt.Sprintf("prepare workspace: %v", err)}
	}

	command := []string{"coordinatord", "agent-loop", "--agent-id", agentID}
	if yolo {
		command = append(command, "--yolo")
	}
	processID, err := s.terminals.Launch(ctx, workingDirectory, command)
	if err != nil {
		s.logger.Error(ctx, "launchAgent: terminal launch failed", "agentId", agentID, "error", err)
		return LaunchAgentResult{Success: false, ErrorMessage: fmt.Sprintf("launch terminal: %v", err)}
	}
	if _, err := s.agents.SetProcessID(ctx, agentID, processID); err != nil {
		s.logger.Error(ctx, "launchAgent: recording process id failed", "agentId", agentID, "error", err)
	}

	if description != "" {
		if _, err := s.tasks.CreateTask(ctx, agentID, personaID, personaText, description, store.PriorityNormal); err != nil {
			s.logger.Error(ctx, "launchAgent: seeding initial task failed", "agentId", agentID, "error", err)
		}
	}

	return LaunchAgentResult{Success: true, AgentID: agentID}
}

// KillAgent implements killAgent (spec.md §6).
func (s *Server) KillAgent(ctx context.Context, agentID string) KillAgentResult {
	ok, err := s.agents.Kill(ctx, agentID)
	if err != nil {
		return KillAgentResult{Success: false, ErrorMessage: err.Error()}
	}
	if !ok {
		return KillAgentResult{Success: false, ErrorMessage: fmt.Sprintf("Agent not found: %s", agentID)}
	}
	return KillAgentResult{Success: true}
}

// SaveMemory implements saveMemory (spec.md §6).
func (s *Server) SaveMemory(ctx context.Context, namespace, key, value, entryType string, metadata *string) SaveMemoryResult {
	entry, err := s.memory.Save(ctx, namespace, key, value, entryType, metadata)
	if err != nil {
		return SaveMemoryResult{Success: false, ErrorMessage: err.Error()}
	}
	return SaveMemoryResult{Success: true, Key: entry.Key, Namespace: entry.Namespace}
}

// ReadMemory implements readMemory (spec.md §6).
func (s *Server) ReadMemory(ctx context.Context, namespace, key string) ReadMemoryResult {
	entry, ok, err := s.memory.Read(ctx, namespace, key)
	if err != nil {
		return ReadMemoryResult{Success: false, ErrorMessage: err.Error()}
	}
	if !ok {
		return ReadMemoryResult{Success: false, ErrorMessage: fmt.Sprintf("Memory entry not found: %s/%s", namespace, key)}
	}
	if _, err := s.memory.TouchAccess(ctx, namespace, key); err != nil {
		s.logger.Warn(ctx, "readMemory: touch access failed", "namespace", namespace, "key", key, "error", err)
	}
	return ReadMemoryResult{Success: true, Value: entry.Value, Type: entry.Type, Size: entry.Size}
}

// ListMemory implements listMemory (spec.md §6).
func (s *Server) ListMemory(ctx context.Context, namespace string) ListMemoryResult {
	entries, err := s.memory.List(ctx, namespace)
	if err != nil {
		return ListMemoryResult{Success: false}
	}
	views := make([]MemoryEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, MemoryEntryView{
			Namespace:     e.Namespace,
			Key:           e.Key,
			Value:         e.Value,
			Type:          e.Type,
			Metadata:      e.Metadata,
			Size:          e.Size,
			CreatedAt:     e.CreatedAt,
			LastUpdatedAt: e.LastUpdatedAt,
			AccessedAt:    e.AccessedAt,
			AccessCount:   e.AccessCount,
		})
	}
	return ListMemoryResult{Success: true, Entries: views}
}

func toTaskViews(ts []store.Task) []TaskView {
	views := make([]TaskView, 0, len(ts))
	for _, t := range ts {
		views = append(views, TaskView{
			TaskID:      t.ID,
			AgentID:     t.AssignedAgentID,
			PersonaID:   t.PersonaID,
			Description: t.Description,
			Priority:    t.Priority.String(),
			Status:      string(t.Status),
			CreatedAt:   t.CreatedAt,
			StartedAt:   t.StartedAt,
			CompletedAt: t.CompletedAt,
			Result:      t.Result,
		})
	}
	return views
}
