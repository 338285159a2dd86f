// Package rpc translates the coordination kernel's internal operations
// (agents, tasks, wait, memory) into the typed-outcome contracts of
// spec.md §6: every method returns a plain result struct with a Success
// flag rather than a Go error, so a transport layer (HTTP, gRPC, stdio)
// can marshal it directly without an error-to-wire-format mapping step.
// The kernel itself never throws across its public contract (spec.md §7);
// this package is where that contract is made concrete.
package rpc

import "time"

// TaskView is the wire-facing projection of a Work Item.
type TaskView struct {
	TaskID      string     `json:"taskId"`
	AgentID     string     `json:"agentId,omitempty"`
	PersonaID   string     `json:"personaId,omitempty"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Result      *string    `json:"result,omitempty"`
}

// AgentView is the wire-facing projection of an Agent.
type AgentView struct {
	AgentID          string     `json:"agentId"`
	PersonaID        string     `json:"personaId"`
	WorkingDirectory string     `json:"workingDirectory"`
	Model            string     `json:"model,omitempty"`
	WorktreeName     string     `json:"worktreeName,omitempty"`
	Status           string     `json:"status"`
	RegisteredAt     time.Time  `json:"registeredAt"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	LastHeartbeat    time.Time  `json:"lastHeartbeat"`
	StoppedAt        *time.Time `json:"stoppedAt,omitempty"`
}

// MemoryEntryView is the wire-facing projection of a Memory Entry.
type MemoryEntryView struct {
	Namespace     string     `json:"namespace"`
	Key           string     `json:"key"`
	Value         string     `json:"value"`
	Type          string     `json:"type"`
	Metadata      *string    `json:"metadata,omitempty"`
	Size          int        `json:"size"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastUpdatedAt time.Time  `json:"lastUpdatedAt"`
	AccessedAt    *time.Time `json:"accessedAt,omitempty"`
	AccessCount   int64      `json:"accessCount"`
}

// CreateTaskResult is the outcome of createTask.
type CreateTaskResult struct {
	Success      bool   `json:"success"`
	TaskID       string `json:"taskId,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// GetNextTaskResult is the outcome of getNextTask. It is always Success
// even on timeout — the synthetic "system:" envelope is the timeout
// outcome, not an error (spec.md §7 kind 6).
type GetNextTaskResult struct {
	Success     bool   `json:"success"`
	TaskID      string `json:"taskId"`
	PersonaText string `json:"personaText,omitempty"`
	Description string `json:"description,omitempty"`
	Message     string `json:"message"`
}

// ReportTaskCompletionResult is the outcome of reportTaskCompletion.
type ReportTaskCompletionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GetTaskStatusResult is the outcome of getTaskStatus. A not-found task id
// is Success=true with every optional field empty (spec.md §7 kind 2).
type GetTaskStatusResult struct {
	Success     bool       `json:"success"`
	TaskID      string     `json:"taskId,omitempty"`
	Status      string     `json:"status,omitempty"`
	AgentID     string     `json:"agentId,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// GetTasksByStatusResult is the outcome of getTasksByStatus.
type GetTasksByStatusResult struct {
	Success      bool       `json:"success"`
	Tasks        []TaskView `json:"tasks,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// GetTasksByAgentIDResult is the outcome of getTasksByAgentId.
type GetTasksByAgentIDResult struct {
	Success bool       `json:"success"`
	Tasks   []TaskView `json:"tasks"`
}

// ListAgentsResult is the outcome of listAgents.
type ListAgentsResult struct {
	Success bool        `json:"success"`
	Agents  []AgentView `json:"agents"`
}

// LaunchAgentResult is the outcome of launchAgent.
type LaunchAgentResult struct {
	Success      bool   `json:"success"`
	AgentID      string `json:"agentId,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// KillAgentResult is the outcome of killAgent.
type KillAgentResult struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// SaveMemoryResult is the outcome of saveMemory.
type SaveMemoryResult struct {
	Success      bool   `json:"success"`
	Key          string `json:"key,omitempty"`
	Namespace    string `json:"namespace,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ReadMemoryResult is the outcome of readMemory.
type ReadMemoryResult struct {
	Success      bool   `json:"success"`
	Value        string `json:"value,omitempty"`
	Type         string `json:"type,omitempty"`
	Size         int    `json:"size,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ListMemoryResult is the outcome of listMemory.
type ListMemoryResult struct {
	Success bool              `json:"success"`
	Entries []MemoryEntryView `json:"entries"`
}
