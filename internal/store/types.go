// Package store defines the persistence layer for the coordination kernel:
// Agents, Work Items (Tasks), Memory Entries, and the Event Log (spec.md
// §3), plus the read-scope/write-scope transactional contract (spec.md
// §4.3) that Agent Registry, Task Coordinator, and Memory Service build on.
//
// Available implementations:
//
//   - memory: in-process, single-writer implementation for the core kernel.
//
// To add a new implementation, create a subpackage that implements Store.
package store

import "time"

// AgentStatus is one of the states in the Agent lifecycle (spec.md §3).
type AgentStatus string

const (
	AgentStarting AgentStatus = "Starting"
	AgentRunning  AgentStatus = "Running"
	AgentStopped  AgentStatus = "Stopped"
	AgentKilled   AgentStatus = "Killed"
)

// Agent is the persisted representation of a registered worker process.
type Agent struct {
	ID               string
	PersonaID        string
	WorkingDirectory string
	ProcessID        string
	Model            string
	WorktreeName     string
	Status           AgentStatus
	RegisteredAt     time.Time
	StartedAt        *time.Time
	LastHeartbeat    time.Time
	StoppedAt        *time.Time
}

// TaskStatus is one of the states in the Work Item lifecycle (spec.md §3).
type TaskStatus string

const (
	TaskPending    TaskStatus = "Pending"
	TaskInProgress TaskStatus = "InProgress"
	TaskCompleted  TaskStatus = "Completed"
	TaskFailed     TaskStatus = "Failed"
)

// Priority orders Work Items for claiming. Higher values win (spec.md §4.5:
// Critical > High > Normal > Low).
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// ParsePriority normalizes s to a Priority. ok is false for unrecognized
// names; PriorityNormal is returned as the zero-value-safe fallback in that
// case, matching the spec's default of Normal for omitted priority.
func ParsePriority(s string) (p Priority, ok bool) {
	switch s {
	case "Low":
		return PriorityLow, true
	case "Normal", "":
		return PriorityNormal, true
	case "High":
		return PriorityHigh, true
	case "Critical":
		return PriorityCritical, true
	default:
		return PriorityNormal, false
	}
}

// String renders the priority using the spec's names.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return "Normal"
	}
}

// Task is the persisted representation of a Work Item.
type Task struct {
	ID              string
	AssignedAgentID string
	PersonaID       string
	PersonaText     string
	Description     string
	Priority        Priority
	Status          TaskStatus
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Result          *string
}

// MemoryKey is the composite identity of a Memory Entry.
type MemoryKey struct {
	Namespace string
	Key       string
}

// MemoryEntry is the persisted representation of a namespaced K/V entry.
type MemoryEntry struct {
	Namespace     string
	Key           string
	Value         string
	Type          string
	Metadata      *string
	IsCompressed  bool
	Size          int
	CreatedAt     time.Time
	LastUpdatedAt time.Time
	AccessedAt    *time.Time
	AccessCount   int64
}

// Severity classifies an Event Log Entry.
type Severity string

const (
	SeverityInformation Severity = "Information"
	SeverityWarning     Severity = "Warning"
	SeverityError       Severity = "Error"
)

// EntityType names which entity an Event Log Entry is about.
type EntityType string

const (
	EntityTask   EntityType = "Task"
	EntityAgent  EntityType = "Agent"
	EntityMemory EntityType = "Memory"
)

// EventLogEntry is an append-only audit record (spec.md §3). Entries are
// never mutated once appended.
type EventLogEntry struct {
	ID         string
	EventType  string
	Timestamp  time.Time
	Actor      string
	EntityID   string
	EntityType EntityType
	Severity   Severity
	Tags       []string
	Payload    string
}
