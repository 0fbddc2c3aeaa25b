package domain

import "time"

// TaskStatus is the lifecycle state of a pipeline task.
type TaskStatus string

// Task statuses.
const (
	TaskStatusRunning    TaskStatus = "running"
	TaskStatusCancelling TaskStatus = "cancelling"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal returns true when the task has finished.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCancelled, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// TaskInfo describes the currently running (or most recently finished)
// pipeline task. Ephemeral: created when a task starts, cleared when the
// orchestrator releases its lock.
type TaskInfo struct {
	// ID is a generated task identifier.
	ID string

	// Name is the display name ("index", "retag", ...).
	Name string

	// Status is the current lifecycle state.
	Status TaskStatus

	// Progress is the completion percentage (0-100).
	Progress int

	// Step is the label of the current pipeline step.
	Step string

	// StartedAt and FinishedAt bound the task's lifetime. FinishedAt is the
	// zero time while the task runs.
	StartedAt  time.Time
	FinishedAt time.Time

	// Error is the failure message when Status is failed.
	Error string
}
