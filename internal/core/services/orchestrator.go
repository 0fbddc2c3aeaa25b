package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driving"
	"github.com/custodia-labs/notelink-cli/internal/logger"
)

// Ensure TaskOrchestrator implements the interface.
var _ driving.TaskController = (*TaskOrchestrator)(nil)

// ProgressFunc receives progress updates from the running task.
type ProgressFunc func(percent int, step string)

// TaskOrchestrator guarantees at most one pipeline task runs at a time.
// There is no queue: starting a second task while one is active fails fast
// with domain.ErrTaskInProgress. Cancellation is cooperative - the task body
// polls Cancelled between expensive steps.
type TaskOrchestrator struct {
	mu       sync.Mutex
	current  *domain.TaskInfo
	observer ProgressFunc
}

// NewTaskOrchestrator creates an idle orchestrator.
func NewTaskOrchestrator() *TaskOrchestrator {
	return &TaskOrchestrator{}
}

// SetObserver registers an optional progress callback.
func (o *TaskOrchestrator) SetObserver(fn ProgressFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = fn
}

// Begin acquires the task lock and returns a handle the task body uses for
// progress, cancellation polling and completion.
func (o *TaskOrchestrator) Begin(name string) (*TaskHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != nil && !o.current.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %q is %s", domain.ErrTaskInProgress, o.current.Name, o.current.Status)
	}

	o.current = &domain.TaskInfo{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    domain.TaskStatusRunning,
		StartedAt: time.Now(),
	}
	logger.Info("Task %s started (%s)", name, o.current.ID)
	return &TaskHandle{orch: o, id: o.current.ID}, nil
}

// Current returns a copy of the running task's info, nil when idle.
func (o *TaskOrchestrator) Current() *domain.TaskInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return nil
	}
	info := *o.current
	return &info
}

// Cancel requests cooperative cancellation of the running task.
func (o *TaskOrchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil || o.current.Status.IsTerminal() {
		return fmt.Errorf("%w: no running task", domain.ErrNotFound)
	}
	o.current.Status = domain.TaskStatusCancelling
	logger.Info("Task %s cancellation requested", o.current.Name)
	return nil
}

// TaskHandle is the running task's view of the orchestrator.
type TaskHandle struct {
	orch *TaskOrchestrator
	id   string
}

// Cancelled reports whether cancellation has been requested. Task bodies
// must poll this at least once per document or batch iteration.
func (h *TaskHandle) Cancelled() bool {
	h.orch.mu.Lock()
	defer h.orch.mu.Unlock()
	return h.orch.current != nil &&
		h.orch.current.ID == h.id &&
		h.orch.current.Status == domain.TaskStatusCancelling
}

// Progress reports (percent, step). Percent is clamped to 0-100 and never
// moves backwards within the task.
func (h *TaskHandle) Progress(percent int, step string) {
	h.orch.mu.Lock()
	defer h.orch.mu.Unlock()

	task := h.orch.current
	if task == nil || task.ID != h.id {
		return
	}
	if percent < task.Progress {
		percent = task.Progress
	}
	if percent > 100 {
		percent = 100
	}
	task.Progress = percent
	task.Step = step

	observer := h.orch.observer
	if observer != nil {
		// Release the lock before calling out.
		h.orch.mu.Unlock()
		observer(percent, step)
		h.orch.mu.Lock()
	}
}

// Finish classifies the outcome, records it, and releases the task lock.
// Must be called exactly once, typically deferred right after Begin.
func (h *TaskHandle) Finish(err error) {
	h.orch.mu.Lock()
	defer h.orch.mu.Unlock()

	task := h.orch.current
	if task == nil || task.ID != h.id {
		return
	}
	task.FinishedAt = time.Now()

	switch {
	case err == nil:
		task.Status = domain.TaskStatusCompleted
		logger.Info("Task %s completed", task.Name)
	case errors.Is(err, domain.ErrTaskCancelled):
		task.Status = domain.TaskStatusCancelled
		logger.Info("Task %s cancelled", task.Name)
	default:
		task.Status = domain.TaskStatusFailed
		task.Error = err.Error()
		logger.Warn("Task %s failed: %v", task.Name, err)
	}

	// Release the lock: the orchestrator is ready for the next task.
	h.orch.current = nil
}
