package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stylusfm/stylus/domain/model"
	pkgerrors "github.com/stylusfm/stylus/pkg/errors"
)

// Registry is an in-memory ports.TaskStore. Task state lives only in
// process memory; lookups for tasks from before a restart are answered
// by the artifact-derived fallback upstream, not here.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]model.Task
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]model.Task)}
}

// Create registers a new task.
func (r *Registry) Create(_ context.Context, t *model.Task) error {
	if t == nil || t.ID == "" {
		return pkgerrors.NewValidationError("task", "", "task id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("task %s already registered", t.ID)
	}
	stored := *t
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	r.tasks[t.ID] = stored
	return nil
}

// Get returns a snapshot of a task by id.
func (r *Registry) Get(_ context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("task", id)
	}
	return &t, nil
}

// SetStatus transitions a task. The reason is kept only for failures
// and cleared on any other transition.
func (r *Registry) SetStatus(_ context.Context, id string, status model.TaskStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return pkgerrors.NewNotFoundError("task", id)
	}
	t.Status = status
	if status == model.StatusFailed {
		t.Error = reason
	} else {
		t.Error = ""
	}
	t.UpdatedAt = time.Now()
	r.tasks[id] = t
	return nil
}

// Delete removes a task record.
func (r *Registry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return pkgerrors.NewNotFoundError("task", id)
	}
	delete(r.tasks, id)
	return nil
}

// Len reports the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
