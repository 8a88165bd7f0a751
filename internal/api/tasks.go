package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/dipscan/pkg/logger"
)

// Task states
const (
	TaskRunning   = "running"
	TaskSucceeded = "succeeded"
	TaskFailed    = "failed"
)

var (
	// ErrUnknownTask means the requested task name is not registered
	ErrUnknownTask = errors.New("unknown task")
	// ErrTaskRunning means the same task is already in flight
	ErrTaskRunning = errors.New("task already running")
)

// TaskFunc is a runnable pipeline stage
type TaskFunc func(ctx context.Context) error

// Task is one tracked run
type Task struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TaskRegistry runs named pipeline tasks in the background, one
// in-flight run per name. Provider quotas make concurrent pipeline
// runs self-defeating, so the single-flight rule is load-bearing.
type TaskRegistry struct {
	mu      sync.Mutex
	funcs   map[string]TaskFunc
	runs    map[string]*Task
	active  map[string]bool
	nextID  int
	logger  *logger.Logger
	baseCtx context.Context
}

// NewTaskRegistry creates a registry bound to a base context; when
// that context is cancelled, running tasks are too.
func NewTaskRegistry(ctx context.Context, funcs map[string]TaskFunc, log *logger.Logger) *TaskRegistry {
	return &TaskRegistry{
		funcs:   funcs,
		runs:    make(map[string]*Task),
		active:  make(map[string]bool),
		logger:  log,
		baseCtx: ctx,
	}
}

// Names returns the registered task names, sorted
func (r *TaskRegistry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start launches a task run and returns its tracking record
func (r *TaskRegistry) Start(name string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.funcs[name]
	if !ok {
		return Task{}, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	if r.active[name] {
		return Task{}, fmt.Errorf("%w: %q", ErrTaskRunning, name)
	}

	r.nextID++
	task := &Task{
		ID:        fmt.Sprintf("task-%d", r.nextID),
		Name:      name,
		Status:    TaskRunning,
		StartedAt: time.Now(),
	}
	r.runs[task.ID] = task
	r.active[name] = true

	go r.run(task, fn)

	return *task, nil
}

func (r *TaskRegistry) run(task *Task, fn TaskFunc) {
	r.logger.WithFields(map[string]interface{}{
		"task": task.Name,
		"id":   task.ID,
	}).Info("Task started")

	err := fn(r.baseCtx)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	task.FinishedAt = &now
	r.active[task.Name] = false

	if err != nil {
		task.Status = TaskFailed
		task.Error = err.Error()
		r.logger.WithError(err).WithField("task", task.Name).Error("Task failed")
		return
	}

	task.Status = TaskSucceeded
	r.logger.WithFields(map[string]interface{}{
		"task":     task.Name,
		"id":       task.ID,
		"duration": now.Sub(task.StartedAt),
	}).Info("Task finished")
}

// Get returns a task run by id
func (r *TaskRegistry) Get(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.runs[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// List returns all task runs, newest first
func (r *TaskRegistry) List() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Task, 0, len(r.runs))
	for _, t := range r.runs {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}
