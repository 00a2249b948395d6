package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanonone/wikihop/pkg/search"
)

// TaskStatus defines the possible states of a task.
type TaskStatus string

const (
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is an asynchronous search.
type Task struct {
	mu sync.RWMutex

	id              string
	from, to        string
	status          TaskStatus
	progressMessage string
	err             string
	result          *search.Result
	createdAt       time.Time
	finishedAt      time.Time
}

// TaskManager tracks asynchronous searches.
type TaskManager struct {
	tasks map[string]*Task
	mu    sync.RWMutex
}

func NewTaskManager() *TaskManager {
	return &TaskManager{
		tasks: make(map[string]*Task),
	}
}

// NewTask registers a search task from one title to another.
func (tm *TaskManager) NewTask(from, to string) *Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task := &Task{
		id:        uuid.New().String(),
		from:      from,
		to:        to,
		status:    TaskStatusStarted,
		createdAt: time.Now(),
	}
	tm.tasks[task.id] = task
	return task
}

// GetTask safely retrieves a task by its ID.
func (tm *TaskManager) GetTask(id string) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	task, found := tm.tasks[id]
	return task, found
}

// Len returns the number of tracked tasks.
func (tm *TaskManager) Len() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.tasks)
}

// Expire forgets tasks that finished before cutoff and returns how many
// were removed.
func (tm *TaskManager) Expire(cutoff time.Time) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	removed := 0
	for id, task := range tm.tasks {
		task.mu.RLock()
		done := !task.finishedAt.IsZero() && task.finishedAt.Before(cutoff)
		task.mu.RUnlock()
		if done {
			delete(tm.tasks, id)
			removed++
		}
	}
	return removed
}

// --- Methods for updating a Task ---

func (t *Task) ID() string { return t.id }

// SetStatus updates the status of the task.
func (t *Task) SetStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

// SetError marks the task as failed and records the error message.
func (t *Task) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusFailed
	t.err = err.Error()
	t.finishedAt = time.Now()
}

// SetProgress updates the progress message for the task.
func (t *Task) SetProgress(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progressMessage = message
}

// Complete stores the result and marks the task as completed.
func (t *Task) Complete(res *search.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusCompleted
	t.result = res
	t.finishedAt = time.Now()
}

// View returns a copy of the task safe to serialize.
func (t *Task) View() TaskView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v := TaskView{
		ID:              t.id,
		From:            t.from,
		To:              t.to,
		Status:          t.status,
		ProgressMessage: t.progressMessage,
		Error:           t.err,
		Result:          t.result,
		CreatedAt:       t.createdAt,
	}
	if !t.finishedAt.IsZero() {
		finished := t.finishedAt
		v.FinishedAt = &finished
	}
	return v
}
