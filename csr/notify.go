package csr

import (
	"context"
	"time"
)

// =============================================================================
// NOTIFICATION SINK - Fire-and-forget task creation
// =============================================================================

// Task is a notification/to-do record addressed to a person. Reward
// redemption creates one for the manager (fulfilment); failure to create a
// task never rolls back the operation that triggered it.
type Task struct {
	ID           string
	Summary      string
	Body         string
	TargetRecord string // e.g. "profile:<id>"
	AssigneeID   string // employee ID
	CreatedAt    time.Time
}

// TaskStore persists notification tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t Task) error
	ListTasks(ctx context.Context, assigneeID string) ([]Task, error)
}
