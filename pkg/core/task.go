package core

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus describes the lifecycle state of an investigation task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task records one intended delegation: an evidence area handed to a specialist.
type Task struct {
	ID         string
	Area       string
	AssignedTo string
	Status     TaskStatus
	// Evidence holds the summarized tool output gathered for Area, if any.
	Evidence  string
	CreatedAt time.Time
}

// NewTask creates a pending task with a generated ID.
func NewTask(area, assignedTo string) *Task {
	return &Task{
		ID:         uuid.NewString(),
		Area:       area,
		AssignedTo: assignedTo,
		Status:     TaskStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// Delegation returns the summary carried on a delegation ACTION event.
func (t *Task) Delegation() *Delegation {
	return &Delegation{
		TaskID:     t.ID,
		Area:       t.Area,
		AssignedTo: t.AssignedTo,
		Status:     t.Status,
	}
}

// ConversationEntry records one reasoning exchange with a backend.
type ConversationEntry struct {
	Prompt    string
	Reasoning string
	Response  string
	At        time.Time
}
