package models

import (
	"time"
)

// TaskStatus is the board column a task sits in.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusTesting    TaskStatus = "testing"
	StatusDone       TaskStatus = "done"
)

// BoardColumns lists the statuses in board order.
var BoardColumns = []TaskStatus{StatusTodo, StatusInProgress, StatusTesting, StatusDone}

// ValidStatus reports whether s names one of the four board columns.
func ValidStatus(s string) bool {
	switch TaskStatus(s) {
	case StatusTodo, StatusInProgress, StatusTesting, StatusDone:
		return true
	}
	return false
}

// Priority is a coarse task priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether s names a known priority.
func ValidPriority(s string) bool {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task belongs to exactly one project. Cross-column moves only change
// Status; there is no intra-column ordering beyond creation time.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`

	// Assignee is resolved best-effort from the profiles relation and
	// may be nil even when AssigneeID is set.
	Assignee *Profile `json:"assignee,omitempty"`
}
