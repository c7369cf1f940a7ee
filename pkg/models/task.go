package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidTaskID is returned when a task identifier cannot be parsed.
var ErrInvalidTaskID = errors.New("invalid task id")

// TaskID identifies a task. Values are canonical lowercase UUID strings;
// obtain one from NewTaskID or ParseTaskID.
type TaskID string

// NewTaskID generates a random task identifier.
func NewTaskID() TaskID {
	return TaskID(uuid.NewString())
}

// ParseTaskID validates raw and returns it in canonical form.
func ParseTaskID(raw string) (TaskID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidTaskID
	}
	// uuid.Parse also accepts urn and braced forms; canonicalize them.
	return TaskID(parsed.String()), nil
}

func (id TaskID) String() string {
	return string(id)
}

// Task represents a to-do item owned by a single user.
type Task struct {
	ID          TaskID  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	OwnerID     string  `json:"owner_id,omitempty"`
}

// CreateTaskRequest represents the task creation body. Title must be
// present but may be empty.
type CreateTaskRequest struct {
	Title       *string `json:"title" binding:"required"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// TaskPatch carries a partial task update. Nil fields are left untouched;
// non-nil fields are applied even when they hold the zero value.
type TaskPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// IsEmpty reports whether the patch sets no field.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Apply returns t with the patch fields applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		t.Description = &d
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// TaskResponse is the wire representation of a task.
type TaskResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// ToResponse strips storage-only fields.
func (t Task) ToResponse() TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
	}
}
