// Package store defines the persistence contract for users and tasks and
// provides an in-memory backend that can optionally persist to JSON files.
package store

import (
	"context"
	"errors"

	"smart-todo-api/pkg/models"
)

var (
	// ErrNotFound indicates a requested record is missing or not visible to the caller.
	ErrNotFound = errors.New("record not found")
	// ErrUsernameTaken indicates the unique username key is already in use.
	ErrUsernameTaken = errors.New("username already taken")
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// TaskStore persists tasks. Every read and write is scoped by owner; a task
// owned by someone else behaves exactly like a missing one.
type TaskStore interface {
	InsertTask(ctx context.Context, task models.Task) error
	ListTasks(ctx context.Context, ownerID string) ([]models.Task, error)
	GetTask(ctx context.Context, ownerID string, id models.TaskID) (models.Task, error)
	// UpdateTask applies patch to the task matching id and owner and reports
	// whether a task matched.
	UpdateTask(ctx context.Context, ownerID string, id models.TaskID, patch models.TaskPatch) (bool, error)
	// DeleteTask removes the task matching id and owner and reports whether
	// one was removed.
	DeleteTask(ctx context.Context, ownerID string, id models.TaskID) (bool, error)
}

// Store is a complete backend.
type Store interface {
	UserStore
	TaskStore
	Close() error
}
