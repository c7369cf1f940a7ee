// Package tasks provides owner-scoped task operations. A task that exists
// but belongs to someone else is indistinguishable from a missing one.
package tasks

import (
	"context"
	"errors"

	"smart-todo-api/pkg/errs"
	"smart-todo-api/pkg/models"
	"smart-todo-api/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MsgNotFound is returned for missing and foreign tasks alike.
const MsgNotFound = "Task not found or permission denied"

// ErrNotFound is returned when no task matches both id and owner.
var ErrNotFound = errs.New(errs.CodeNotFound, MsgNotFound)

var tracer = otel.Tracer("smart-todo-api/pkg/tasks")

// Repository performs task CRUD on behalf of an owner.
type Repository struct {
	store store.TaskStore
}

// NewRepository creates a Repository over s.
func NewRepository(s store.TaskStore) *Repository {
	return &Repository{store: s}
}

func startSpan(ctx context.Context, name string, owner models.User) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("owner.id", owner.ID)))
}

func internal(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return errs.Wrap(errs.CodeInternal, msg, err)
}

// Create stores a new task owned by owner.
func (r *Repository) Create(ctx context.Context, owner models.User, req models.CreateTaskRequest) (models.Task, error) {
	ctx, span := startSpan(ctx, "tasks.Create", owner)
	defer span.End()

	var title string
	if req.Title != nil {
		title = *req.Title
	}
	task := models.Task{
		ID:          models.NewTaskID(),
		Title:       title,
		Description: req.Description,
		Completed:   req.Completed,
		OwnerID:     owner.ID,
	}
	if err := r.store.InsertTask(ctx, task); err != nil {
		return models.Task{}, internal(span, "insert task", err)
	}
	span.SetAttributes(attribute.String("task.id", task.ID.String()))
	return task, nil
}

// List returns every task owned by owner.
func (r *Repository) List(ctx context.Context, owner models.User) ([]models.Task, error) {
	ctx, span := startSpan(ctx, "tasks.List", owner)
	defer span.End()

	tasks, err := r.store.ListTasks(ctx, owner.ID)
	if err != nil {
		return nil, internal(span, "list tasks", err)
	}
	if tasks == nil {
		tasks = make([]models.Task, 0)
	}
	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// Update applies patch to the owner's task and returns the current record.
// An empty patch only reads the task back.
func (r *Repository) Update(ctx context.Context, owner models.User, rawID string, patch models.TaskPatch) (models.Task, error) {
	ctx, span := startSpan(ctx, "tasks.Update", owner)
	defer span.End()

	id, err := models.ParseTaskID(rawID)
	if err != nil {
		return models.Task{}, ErrNotFound
	}
	span.SetAttributes(attribute.String("task.id", id.String()))

	if !patch.IsEmpty() {
		matched, err := r.store.UpdateTask(ctx, owner.ID, id, patch)
		if err != nil {
			return models.Task{}, internal(span, "update task", err)
		}
		if !matched {
			return models.Task{}, ErrNotFound
		}
	}

	// The read-back is scoped too; a concurrent delete between the write
	// and this read surfaces as NotFound.
	task, err := r.store.GetTask(ctx, owner.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, internal(span, "get task", err)
	}
	return task, nil
}

// Delete removes the owner's task.
func (r *Repository) Delete(ctx context.Context, owner models.User, rawID string) error {
	ctx, span := startSpan(ctx, "tasks.Delete", owner)
	defer span.End()

	id, err := models.ParseTaskID(rawID)
	if err != nil {
		return ErrNotFound
	}
	span.SetAttributes(attribute.String("task.id", id.String()))

	deleted, err := r.store.DeleteTask(ctx, owner.ID, id)
	if err != nil {
		return internal(span, "delete task", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
