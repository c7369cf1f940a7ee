// Package storetest provides a contract test suite every store backend must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart-todo-api/pkg/models"
	"smart-todo-api/pkg/store"

	"github.com/google/uuid"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateAndGetUser", testCreateAndGetUser},
		{"DuplicateUsername", testDuplicateUsername},
		{"UsernameIsCaseSensitive", testUsernameCaseSensitive},
		{"InsertAndListTasks", testInsertAndList},
		{"GetTaskScopedByOwner", testGetScoped},
		{"UpdateTask", testUpdate},
		{"UpdateTaskZeroValues", testUpdateZeroValues},
		{"UpdateTaskForeignOwner", testUpdateForeignOwner},
		{"DeleteTask", testDelete},
		{"DeleteTaskForeignOwner", testDeleteForeignOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func newUser(username string) models.User {
	return models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "$2a$10$hash-for-" + username,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func newTask(ownerID, title string) models.Task {
	return models.Task{ID: models.NewTaskID(), Title: title, OwnerID: ownerID}
}

func ptr[T any](v T) *T { return &v }

func mustInsert(t *testing.T, s store.Store, task models.Task) {
	t.Helper()
	if err := s.InsertTask(context.Background(), task); err != nil {
		t.Fatalf("insert task: %v", err)
	}
}

func testCreateAndGetUser(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := newUser("alice")
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.ID != u.ID || got.Username != u.Username || got.PasswordHash != u.PasswordHash {
		t.Fatalf("unexpected user: %+v", got)
	}

	_, err = s.GetUserByUsername(ctx, "bob")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testDuplicateUsername(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.CreateUser(ctx, newUser("alice")); err != nil {
		t.Fatalf("create user: %v", err)
	}
	err := s.CreateUser(ctx, newUser("alice"))
	if !errors.Is(err, store.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func testUsernameCaseSensitive(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.CreateUser(ctx, newUser("alice")); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.CreateUser(ctx, newUser("Alice")); err != nil {
		t.Fatalf("create differently cased user: %v", err)
	}
}

func testInsertAndList(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := newTask("owner-a", "first")
	first.Description = ptr("with description")
	second := newTask("owner-a", "second")
	second.Completed = true
	other := newTask("owner-b", "other")

	mustInsert(t, s, first)
	mustInsert(t, s, second)
	mustInsert(t, s, other)

	got, err := s.ListTasks(ctx, "owner-a")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("unexpected order: %v, %v", got[0].ID, got[1].ID)
	}
	if got[0].Description == nil || *got[0].Description != "with description" {
		t.Fatalf("description not stored: %v", got[0].Description)
	}
	if got[1].Description != nil {
		t.Fatalf("expected nil description, got %q", *got[1].Description)
	}
	if !got[1].Completed || got[1].OwnerID != "owner-a" {
		t.Fatalf("unexpected task: %+v", got[1])
	}

	empty, err := s.ListTasks(ctx, "owner-c")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", empty)
	}
}

func testGetScoped(t *testing.T, s store.Store) {
	ctx := context.Background()
	task := newTask("owner-a", "mine")
	mustInsert(t, s, task)

	got, err := s.GetTask(ctx, "owner-a", task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "mine" {
		t.Fatalf("unexpected task: %+v", got)
	}

	if _, err := s.GetTask(ctx, "owner-b", task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if _, err := s.GetTask(ctx, "owner-a", models.NewTaskID()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing task, got %v", err)
	}
}

func testUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	task := newTask("owner-a", "buy milk")
	mustInsert(t, s, task)

	matched, err := s.UpdateTask(ctx, "owner-a", task.ID, models.TaskPatch{Completed: ptr(true), Description: ptr("oat")})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if !matched {
		t.Fatal("expected match")
	}

	got, err := s.GetTask(ctx, "owner-a", task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !got.Completed || got.Title != "buy milk" || got.Description == nil || *got.Description != "oat" {
		t.Fatalf("unexpected task after update: %+v", got)
	}

	// Writing identical values still counts as a match.
	matched, err = s.UpdateTask(ctx, "owner-a", task.ID, models.TaskPatch{Completed: ptr(true)})
	if err != nil {
		t.Fatalf("repeat update: %v", err)
	}
	if !matched {
		t.Fatal("expected match for no-change update")
	}
}

func testUpdateZeroValues(t *testing.T, s store.Store) {
	ctx := context.Background()
	task := newTask("owner-a", "title")
	task.Completed = true
	task.Description = ptr("desc")
	mustInsert(t, s, task)

	matched, err := s.UpdateTask(ctx, "owner-a", task.ID, models.TaskPatch{Title: ptr(""), Completed: ptr(false), Description: ptr("")})
	if err != nil || !matched {
		t.Fatalf("update task: matched=%v err=%v", matched, err)
	}
	got, err := s.GetTask(ctx, "owner-a", task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "" || got.Completed || got.Description == nil || *got.Description != "" {
		t.Fatalf("zero values not applied: %+v", got)
	}
}

func testUpdateForeignOwner(t *testing.T, s store.Store) {
	ctx := context.Background()
	task := newTask("owner-a", "private")
	mustInsert(t, s, task)

	matched, err := s.UpdateTask(ctx, "owner-b", task.ID, models.TaskPatch{Title: ptr("stolen")})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if matched {
		t.Fatal("expected no match for foreign owner")
	}

	matched, err = s.UpdateTask(ctx, "owner-a", models.NewTaskID(), models.TaskPatch{Title: ptr("ghost")})
	if err != nil || matched {
		t.Fatalf("expected no match for missing task: matched=%v err=%v", matched, err)
	}

	got, err := s.GetTask(ctx, "owner-a", task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "private" {
		t.Fatalf("task modified by foreign owner: %+v", got)
	}
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	keep := newTask("owner-a", "keep")
	drop := newTask("owner-a", "drop")
	mustInsert(t, s, keep)
	mustInsert(t, s, drop)

	deleted, err := s.DeleteTask(ctx, "owner-a", drop.ID)
	if err != nil || !deleted {
		t.Fatalf("delete task: deleted=%v err=%v", deleted, err)
	}
	if _, err := s.GetTask(ctx, "owner-a", drop.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted task gone, got %v", err)
	}

	deleted, err = s.DeleteTask(ctx, "owner-a", drop.ID)
	if err != nil || deleted {
		t.Fatalf("expected second delete to miss: deleted=%v err=%v", deleted, err)
	}

	remaining, err := s.ListTasks(ctx, "owner-a")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != keep.ID {
		t.Fatalf("unexpected remaining tasks: %+v", remaining)
	}
}

func testDeleteForeignOwner(t *testing.T, s store.Store) {
	ctx := context.Background()
	task := newTask("owner-a", "private")
	mustInsert(t, s, task)

	deleted, err := s.DeleteTask(ctx, "owner-b", task.ID)
	if err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if deleted {
		t.Fatal("expected no delete for foreign owner")
	}
	if _, err := s.GetTask(ctx, "owner-a", task.ID); err != nil {
		t.Fatalf("task should survive foreign delete: %v", err)
	}
}
