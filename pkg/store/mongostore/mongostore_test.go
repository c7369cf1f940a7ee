package mongostore

import (
	"context"
	"os"
	"testing"

	"smart-todo-api/pkg/models"
	"smart-todo-api/pkg/store"
	"smart-todo-api/pkg/store/storetest"
)

func TestMongoContract(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(context.Background(), uri, "smart_todo_test")
		if err != nil {
			t.Fatalf("open mongo store: %v", err)
		}
		if err := s.Drop(context.Background()); err != nil {
			t.Fatalf("reset mongo store: %v", err)
		}
		return s
	})
}

func TestOpenValidatesArguments(t *testing.T) {
	if _, err := Open(context.Background(), "", "db"); err == nil {
		t.Fatal("expected error for empty uri")
	}
	if _, err := Open(context.Background(), "mongodb://localhost:27017", " "); err == nil {
		t.Fatal("expected error for empty database")
	}
}

func TestStoreCloseNilSafe(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}

func TestTaskDocToModel(t *testing.T) {
	desc := "two litres"
	doc := taskDoc{ID: "0b6f4c0e-9d1c-4f6a-a7b5-3c2f9e8d1a20", Title: "buy milk", Description: &desc, Completed: true, OwnerID: "u1"}
	got := doc.toModel()
	if got.ID != models.TaskID(doc.ID) || got.Title != doc.Title || !got.Completed || got.OwnerID != "u1" {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.Description == nil || *got.Description != desc {
		t.Fatalf("unexpected description: %v", got.Description)
	}
}

func TestScopedFilterIncludesOwner(t *testing.T) {
	id := models.NewTaskID()
	filter := scopedFilter("u1", id)
	if filter["_id"] != id.String() || filter["owner_id"] != "u1" {
		t.Fatalf("unexpected filter: %v", filter)
	}
}
