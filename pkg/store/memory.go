package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"smart-todo-api/pkg/models"
)

// Memory keeps users and tasks in process memory. When created with New and a
// data directory, every mutation is also written to JSON files there.
type Memory struct {
	dataDir string
	mu      sync.RWMutex
	users   []models.User
	tasks   []models.Task
}

var _ Store = (*Memory)(nil)

// userRecord is the on-disk user shape; models.User hides the hash from JSON.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewMemory creates a store without persistence.
func NewMemory() *Memory {
	return &Memory{
		users: make([]models.User, 0),
		tasks: make([]models.Task, 0),
	}
}

// New creates a JSON file-backed store rooted at dataDir, loading any
// existing data.
func New(dataDir string) (*Memory, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := NewMemory()
	s.dataDir = dataDir

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Memory) usersFile() string {
	return filepath.Join(s.dataDir, "users.json")
}

func (s *Memory) tasksFile() string {
	return filepath.Join(s.dataDir, "tasks.json")
}

func (s *Memory) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []userRecord
	if err := readJSON(s.usersFile(), &users); err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		s.users = append(s.users, models.User(u))
	}
	if err := readJSON(s.tasksFile(), &s.tasks); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No data yet
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON replaces path atomically so a crash never leaves a torn file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Memory) saveUsers() error {
	if s.dataDir == "" {
		return nil
	}
	records := make([]userRecord, 0, len(s.users))
	for _, u := range s.users {
		records = append(records, userRecord(u))
	}
	if err := writeJSON(s.usersFile(), records); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (s *Memory) saveTasks() error {
	if s.dataDir == "" {
		return nil
	}
	if err := writeJSON(s.tasksFile(), s.tasks); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

// CreateUser adds a new user, enforcing username uniqueness
func (s *Memory) CreateUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return ErrUsernameTaken
		}
	}
	s.users = append(s.users, user)
	if err := s.saveUsers(); err != nil {
		s.users = s.users[:len(s.users)-1]
		return err
	}
	return nil
}

// GetUserByUsername returns the user with the exact username
func (s *Memory) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

// InsertTask appends a task
func (s *Memory) InsertTask(_ context.Context, task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append(s.tasks, cloneTask(task))
	if err := s.saveTasks(); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		return err
	}
	return nil
}

// ListTasks returns the owner's tasks in insertion order
func (s *Memory) ListTasks(_ context.Context, ownerID string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Task, 0)
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			result = append(result, cloneTask(t))
		}
	}
	return result, nil
}

// GetTask returns a task by ID and owner
func (s *Memory) GetTask(_ context.Context, ownerID string, id models.TaskID) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(ownerID, id); i >= 0 {
		return cloneTask(s.tasks[i]), nil
	}
	return models.Task{}, ErrNotFound
}

// UpdateTask applies a patch to a task matching ID and owner
func (s *Memory) UpdateTask(_ context.Context, ownerID string, id models.TaskID, patch models.TaskPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(ownerID, id)
	if i < 0 {
		return false, nil
	}
	previous := s.tasks[i]
	s.tasks[i] = patch.Apply(previous)
	if err := s.saveTasks(); err != nil {
		s.tasks[i] = previous
		return false, err
	}
	return true, nil
}

// DeleteTask deletes a task matching ID and owner
func (s *Memory) DeleteTask(_ context.Context, ownerID string, id models.TaskID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(ownerID, id)
	if i < 0 {
		return false, nil
	}
	previous := s.tasks
	s.tasks = append(append(make([]models.Task, 0, len(s.tasks)-1), s.tasks[:i]...), s.tasks[i+1:]...)
	if err := s.saveTasks(); err != nil {
		s.tasks = previous
		return false, err
	}
	return true, nil
}

// Close is a no-op; every mutation is already flushed.
func (s *Memory) Close() error {
	return nil
}

func (s *Memory) indexOf(ownerID string, id models.TaskID) int {
	for i, t := range s.tasks {
		if t.ID == id && t.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

// cloneTask detaches the description pointer from stored state.
func cloneTask(t models.Task) models.Task {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	return t
}
