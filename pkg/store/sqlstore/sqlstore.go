// Package sqlstore implements the store contract over database/sql for
// SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"smart-todo-api/pkg/models"
	"smart-todo-api/pkg/store"
	"smart-todo-api/pkg/store/sqlstore/migrations"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported dialects, named after their database/sql drivers.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// pqUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// Store implements store.Store over a SQL database.
type Store struct {
	db      *sql.DB
	dialect string

	seqMu   sync.Mutex
	lastSeq int64
}

var _ store.Store = (*Store)(nil)

// OpenSQLite opens a SQLite database file and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	return open(ctx, DialectSQLite, dsn)
}

// OpenPostgres connects to PostgreSQL with a lib/pq DSN and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	return open(ctx, DialectPostgres, dsn)
}

func open(ctx context.Context, dialect, dsn string) (*Store, error) {
	sqlDB, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	s := &Store{db: sqlDB, dialect: dialect}
	if err := s.applyMigrations(ctx, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// DB returns the raw database handle.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// nextSeq returns a strictly increasing insertion stamp so listing keeps
// insertion order even when the clock does not advance.
func (s *Store) nextSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	now := time.Now().UnixNano()
	if now <= s.lastSeq {
		now = s.lastSeq + 1
	}
	s.lastSeq = now
	return now
}

func (s *Store) isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a user; a duplicate username yields store.ErrUsernameTaken.
func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`),
		user.ID, user.Username, user.PasswordHash, user.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		if s.isUniqueViolation(err) {
			return store.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByUsername loads a user by exact username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var (
		user      models.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`),
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, store.ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = time.UnixMilli(createdAt).UTC()
	return user, nil
}

// InsertTask inserts a task.
func (s *Store) InsertTask(ctx context.Context, task models.Task) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO tasks (id, owner_id, title, description, completed, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		task.ID.String(), task.OwnerID, task.Title, nullString(task.Description), task.Completed, s.nextSeq(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// ListTasks returns the owner's tasks in insertion order.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, owner_id, title, description, completed FROM tasks WHERE owner_id = ? ORDER BY created_at`),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return tasks, nil
}

// GetTask loads a task by ID and owner.
func (s *Store) GetTask(ctx context.Context, ownerID string, id models.TaskID) (models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, owner_id, title, description, completed FROM tasks WHERE id = ? AND owner_id = ?`),
		id.String(), ownerID,
	)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, store.ErrNotFound
		}
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// UpdateTask applies the present patch fields in a single statement.
func (s *Store) UpdateTask(ctx context.Context, ownerID string, id models.TaskID, patch models.TaskPatch) (bool, error) {
	if patch.IsEmpty() {
		_, err := s.GetTask(ctx, ownerID, id)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}

	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	args = append(args, id.String(), ownerID)

	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ? AND owner_id = ?"
	result, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update task rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteTask deletes a task by ID and owner.
func (s *Store) DeleteTask(ctx context.Context, ownerID string, id models.TaskID) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM tasks WHERE id = ? AND owner_id = ?`),
		id.String(), ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		task        models.Task
		id          string
		description sql.NullString
	)
	if err := row.Scan(&id, &task.OwnerID, &task.Title, &description, &task.Completed); err != nil {
		return models.Task{}, err
	}
	task.ID = models.TaskID(id)
	if description.Valid {
		d := description.String
		task.Description = &d
	}
	return task, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
