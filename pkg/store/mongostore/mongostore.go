// Package mongostore implements the store contract over MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smart-todo-api/pkg/models"
	"smart-todo-api/pkg/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

type taskDoc struct {
	ID          string  `bson:"_id"`
	Title       string  `bson:"title"`
	Description *string `bson:"description"`
	Completed   bool    `bson:"completed"`
	OwnerID     string  `bson:"owner_id"`
}

func (d taskDoc) toModel() models.Task {
	return models.Task{
		ID:          models.TaskID(d.ID),
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		OwnerID:     d.OwnerID,
	}
}

// Store implements store.Store over a MongoDB database.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	tasks  *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Open connects to uri, selects database and ensures indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if strings.TrimSpace(database) == "" {
		return nil, fmt.Errorf("mongo database is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		users:  db.Collection(usersCollection),
		tasks:  db.Collection(tasksCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}
	_, err = s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create owner index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// Drop removes both collections. Used by tests to reset state.
func (s *Store) Drop(ctx context.Context) error {
	if err := s.users.Drop(ctx); err != nil {
		return fmt.Errorf("drop users: %w", err)
	}
	if err := s.tasks.Drop(ctx); err != nil {
		return fmt.Errorf("drop tasks: %w", err)
	}
	return s.ensureIndexes(ctx)
}

// CreateUser inserts a user; the unique index rejects duplicate usernames.
func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.users.InsertOne(ctx, userDoc{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByUsername loads a user by exact username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, store.ErrNotFound
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return models.User{
		ID:           doc.ID,
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}

// InsertTask inserts a task document.
func (s *Store) InsertTask(ctx context.Context, task models.Task) error {
	_, err := s.tasks.InsertOne(ctx, taskDoc{
		ID:          task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		OwnerID:     task.OwnerID,
	})
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// ListTasks returns the owner's tasks in natural order.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	cursor, err := s.tasks.Find(ctx, bson.M{"owner_id": ownerID}, options.Find().SetSort(bson.D{{Key: "$natural", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := make([]models.Task, 0)
	for cursor.Next(ctx) {
		var doc taskDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func scopedFilter(ownerID string, id models.TaskID) bson.M {
	return bson.M{"_id": id.String(), "owner_id": ownerID}
}

// GetTask loads a task by ID and owner.
func (s *Store) GetTask(ctx context.Context, ownerID string, id models.TaskID) (models.Task, error) {
	var doc taskDoc
	err := s.tasks.FindOne(ctx, scopedFilter(ownerID, id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Task{}, store.ErrNotFound
		}
		return models.Task{}, fmt.Errorf("find task: %w", err)
	}
	return doc.toModel(), nil
}

// UpdateTask applies the present patch fields with a single $set.
func (s *Store) UpdateTask(ctx context.Context, ownerID string, id models.TaskID, patch models.TaskPatch) (bool, error) {
	if patch.IsEmpty() {
		n, err := s.tasks.CountDocuments(ctx, scopedFilter(ownerID, id))
		if err != nil {
			return false, fmt.Errorf("count task: %w", err)
		}
		return n > 0, nil
	}

	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}

	// MatchedCount rather than ModifiedCount: rewriting identical values
	// must not look like a missing task.
	result, err := s.tasks.UpdateOne(ctx, scopedFilter(ownerID, id), bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	return result.MatchedCount > 0, nil
}

// DeleteTask deletes a task by ID and owner.
func (s *Store) DeleteTask(ctx context.Context, ownerID string, id models.TaskID) (bool, error) {
	result, err := s.tasks.DeleteOne(ctx, scopedFilter(ownerID, id))
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return result.DeletedCount > 0, nil
}
