package main

import (
	"context"
	"path/filepath"
	"testing"

	"smart-todo-api/pkg/config"
	"smart-todo-api/pkg/models"
)

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{name: "memory", cfg: config.StorageConfig{Driver: config.DriverMemory}},
		{name: "file", cfg: config.StorageConfig{Driver: config.DriverFile, DataDir: filepath.Join(dir, "data")}},
		{name: "sqlite", cfg: config.StorageConfig{Driver: config.DriverSQLite, DSN: filepath.Join(dir, "todo.db")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s, err := openStore(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer s.Close()

			user := models.User{ID: "u1", Username: "alice", PasswordHash: "hash"}
			if err := s.CreateUser(ctx, user); err != nil {
				t.Fatalf("create user: %v", err)
			}
			got, err := s.GetUserByUsername(ctx, "alice")
			if err != nil {
				t.Fatalf("get user: %v", err)
			}
			if got.ID != user.ID || got.PasswordHash != user.PasswordHash {
				t.Fatalf("unexpected user %+v", got)
			}
		})
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	if _, err := openStore(context.Background(), config.StorageConfig{Driver: "redis"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSigningSecretFromConfig(t *testing.T) {
	secret, err := signingSecret(context.Background(), config.AuthConfig{JWTSecret: "configured"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(secret) != "configured" {
		t.Fatalf("expected configured secret, got %q", secret)
	}
}

func TestSigningSecretFromMissingKubeconfig(t *testing.T) {
	cfg := config.AuthConfig{SecretRef: config.SecretRef{
		Kubeconfig: filepath.Join(t.TempDir(), "missing"),
		Name:       "todo-auth",
	}}
	if _, err := signingSecret(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unreadable kubeconfig")
	}
}
