package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-todo-api/pkg/auth"
	"smart-todo-api/pkg/config"
	"smart-todo-api/pkg/handlers"
	"smart-todo-api/pkg/k8s"
	"smart-todo-api/pkg/store"
	"smart-todo-api/pkg/store/mongostore"
	"smart-todo-api/pkg/store/sqlstore"
	"smart-todo-api/pkg/tasks"
	"smart-todo-api/pkg/telemetry"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	defaultPath := "config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		defaultPath = p
	}
	configPath := flag.String("config", defaultPath, "path to the YAML config file")
	initConfig := flag.Bool("init-config", false, "write the default config to -config and exit")
	flag.Parse()

	if *initConfig {
		if err := config.WriteDefault(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		log.Printf("Wrote default config to %s", *configPath)
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	secret, err := signingSecret(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("load signing secret: %w", err)
	}

	// Initialize store
	dataStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer func() {
		if err := dataStore.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	// Initialize auth
	tokens, err := auth.NewTokens(secret, cfg.TokenTTL(), nil)
	if err != nil {
		return fmt.Errorf("init tokens: %w", err)
	}
	h := handlers.New(
		auth.NewAccounts(dataStore, tokens, nil),
		auth.NewResolver(tokens, dataStore),
		tasks.NewRepository(dataStore),
	)

	// Setup Gin router
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), telemetry.Middleware())
	h.Register(r)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting Smart ToDo API on http://%s (storage: %s)", cfg.Addr(), cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// signingSecret returns the JWT secret, reading it from Kubernetes when a
// secret reference is configured.
func signingSecret(ctx context.Context, cfg config.AuthConfig) ([]byte, error) {
	if cfg.SecretRef.Name != "" {
		client, err := k8s.NewClient(cfg.SecretRef.Kubeconfig)
		if err != nil {
			return nil, err
		}
		ref := cfg.SecretRef
		return k8s.NewSecretSource(client).Read(ctx, ref.Namespace, ref.Name, ref.Key)
	}

	if cfg.JWTSecret == config.DevJWTSecret {
		log.Printf("WARNING: using the built-in development JWT secret; set AUTH_JWT_SECRET in production")
	}
	return []byte(cfg.JWTSecret), nil
}

// openStore opens the backend selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMemory(), nil
	case config.DriverFile:
		return store.New(cfg.DataDir)
	case config.DriverSQLite:
		return sqlstore.OpenSQLite(ctx, cfg.DSN)
	case config.DriverPostgres:
		return sqlstore.OpenPostgres(ctx, cfg.DSN)
	case config.DriverMongo:
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
