package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rhuss/webconsole/pkg/storage"
)

func init() {
	// Prefer a podman socket when one is available and DOCKER_HOST is unset.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	_, podmanErr := exec.LookPath("podman")
	_, dockerErr := exec.LookPath("docker")
	if podmanErr != nil && dockerErr != nil && os.Getenv("DOCKER_HOST") == "" {
		t.Skip("no container runtime found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("webconsole_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       2,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func makeTestEntry(session, subject string, line int, at time.Time) *storage.Entry {
	return &storage.Entry{
		ID:         uuid.NewString(),
		SessionID:  session,
		Line:       line,
		Query:      fmt.Sprintf("a * %d", line),
		Result:     fmt.Sprintf("=> %d", 4*line),
		Subject:    subject,
		DurationMS: 3,
		CreatedAt:  at.UTC().Truncate(time.Microsecond),
	}
}

func TestPostgres_AppendAndGet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	e := makeTestEntry("s1", "alice", 1, time.Now())
	e.Failed = true
	if err := store.Append(ctx, e); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := store.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Query != e.Query || got.Result != e.Result || !got.Failed {
		t.Errorf("got %+v, want %+v", got, e)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestPostgres_GetNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_DuplicateAppend(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	e := makeTestEntry("s1", "alice", 1, time.Now())
	store.Append(ctx, e)

	if err := store.Append(ctx, e); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestPostgres_ListAndClear(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	store.Append(ctx, makeTestEntry("s1", "alice", 1, base))
	store.Append(ctx, makeTestEntry("s1", "bob", 2, base.Add(time.Second)))
	store.Append(ctx, makeTestEntry("s2", "alice", 1, base.Add(2*time.Second)))

	all, err := store.List(ctx, storage.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].SessionID != "s2" {
		t.Errorf("List should return 3 entries newest first, got %d", len(all))
	}

	limited, _ := store.List(ctx, storage.ListOptions{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}

	filtered, _ := store.List(ctx, storage.ListOptions{SessionID: "s1", Subject: "alice"})
	if len(filtered) != 1 || filtered[0].Line != 1 {
		t.Errorf("filtered = %+v", filtered)
	}

	n, err := store.Clear(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Clear() = %d, %v; want 3, nil", n, err)
	}
	if rest, _ := store.List(ctx, storage.ListOptions{}); len(rest) != 0 {
		t.Errorf("List after Clear = %d entries", len(rest))
	}
}

func TestPostgres_MigrateIsIdempotent(t *testing.T) {
	store := setupTestDB(t)
	if err := store.migrate(context.Background()); err != nil {
		t.Errorf("second migrate failed: %v", err)
	}
}

func TestPostgres_HealthCheck(t *testing.T) {
	store := setupTestDB(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
