//go:build integration

package database

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const postgresImage = "postgres:16-alpine"

var (
	pgOnce      sync.Once
	pgDSN       string
	pgErr       error
	pgContainer testcontainers.Container
)

func init() {
	repoFactories["postgres"] = newPgTestRepo
}

func TestMain(m *testing.M) {
	code := m.Run()
	if pgContainer != nil {
		pgContainer.Terminate(context.Background()) //nolint:errcheck
	}
	os.Exit(code)
}

func dockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// postgresDSN returns BLEND_TEST_POSTGRES_DSN when set and otherwise starts
// a throwaway Postgres container shared by the whole package run.
func postgresDSN(t *testing.T) string {
	t.Helper()

	if dsn := os.Getenv("BLEND_TEST_POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	if !dockerAvailable() {
		t.Skip("Skipping postgres store tests: Docker not available")
	}

	pgOnce.Do(func() {
		ctx := context.Background()
		req := testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "blend",
				"POSTGRES_PASSWORD": "blend",
				"POSTGRES_DB":       "blend",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithStartupTimeout(60 * time.Second),
		}

		pgContainer, pgErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if pgErr != nil {
			return
		}

		host, err := pgContainer.Host(ctx)
		if err != nil {
			pgErr = err
			return
		}
		port, err := pgContainer.MappedPort(ctx, "5432/tcp")
		if err != nil {
			pgErr = err
			return
		}

		pgDSN = fmt.Sprintf("postgres://blend:blend@%s:%s/blend?sslmode=disable", host, port.Port())
	})
	require.NoError(t, pgErr, "start postgres container")

	return pgDSN
}

func newPgTestRepo(t *testing.T) BlendRepository {
	t.Helper()

	repo, err := NewPgBlendRepository(postgresDSN(t))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.Migrate())
	_, err = repo.conn.Exec("TRUNCATE rooms, room_participants, playlists, playlist_movies, favorites, chat_messages, invites RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	return repo
}
