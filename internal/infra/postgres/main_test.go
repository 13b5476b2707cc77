package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const testDimension = 3

// testPool は pgvector コンテナへの接続。Docker が使えない環境では nil
var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		log.Printf("docker unavailable, skipping postgres tests: %v", err)
		return m.Run()
	}
	if err := dockerPool.Client.Ping(); err != nil {
		log.Printf("docker unavailable, skipping postgres tests: %v", err)
		return m.Run()
	}

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=tutor",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=ai_tutor_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Printf("failed to start pgvector container, skipping postgres tests: %v", err)
		return m.Run()
	}
	defer func() {
		if err := dockerPool.Purge(resource); err != nil {
			log.Printf("failed to purge container: %v", err)
		}
	}()
	_ = resource.Expire(300)

	dsn := fmt.Sprintf("postgres://tutor:secret@%s/ai_tutor_test?sslmode=disable", resource.GetHostPort("5432/tcp"))
	dockerPool.MaxWait = 2 * time.Minute
	if err := dockerPool.Retry(func() error {
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			return err
		}
		if err := pool.Ping(context.Background()); err != nil {
			pool.Close()
			return err
		}
		testPool = pool
		return nil
	}); err != nil {
		log.Printf("postgres did not become ready: %v", err)
		return 1
	}
	defer testPool.Close()

	if err := EnsureSchema(context.Background(), testPool, testDimension); err != nil {
		log.Printf("failed to apply schema: %v", err)
		return 1
	}

	return m.Run()
}

// requireDB はコンテナが無ければテストをスキップし、テーブルを空にして返す
func requireDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testPool == nil {
		t.Skip("postgres container is not available")
	}
	_, err := testPool.Exec(context.Background(), `TRUNCATE document_chunks, chat_turns, chat_sessions`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
	return testPool
}
