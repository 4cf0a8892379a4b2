//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// auditRecordsSchema mirrors the columns the postgres store reads and writes.
const auditRecordsSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id              UUID PRIMARY KEY,
	action          TEXT NOT NULL,
	actor_id        TEXT,
	actor_email     TEXT,
	session_id      TEXT,
	resource_type   TEXT,
	resource_id     TEXT,
	before_values   JSONB,
	after_values    JSONB,
	changed_fields  TEXT[],
	source_ip       TEXT,
	user_agent      TEXT,
	request_path    TEXT,
	request_method  TEXT,
	access_reason   TEXT,
	protected_data  BOOLEAN NOT NULL DEFAULT FALSE,
	compliance_note TEXT,
	risk_level      TEXT,
	error_message   TEXT,
	details         JSONB,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_records_created_at ON audit_records (created_at);
CREATE INDEX IF NOT EXISTS idx_audit_records_actor_id ON audit_records (actor_id);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// audit schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts a PostgreSQL container and creates the
// audit_records table.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("auditd"),
		tcpostgres.WithUsername("auditd"),
		tcpostgres.WithPassword("auditd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, auditRecordsSchema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply audit schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})

	return &PostgresContainer{
		Container: container,
		URL:       url,
		DB:        db,
	}
}

// Truncate empties the audit_records table. Use between tests for isolation.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, "TRUNCATE audit_records")
	return err
}
