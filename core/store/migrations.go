package store

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pressly/goose/v3"

	"sentinel-desk/core/utils"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Schema statements for the sqlite test runtime. Production runs the
// goose migrations under migrations/ against postgres; the two must be
// kept in sync by hand.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		submitter_info TEXT NOT NULL DEFAULT '{}',
		form_data TEXT NOT NULL DEFAULT '{}',
		request_type TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '{}',
		reason TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		priority TEXT NOT NULL DEFAULT 'medium',
		completed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		author_id TEXT NOT NULL DEFAULT '',
		author_name TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		is_internal INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY(request_id) REFERENCES requests(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		email TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		permissions TEXT NOT NULL DEFAULT '[]',
		updated_at TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_requests_owner ON requests(owner_id);`,
	`CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);`,
	`CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_comments_request ON comments(request_id, created_at);`,
}

func ApplyMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	if db.IsPostgres() {
		return applyGooseMigrations(ctx, db, logger)
	}
	if !isTestRuntime() {
		return fmt.Errorf("only postgres is supported outside go test runtime")
	}
	return applySQLiteTestMigrations(ctx, db, logger)
}

func applyGooseMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if logger != nil {
		logger.Printf("applying postgres migrations")
	}
	return goose.UpContext(ctx, db.DB, "migrations")
}

func applySQLiteTestMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	if logger != nil {
		logger.Printf("applying sqlite test migrations")
	}
	for i, stmt := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration #%d failed: %w", i+1, err)
		}
	}
	return nil
}

func isTestRuntime() bool {
	if flag.Lookup("test.v") != nil {
		return true
	}
	return strings.HasSuffix(os.Args[0], ".test")
}
