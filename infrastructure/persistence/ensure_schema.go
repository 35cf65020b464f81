package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS credentials (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		purpose TEXT NOT NULL,
		platform_or_provider TEXT NOT NULL,
		ciphertext BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		rotated_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credentials_owner_purpose ON credentials (owner_id, purpose, platform_or_provider)`,
	`CREATE TABLE IF NOT EXISTS app_credential_setups (
		owner_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		client_id_ref TEXT NOT NULL REFERENCES credentials(id),
		client_secret_ref TEXT NOT NULL REFERENCES credentials(id),
		redirect_uri TEXT NOT NULL,
		validated BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (owner_id, platform)
	)`,
	`CREATE TABLE IF NOT EXISTS oauth_connections (
		id BIGSERIAL PRIMARY KEY,
		owner_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		protocol_version TEXT NOT NULL,
		access_token_ref TEXT NOT NULL REFERENCES credentials(id),
		secondary_token_ref TEXT REFERENCES credentials(id),
		account_identifier TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_validated_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_oauth_connections_active ON oauth_connections (owner_id, platform) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS publish_attempts (
		id BIGSERIAL PRIMARY KEY,
		owner_id TEXT NOT NULL,
		post_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		protocol_version TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error_class TEXT NOT NULL,
		error_message TEXT,
		published_external_id TEXT,
		attempted_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT chk_publish_attempt_success CHECK (status <> 'success' OR published_external_id IS NOT NULL),
		CONSTRAINT chk_publish_attempt_failed CHECK (status <> 'failed' OR error_class <> 'none')
	)`,
	`CREATE INDEX IF NOT EXISTS idx_publish_attempts_post ON publish_attempts (owner_id, post_id)`,
	`CREATE TABLE IF NOT EXISTS quota_records (
		owner_id TEXT PRIMARY KEY,
		tier TEXT NOT NULL,
		daily_used INTEGER NOT NULL DEFAULT 0,
		reset_date DATE NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_settings (
		key TEXT PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ
	)`,
}

// EnsureSchema creates the tables this service owns and adds columns introduced after the
// first release. Safe to call at every startup.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema failed: %w", err)
		}
	}

	checks := []struct {
		table  string
		column string
		ddl    string
	}{
		{"oauth_connections", "deactivated_at", "ALTER TABLE oauth_connections ADD COLUMN deactivated_at TIMESTAMPTZ"},
		{"oauth_connections", "deactivation_reason", "ALTER TABLE oauth_connections ADD COLUMN deactivation_reason TEXT"},
	}
	for _, c := range checks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
