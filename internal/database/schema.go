package database

import (
	"context"
	"fmt"
)

// Migrate creates the tables the service needs when they do not yet
// exist. It is idempotent and safe to run on every startup.
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id UUID PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			price INTEGER,
			image_url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			source_name TEXT NOT NULL DEFAULT '',
			stock_status TEXT NOT NULL DEFAULT 'unknown',
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id UUID PRIMARY KEY,
			item_id UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			price INTEGER NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_item
			ON price_history(item_id, recorded_at DESC)`,
		`CREATE TABLE IF NOT EXISTS outbox_event (
			id UUID PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			target_stream TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			retry_count INTEGER NOT NULL DEFAULT 0,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ,
			next_retry_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_event_pending
			ON outbox_event(next_retry_at) WHERE status IN ('pending', 'failed')`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
