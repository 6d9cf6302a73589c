package database

import "fmt"

// schema holds the idempotent DDL for every table this service owns.
// Reference data (securities, sleeves, models, groups) is user-edited via
// the registry module; holdings are written by the external sync;
// restricted_securities is written by the wash-sale tracker.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS securities (
		ticker       TEXT PRIMARY KEY,
		name         TEXT NOT NULL DEFAULT '',
		price        REAL NOT NULL DEFAULT 0,
		sector       TEXT NOT NULL DEFAULT '',
		industry     TEXT NOT NULL DEFAULT '',
		asset_type   TEXT NOT NULL DEFAULT 'equity',
		price_as_of  TIMESTAMP,
		last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sleeves (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'normal'
	)`,
	`CREATE TABLE IF NOT EXISTS sleeve_members (
		sleeve_id   TEXT NOT NULL REFERENCES sleeves(id) ON DELETE CASCADE,
		ticker      TEXT NOT NULL,
		rank        INTEGER NOT NULL,
		member_kind TEXT NOT NULL DEFAULT 'alternate',
		PRIMARY KEY (sleeve_id, ticker),
		UNIQUE (sleeve_id, rank)
	)`,
	`CREATE TABLE IF NOT EXISTS models (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS model_members (
		model_id          TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		sleeve_id         TEXT NOT NULL REFERENCES sleeves(id),
		target_weight_bps INTEGER NOT NULL,
		PRIMARY KEY (model_id, sleeve_id)
	)`,
	`CREATE TABLE IF NOT EXISTS rebalancing_groups (
		id       TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		model_id TEXT REFERENCES models(id)
	)`,
	`CREATE TABLE IF NOT EXISTS group_accounts (
		group_id   TEXT NOT NULL REFERENCES rebalancing_groups(id) ON DELETE CASCADE,
		account_id TEXT NOT NULL,
		PRIMARY KEY (group_id, account_id)
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		account_id TEXT NOT NULL,
		ticker     TEXT NOT NULL,
		quantity   REAL NOT NULL,
		cost_basis REAL NOT NULL DEFAULT 0,
		opened_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (account_id, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS restricted_securities (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker        TEXT NOT NULL,
		account_id    TEXT NOT NULL,
		sold_at       TIMESTAMP NOT NULL,
		blocked_until TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_restricted_ticker
		ON restricted_securities(ticker, blocked_until)`,
}

// Migrate applies the schema. Safe to run on every boot.
func (db *DB) Migrate() error {
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
