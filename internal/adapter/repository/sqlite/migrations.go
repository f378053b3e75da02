package sqlite

import "database/sql"

// runMigrations creates the schema when it does not exist yet.
// Statements are idempotent; there is no version table for now.
func runMigrations(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS people (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			person_id TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
			PRIMARY KEY (group_id, person_id)
		)`,
		`CREATE TABLE IF NOT EXISTS drafts (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency_code TEXT NOT NULL,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			is_split INTEGER NOT NULL,
			payer_id TEXT,
			method TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS draft_splits (
			draft_id TEXT NOT NULL REFERENCES drafts(id) ON DELETE CASCADE,
			person_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			percentage TEXT NOT NULL,
			shares INTEGER NOT NULL,
			adjustment TEXT NOT NULL,
			PRIMARY KEY (draft_id, person_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_created_at ON drafts(created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
