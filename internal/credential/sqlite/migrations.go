package sqlite

import "database/sql"

// schema sets up the credential table. It runs on every open.
// One row per slot; the client only ever uses the "default" slot.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    slot TEXT PRIMARY KEY,
    token TEXT NOT NULL,
    saved_at INTEGER NOT NULL
);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
