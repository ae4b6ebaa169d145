package postgres

import (
	"database/sql"

	"github.com/rubenv/sql-migrate"
)

// This file maintains the database migration code.  See
// https://github.com/rubenv/sql-migrate for details of what goes in
// here.  This runs "outside" the normal serving flow, either at
// initial startup or from an external tool.

var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "001-records",
			Up: []string{
				`CREATE TABLE records (
    collection TEXT NOT NULL,
    id BIGINT NOT NULL,
    attrs JSONB NOT NULL,
    PRIMARY KEY (collection, id)
)`,
				`CREATE INDEX records_name ON records ((attrs->>'name'))`,
				`CREATE TABLE record_sequences (
    collection TEXT PRIMARY KEY,
    last_id BIGINT NOT NULL
)`,
			},
			Down: []string{
				`DROP TABLE record_sequences`,
				`DROP INDEX records_name`,
				`DROP TABLE records`,
			},
		},
	},
}

// Upgrade upgrades a database to the latest database schema version.
func Upgrade(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Up)
	return err
}

// Drop clears a database by running all of the migrations in reverse,
// ultimately resulting in dropping all of the tables.
func Drop(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Down)
	return err
}
