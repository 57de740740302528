package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	// single writer at a time keeps the status transitions serialized
	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate runs idempotent DDL migrations on SQLite.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			phone_number VARCHAR(20),
			image TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS contacts (
			id INTEGER PRIMARY KEY,
			owner_id INTEGER NOT NULL REFERENCES users(id),
			name VARCHAR(100) NOT NULL,
			email VARCHAR(100) NOT NULL,
			phone_number VARCHAR(20),
			created_at DATETIME NOT NULL,
			UNIQUE (owner_id, email)
		);`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY,
			is_group BOOLEAN NOT NULL DEFAULT FALSE,
			name VARCHAR(100),
			image TEXT,
			description TEXT,
			created_by INTEGER NOT NULL REFERENCES users(id),
			last_message_id INTEGER,
			last_message_content TEXT,
			last_message_created_at DATETIME,
			last_message_status VARCHAR(16),
			last_message_sender_id INTEGER,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS conversation_participants (
			user_id INTEGER NOT NULL REFERENCES users(id),
			conversation_id INTEGER NOT NULL REFERENCES conversations(id),
			role VARCHAR(16),
			joined_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, conversation_id)
		);`,

		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			conversation_id INTEGER NOT NULL REFERENCES conversations(id),
			sender_id INTEGER NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'sent',
			delivered_at DATETIME,
			read_at DATETIME,
			is_edited BOOLEAN NOT NULL DEFAULT FALSE,
			disappear_for TEXT NOT NULL DEFAULT '[]',
			disappear_for_all BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages (conversation_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_status
			ON messages (conversation_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_participants_user
			ON conversation_participants (user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
