package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users
		`CREATE TABLE IF NOT EXISTS users (
			id               BIGSERIAL    PRIMARY KEY,
			name             VARCHAR(100) NOT NULL,
			email            VARCHAR(100) UNIQUE NOT NULL,
			hashed_password  VARCHAR(255) NOT NULL,
			phone_number     VARCHAR(20),
			image            TEXT,
			created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Contact books
		`CREATE TABLE IF NOT EXISTS contacts (
			id           BIGSERIAL    PRIMARY KEY,
			owner_id     BIGINT       NOT NULL REFERENCES users(id),
			name         VARCHAR(100) NOT NULL,
			email        VARCHAR(100) NOT NULL,
			phone_number VARCHAR(20),
			created_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			UNIQUE (owner_id, email)
		)`,

		// Conversations, with the denormalized last-message snapshot
		`CREATE TABLE IF NOT EXISTS conversations (
			id                      BIGSERIAL    PRIMARY KEY,
			is_group                BOOLEAN      NOT NULL DEFAULT FALSE,
			name                    VARCHAR(100),
			image                   TEXT,
			description             TEXT,
			created_by              BIGINT       NOT NULL REFERENCES users(id),
			last_message_id         BIGINT,
			last_message_content    TEXT,
			last_message_created_at TIMESTAMPTZ,
			last_message_status     VARCHAR(16),
			last_message_sender_id  BIGINT,
			created_at              TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at              TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Memberships
		`CREATE TABLE IF NOT EXISTS conversation_participants (
			user_id         BIGINT       NOT NULL REFERENCES users(id),
			conversation_id BIGINT       NOT NULL REFERENCES conversations(id),
			role            VARCHAR(16),
			joined_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, conversation_id)
		)`,

		// Messages
		`CREATE TABLE IF NOT EXISTS messages (
			id                BIGSERIAL    PRIMARY KEY,
			conversation_id   BIGINT       NOT NULL REFERENCES conversations(id),
			sender_id         BIGINT       NOT NULL REFERENCES users(id),
			content           TEXT         NOT NULL,
			status            VARCHAR(16)  NOT NULL DEFAULT 'sent',
			delivered_at      TIMESTAMPTZ,
			read_at           TIMESTAMPTZ,
			is_edited         BOOLEAN      NOT NULL DEFAULT FALSE,
			disappear_for     TEXT         NOT NULL DEFAULT '[]',
			disappear_for_all BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages (conversation_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_status
			ON messages (conversation_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_user
			ON conversation_participants (user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
