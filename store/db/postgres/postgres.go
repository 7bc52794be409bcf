package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/PheelaV/kr-notebook-sub000/internal/profile"
	"github.com/PheelaV/kr-notebook-sub000/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL-backed local store. SQLite is the default for a
// single device; postgres serves setups where the client data dir lives on a
// shared home server.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Single-user client: a small pool is plenty.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS session (
	session_id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	desired_retention DOUBLE PRECISION NOT NULL DEFAULT 0.9,
	focus_mode BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS card_state (
	session_id TEXT NOT NULL,
	card_id BIGINT NOT NULL,
	front TEXT NOT NULL,
	back TEXT NOT NULL,
	choices TEXT NOT NULL DEFAULT '[]',
	description TEXT NOT NULL DEFAULT '',
	learning_step BIGINT NOT NULL DEFAULT 0,
	stability DOUBLE PRECISION NOT NULL DEFAULT 0,
	difficulty DOUBLE PRECISION NOT NULL DEFAULT 0,
	next_review TIMESTAMPTZ NOT NULL,
	repetitions BIGINT NOT NULL DEFAULT 0,
	position BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, card_id)
);

CREATE TABLE IF NOT EXISTS review_log (
	id BIGSERIAL PRIMARY KEY,
	uid TEXT NOT NULL,
	session_id TEXT NOT NULL,
	card_id BIGINT NOT NULL,
	quality INTEGER NOT NULL,
	is_correct BOOLEAN NOT NULL,
	hints_used INTEGER NOT NULL DEFAULT 0,
	timestamp TIMESTAMPTZ NOT NULL,
	user_answer TEXT NOT NULL DEFAULT '',
	original_result TEXT NOT NULL DEFAULT '',
	is_override BOOLEAN NOT NULL DEFAULT FALSE,
	suggested_answer TEXT NOT NULL DEFAULT '',
	pre_state TEXT NOT NULL,
	post_state TEXT NOT NULL
);
`

// Migrate creates the schema if needed.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate postgres schema")
	}
	return nil
}

// placeholder returns a placeholder for PostgreSQL (uses $1, $2, ...).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			list += ", "
		}
		list += placeholder(i)
	}
	return list
}
