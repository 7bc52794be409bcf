package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/PheelaV/kr-notebook-sub000/internal/profile"
	"github.com/PheelaV/kr-notebook-sub000/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database at the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// busy_timeout keeps the clear-then-insert transactions of concurrent
	// handles serialized instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// SQLite allows a single writer; the local store is single-user.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(2 * time.Hour)

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
	created_at TEXT NOT NULL,
	desired_retention REAL NOT NULL DEFAULT 0.9,
	focus_mode INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS card_state (
	session_id TEXT NOT NULL,
	card_id INTEGER NOT NULL,
	front TEXT NOT NULL,
	back TEXT NOT NULL,
	choices TEXT NOT NULL DEFAULT '[]',
	description TEXT NOT NULL DEFAULT '',
	learning_step INTEGER NOT NULL DEFAULT 0,
	stability REAL NOT NULL DEFAULT 0,
	difficulty REAL NOT NULL DEFAULT 0,
	next_review TEXT NOT NULL,
	repetitions INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, card_id)
);

CREATE TABLE IF NOT EXISTS review_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL,
	session_id TEXT NOT NULL,
	card_id INTEGER NOT NULL,
	quality INTEGER NOT NULL,
	is_correct INTEGER NOT NULL,
	hints_used INTEGER NOT NULL DEFAULT 0,
	timestamp TEXT NOT NULL,
	user_answer TEXT NOT NULL DEFAULT '',
	original_result TEXT NOT NULL DEFAULT '',
	is_override INTEGER NOT NULL DEFAULT 0,
	suggested_answer TEXT NOT NULL DEFAULT '',
	pre_state TEXT NOT NULL,
	post_state TEXT NOT NULL
);
`

// Migrate creates the schema if needed.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate sqlite schema")
	}
	return nil
}
