package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PheelaV/kr-notebook-sub000/store"
)

// ReplaceSession clears the prior session, its cards and its review log, then
// inserts the new session, all in one transaction. A reader either sees the
// old session in full or the new one, never the gap between.
func (d *DB) ReplaceSession(ctx context.Context, create *store.Session) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM review_log`,
		`DELETE FROM card_state`,
		`DELETE FROM session`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear prior session: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session (session_id, created_at, desired_retention, focus_mode) VALUES (`+placeholders(4)+`)`,
		create.SessionID,
		create.CreatedAt.Format(time.RFC3339Nano),
		create.DesiredRetention,
		create.FocusMode,
	); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for i, card := range create.Cards {
		choices, err := json.Marshal(card.Choices)
		if err != nil {
			return fmt.Errorf("failed to marshal choices: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO card_state (
				session_id, card_id, front, back, choices, description,
				learning_step, stability, difficulty, next_review, repetitions, position
			) VALUES (`+placeholders(12)+`)`,
			create.SessionID,
			card.CardID,
			card.Front,
			card.Back,
			string(choices),
			card.Description,
			card.LearningStep,
			card.Stability,
			card.Difficulty,
			card.NextReview.Format(time.RFC3339Nano),
			card.Repetitions,
			i,
		); err != nil {
			return fmt.Errorf("failed to insert card %d: %w", card.CardID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// GetSession returns the stored session with its cards, or nil when none
// exists.
func (d *DB) GetSession(ctx context.Context) (*store.Session, error) {
	var session store.Session
	var createdAt string
	err := d.db.QueryRowContext(ctx,
		`SELECT session_id, created_at, desired_retention, focus_mode FROM session LIMIT 1`,
	).Scan(&session.SessionID, &createdAt, &session.DesiredRetention, &session.FocusMode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse session created_at: %w", err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT card_id, front, back, choices, description,
			learning_step, stability, difficulty, next_review, repetitions
		FROM card_state WHERE session_id = `+placeholder(1)+` ORDER BY position ASC`,
		session.SessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var card store.CardState
		var choices, nextReview string
		if err := rows.Scan(
			&card.CardID,
			&card.Front,
			&card.Back,
			&choices,
			&card.Description,
			&card.LearningStep,
			&card.Stability,
			&card.Difficulty,
			&nextReview,
			&card.Repetitions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		if choices != "" && choices != "null" {
			if err := json.Unmarshal([]byte(choices), &card.Choices); err != nil {
				return nil, fmt.Errorf("failed to unmarshal choices: %w", err)
			}
		}
		if card.NextReview, err = time.Parse(time.RFC3339Nano, nextReview); err != nil {
			return nil, fmt.Errorf("failed to parse next_review: %w", err)
		}
		session.Cards = append(session.Cards, &card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}

	return &session, nil
}

// UpdateCardState patches one card's scheduling columns. Zero matched rows
// (missing session or card) is not an error.
func (d *DB) UpdateCardState(ctx context.Context, sessionID string, cardID int64, state store.State) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE card_state SET
			learning_step = `+placeholder(1)+`,
			stability = `+placeholder(2)+`,
			difficulty = `+placeholder(3)+`,
			next_review = `+placeholder(4)+`,
			repetitions = `+placeholder(5)+`
		WHERE session_id = `+placeholder(6)+` AND card_id = `+placeholder(7),
		state.LearningStep,
		state.Stability,
		state.Difficulty,
		state.NextReview.Format(time.RFC3339Nano),
		state.Repetitions,
		sessionID,
		cardID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card state: %w", err)
	}
	return nil
}

// DeleteSession drops the session and its cards.
func (d *DB) DeleteSession(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM card_state`); err != nil {
		return fmt.Errorf("failed to delete cards: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return tx.Commit()
}
