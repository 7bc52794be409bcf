package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/PheelaV/kr-notebook-sub000/store"
)

func (d *DB) CreateResponse(ctx context.Context, create *store.ReviewResponse) (*store.ReviewResponse, error) {
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	preState, err := json.Marshal(create.Pre)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pre state: %w", err)
	}
	postState, err := json.Marshal(create.Post)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal post state: %w", err)
	}

	stmt := `INSERT INTO review_log (
			uid, session_id, card_id, quality, is_correct, hints_used, timestamp,
			user_answer, original_result, is_override, suggested_answer, pre_state, post_state
		) VALUES (` + placeholders(13) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.SessionID,
		create.CardID,
		create.Meta.Quality,
		create.Meta.IsCorrect,
		create.Meta.HintsUsed,
		create.Meta.Timestamp.Format(time.RFC3339Nano),
		create.Meta.UserAnswer,
		create.Meta.OriginalResult,
		create.Meta.IsOverride,
		create.Meta.SuggestedAnswer,
		string(preState),
		string(postState),
	).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create response: %w", err)
	}
	return create, nil
}

func (d *DB) ListResponses(ctx context.Context, find *store.FindReviewResponse) ([]*store.ReviewResponse, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.SessionID; v != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CardID; v != nil {
		where, args = append(where, "card_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, uid, session_id, card_id, quality, is_correct, hints_used,
			timestamp, user_answer, original_result, is_override, suggested_answer,
			pre_state, post_state
		FROM review_log WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ReviewResponse, 0)
	for rows.Next() {
		response, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, response)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate responses: %w", err)
	}
	return list, nil
}

func scanResponse(rows *sql.Rows) (*store.ReviewResponse, error) {
	var response store.ReviewResponse
	var timestamp, preState, postState string
	if err := rows.Scan(
		&response.ID,
		&response.UID,
		&response.SessionID,
		&response.CardID,
		&response.Meta.Quality,
		&response.Meta.IsCorrect,
		&response.Meta.HintsUsed,
		&timestamp,
		&response.Meta.UserAnswer,
		&response.Meta.OriginalResult,
		&response.Meta.IsOverride,
		&response.Meta.SuggestedAnswer,
		&preState,
		&postState,
	); err != nil {
		return nil, fmt.Errorf("failed to scan response: %w", err)
	}
	var err error
	if response.Meta.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
		return nil, fmt.Errorf("failed to parse response timestamp: %w", err)
	}
	if err := json.Unmarshal([]byte(preState), &response.Pre); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pre state: %w", err)
	}
	if err := json.Unmarshal([]byte(postState), &response.Post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post state: %w", err)
	}
	return &response, nil
}

func (d *DB) CountResponses(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM review_log`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return count, nil
}

func (d *DB) DeleteResponses(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM review_log`); err != nil {
		return fmt.Errorf("failed to delete responses: %w", err)
	}
	return nil
}

// RetainResponses deletes the whole review log and re-inserts only the
// entries whose card id is in cardIDs, each under a fresh id and uid. The
// select and the rewrite share one transaction so a concurrent reader never
// sees the log half cleared.
func (d *DB) RetainResponses(ctx context.Context, cardIDs []int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	retained := []*store.ReviewResponse{}
	if len(cardIDs) > 0 {
		args := make([]any, 0, len(cardIDs))
		for _, id := range cardIDs {
			args = append(args, id)
		}
		rows, err := tx.QueryContext(ctx,
			`SELECT id, uid, session_id, card_id, quality, is_correct, hints_used,
				timestamp, user_answer, original_result, is_override, suggested_answer,
				pre_state, post_state
			FROM review_log WHERE card_id IN (`+placeholders(len(cardIDs))+`) ORDER BY id ASC`,
			args...,
		)
		if err != nil {
			return fmt.Errorf("failed to query retained responses: %w", err)
		}
		for rows.Next() {
			response, err := scanResponse(rows)
			if err != nil {
				rows.Close()
				return err
			}
			retained = append(retained, response)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("failed to iterate retained responses: %w", err)
		}
		rows.Close()
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM review_log`); err != nil {
		return fmt.Errorf("failed to clear review log: %w", err)
	}

	for _, response := range retained {
		preState, err := json.Marshal(response.Pre)
		if err != nil {
			return fmt.Errorf("failed to marshal pre state: %w", err)
		}
		postState, err := json.Marshal(response.Post)
		if err != nil {
			return fmt.Errorf("failed to marshal post state: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO review_log (
				uid, session_id, card_id, quality, is_correct, hints_used, timestamp,
				user_answer, original_result, is_override, suggested_answer, pre_state, post_state
			) VALUES (`+placeholders(13)+`)`,
			shortuuid.New(),
			response.SessionID,
			response.CardID,
			response.Meta.Quality,
			response.Meta.IsCorrect,
			response.Meta.HintsUsed,
			response.Meta.Timestamp.Format(time.RFC3339Nano),
			response.Meta.UserAnswer,
			response.Meta.OriginalResult,
			response.Meta.IsOverride,
			response.Meta.SuggestedAnswer,
			string(preState),
			string(postState),
		); err != nil {
			return fmt.Errorf("failed to re-insert retained response: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit retain: %w", err)
	}
	return nil
}
