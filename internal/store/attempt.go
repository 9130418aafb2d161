package store

import (
	"context"
	"errors"
	"time"
)

const attemptColumns = `id, user_id, attempt_type, status, question_ids, configuration_snapshot,
	overall_score, verbal_score, quantitative_score, results_summary, started_at, ended_at`

func (q *queries) CreateAttempt(ctx context.Context, a *Attempt) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO test_attempts
		(id, user_id, attempt_type, status, question_ids, configuration_snapshot, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.UserID, string(a.Type), string(a.Status), a.QuestionIDs, string(a.Snapshot), a.StartedAt.UTC())
	return mapErr("create attempt", err)
}

func (q *queries) GetAttempt(ctx context.Context, userID, id string) (*Attempt, error) {
	var a Attempt
	err := sqlxGet(ctx, q, &a, `SELECT `+attemptColumns+` FROM test_attempts
		WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, mapErr("get attempt", err)
	}
	return &a, nil
}

func (q *queries) LockAttempt(ctx context.Context, userID, id string) (*Attempt, error) {
	var a Attempt
	err := sqlxGet(ctx, q, &a, `SELECT `+attemptColumns+` FROM test_attempts
		WHERE id = ? AND user_id = ?`+q.forUpdate(), id, userID)
	if err != nil {
		return nil, mapErr("lock attempt", err)
	}
	return &a, nil
}

func (q *queries) ActiveAttempt(ctx context.Context, userID string) (*Attempt, error) {
	var a Attempt
	err := sqlxGet(ctx, q, &a, `SELECT `+attemptColumns+` FROM test_attempts
		WHERE user_id = ? AND status = ?`, userID, string(StatusStarted))
	if err != nil {
		if err = mapErr("get active attempt", err); errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (q *queries) FinishAttempt(ctx context.Context, id string, status AttemptStatus, endedAt time.Time, scores *AttemptScores) error {
	var overall, verbal, quant *float64
	var summary any
	if scores != nil {
		overall, verbal, quant = scores.Overall, scores.Verbal, scores.Quantitative
		if scores.ResultsSummary != nil {
			summary = string(scores.ResultsSummary)
		}
	}

	res, err := q.ext.ExecContext(ctx, q.rebind(`UPDATE test_attempts
		SET status = ?, ended_at = ?, overall_score = ?, verbal_score = ?,
			quantitative_score = ?, results_summary = ?
		WHERE id = ? AND status = ?`),
		string(status), endedAt.UTC(), overall, verbal, quant, summary, id, string(StatusStarted))
	if err != nil {
		return mapErr("finish attempt", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr("finish attempt", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (q *queries) CountAttempts(ctx context.Context, userID string, t AttemptType) (int, error) {
	var n int
	err := sqlxGet(ctx, q, &n, `SELECT COUNT(*) FROM test_attempts
		WHERE user_id = ? AND attempt_type = ?`, userID, string(t))
	return n, mapErr("count attempts", err)
}

func (q *queries) CountAttemptsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := sqlxGet(ctx, q, &n, `SELECT COUNT(*) FROM test_attempts
		WHERE user_id = ? AND started_at >= ?`, userID, since.UTC())
	return n, mapErr("count attempts", err)
}

func (q *queries) CountCompleted(ctx context.Context, userID string) (int, error) {
	var n int
	err := sqlxGet(ctx, q, &n, `SELECT COUNT(*) FROM test_attempts
		WHERE user_id = ? AND status = ?`, userID, string(StatusCompleted))
	return n, mapErr("count attempts", err)
}

func (q *queries) ListAttempts(ctx context.Context, userID string, limit int) ([]Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM test_attempts WHERE user_id = ? ORDER BY started_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var out []Attempt
	err := sqlxSelect(ctx, q, &out, query, args...)
	return out, mapErr("list attempts", err)
}
