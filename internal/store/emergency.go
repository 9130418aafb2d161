package store

import (
	"context"
	"errors"
	"time"
)

const sessionColumns = `id, user_id, reason, available_hours, suggested_plan, started_at, ended_at`

func (q *queries) CreateSession(ctx context.Context, s *EmergencySession) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO emergency_sessions
		(id, user_id, reason, available_hours, suggested_plan, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		s.ID, s.UserID, s.Reason, s.AvailableHours, string(s.Plan), s.StartedAt.UTC())
	return mapErr("create emergency session", err)
}

func (q *queries) GetSession(ctx context.Context, userID, id string) (*EmergencySession, error) {
	var s EmergencySession
	err := sqlxGet(ctx, q, &s, `SELECT `+sessionColumns+` FROM emergency_sessions
		WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, mapErr("get emergency session", err)
	}
	return &s, nil
}

func (q *queries) LockSession(ctx context.Context, userID, id string) (*EmergencySession, error) {
	var s EmergencySession
	err := sqlxGet(ctx, q, &s, `SELECT `+sessionColumns+` FROM emergency_sessions
		WHERE id = ? AND user_id = ?`+q.forUpdate(), id, userID)
	if err != nil {
		return nil, mapErr("lock emergency session", err)
	}
	return &s, nil
}

func (q *queries) ActiveSession(ctx context.Context, userID string) (*EmergencySession, error) {
	var s EmergencySession
	err := sqlxGet(ctx, q, &s, `SELECT `+sessionColumns+` FROM emergency_sessions
		WHERE user_id = ? AND ended_at IS NULL
		ORDER BY started_at DESC LIMIT 1`, userID)
	if err != nil {
		if err = mapErr("get active emergency session", err); errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (q *queries) EndSession(ctx context.Context, id string, endedAt time.Time) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`UPDATE emergency_sessions SET ended_at = ?
		WHERE id = ? AND ended_at IS NULL`), endedAt.UTC(), id)
	return mapErr("end emergency session", err)
}
