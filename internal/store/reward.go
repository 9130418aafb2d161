package store

import "context"

func (q *queries) AppendReward(ctx context.Context, e *RewardEvent) (bool, error) {
	res, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO reward_events
		(id, user_id, kind, points, reason, ref_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, kind, ref_id) DO NOTHING`),
		e.ID, e.UserID, e.Kind, e.Points, e.Reason, e.RefID, e.CreatedAt.UTC())
	if err != nil {
		return false, mapErr("append reward", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapErr("append reward", err)
	}
	return n > 0, nil
}

func (q *queries) ListRewards(ctx context.Context, userID string, limit int) ([]RewardEvent, error) {
	query := `SELECT id, user_id, kind, points, reason, ref_id, created_at
		FROM reward_events WHERE user_id = ? ORDER BY created_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var out []RewardEvent
	err := sqlxSelect(ctx, q, &out, query, args...)
	return out, mapErr("list rewards", err)
}
