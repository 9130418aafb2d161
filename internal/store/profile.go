package store

import (
	"context"
	"errors"
	"time"
)

const profileColumns = `user_id, tier, verbal_level, quantitative_level, level_determined,
	points, streak_days, last_active_on, updated_at`

func (q *queries) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := sqlxGet(ctx, q, &p, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)
	if err != nil {
		if err = mapErr("get profile", err); errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (q *queries) LockProfile(ctx context.Context, userID, defaultTier string) (*Profile, error) {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO profiles (user_id, tier, updated_at)
		VALUES (?, ?, ?) ON CONFLICT (user_id) DO NOTHING`),
		userID, defaultTier, time.Now().UTC())
	if err != nil {
		return nil, mapErr("ensure profile", err)
	}

	var p Profile
	err = sqlxGet(ctx, q, &p, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`+q.forUpdate(), userID)
	if err != nil {
		return nil, mapErr("lock profile", err)
	}
	return &p, nil
}

func (q *queries) SaveProfile(ctx context.Context, p *Profile) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO profiles
		(user_id, tier, verbal_level, quantitative_level, level_determined, points,
		 streak_days, last_active_on, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			tier = excluded.tier,
			verbal_level = excluded.verbal_level,
			quantitative_level = excluded.quantitative_level,
			level_determined = excluded.level_determined,
			points = excluded.points,
			streak_days = excluded.streak_days,
			last_active_on = excluded.last_active_on,
			updated_at = excluded.updated_at`),
		p.UserID, p.Tier, p.VerbalLevel, p.QuantitativeLevel, p.LevelDetermined, p.Points,
		p.StreakDays, p.LastActiveOn, p.UpdatedAt.UTC())
	return mapErr("save profile", err)
}
