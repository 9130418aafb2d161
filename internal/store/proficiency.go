package store

import (
	"context"
	"errors"
)

func (q *queries) LockProficiency(ctx context.Context, userID, skillID string) (*SkillProficiency, error) {
	var p SkillProficiency
	err := sqlxGet(ctx, q, &p, `SELECT user_id, skill_id, attempts_count, correct_count,
		proficiency_score, updated_at
		FROM skill_proficiency WHERE user_id = ? AND skill_id = ?`+q.forUpdate(), userID, skillID)
	if err != nil {
		if err = mapErr("lock proficiency", err); errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (q *queries) SaveProficiency(ctx context.Context, p *SkillProficiency) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO skill_proficiency
		(user_id, skill_id, attempts_count, correct_count, proficiency_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, skill_id) DO UPDATE SET
			attempts_count = excluded.attempts_count,
			correct_count = excluded.correct_count,
			proficiency_score = excluded.proficiency_score,
			updated_at = excluded.updated_at`),
		p.UserID, p.SkillID, p.AttemptsCount, p.CorrectCount, p.ProficiencyScore, p.UpdatedAt.UTC())
	return mapErr("save proficiency", err)
}

func (q *queries) ListProficiency(ctx context.Context, userID string) ([]ProficiencyDetail, error) {
	var out []ProficiencyDetail
	err := sqlxSelect(ctx, q, &out, `SELECT sp.user_id, sp.skill_id, sp.attempts_count, sp.correct_count,
		sp.proficiency_score, sp.updated_at,
		sk.slug AS skill_slug, sk.name AS skill_name, sk.subsection_id, s.slug AS section_slug
		FROM skill_proficiency sp
		JOIN skills sk ON sk.id = sp.skill_id
		JOIN subsections ss ON ss.id = sk.subsection_id
		JOIN sections s ON s.id = ss.section_id
		WHERE sp.user_id = ?
		ORDER BY sk.slug`, userID)
	return out, mapErr("list proficiency", err)
}
