package store

import (
	"context"
	"strings"
	"time"
)

const questionDetailColumns = `q.id, q.subsection_id, q.skill_id, q.difficulty, q.prompt, q.choices,
	q.correct_choice, q.explanation, q.active,
	ss.slug AS subsection_slug, ss.name AS subsection_name,
	s.id AS section_id, s.slug AS section_slug, s.name AS section_name, s.category,
	sk.slug AS skill_slug
	FROM questions q
	JOIN subsections ss ON ss.id = q.subsection_id
	JOIN sections s ON s.id = ss.section_id
	LEFT JOIN skills sk ON sk.id = q.skill_id`

func (q *queries) UpsertSection(ctx context.Context, s Section) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO sections (id, slug, name, category)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET slug = excluded.slug, name = excluded.name, category = excluded.category`),
		s.ID, s.Slug, s.Name, string(s.Category))
	return mapErr("upsert section", err)
}

func (q *queries) UpsertSubsection(ctx context.Context, s Subsection) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO subsections (id, section_id, slug, name, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET section_id = excluded.section_id, slug = excluded.slug,
			name = excluded.name, description = excluded.description`),
		s.ID, s.SectionID, s.Slug, s.Name, s.Description)
	return mapErr("upsert subsection", err)
}

func (q *queries) UpsertSkill(ctx context.Context, s Skill) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO skills (id, subsection_id, slug, name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET subsection_id = excluded.subsection_id, slug = excluded.slug,
			name = excluded.name`),
		s.ID, s.SubsectionID, s.Slug, s.Name)
	return mapErr("upsert skill", err)
}

func (q *queries) UpsertQuestion(ctx context.Context, qu Question) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO questions
		(id, subsection_id, skill_id, difficulty, prompt, choices, correct_choice, explanation, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET subsection_id = excluded.subsection_id, skill_id = excluded.skill_id,
			difficulty = excluded.difficulty, prompt = excluded.prompt, choices = excluded.choices,
			correct_choice = excluded.correct_choice, explanation = excluded.explanation,
			active = excluded.active`),
		qu.ID, qu.SubsectionID, qu.SkillID, qu.Difficulty, qu.Prompt, qu.Choices,
		qu.CorrectChoice, qu.Explanation, qu.Active)
	return mapErr("upsert question", err)
}

func (q *queries) ListSections(ctx context.Context) ([]Section, error) {
	var out []Section
	err := sqlxSelect(ctx, q, &out, `SELECT id, slug, name, category FROM sections ORDER BY slug`)
	return out, mapErr("list sections", err)
}

func (q *queries) ListSkills(ctx context.Context, sectionSlugs []string) ([]SkillDetail, error) {
	query := `SELECT sk.id, sk.subsection_id, sk.slug, sk.name,
		ss.slug AS subsection_slug, ss.name AS subsection_name,
		ss.description AS subsection_description, s.slug AS section_slug
		FROM skills sk
		JOIN subsections ss ON ss.id = sk.subsection_id
		JOIN sections s ON s.id = ss.section_id`
	var args []any
	if len(sectionSlugs) > 0 {
		query += ` WHERE s.slug IN (?)`
		args = append(args, sectionSlugs)
	}
	query += ` ORDER BY sk.slug`

	var out []SkillDetail
	err := sqlxSelectIn(ctx, q, &out, query, args...)
	return out, mapErr("list skills", err)
}

func (q *queries) SubsectionsByID(ctx context.Context, ids []string) ([]Subsection, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []Subsection
	err := sqlxSelectIn(ctx, q, &out, `SELECT id, section_id, slug, name, description
		FROM subsections WHERE id IN (?) ORDER BY slug`, ids)
	return out, mapErr("list subsections", err)
}

func (q *queries) QuestionDetail(ctx context.Context, id string) (*QuestionDetail, error) {
	var d QuestionDetail
	if err := sqlxGet(ctx, q, &d, `SELECT `+questionDetailColumns+` WHERE q.id = ?`, id); err != nil {
		return nil, mapErr("get question", err)
	}
	return &d, nil
}

func (q *queries) QuestionDetails(ctx context.Context, ids []string) ([]QuestionDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []QuestionDetail
	err := sqlxSelectIn(ctx, q, &out, `SELECT `+questionDetailColumns+` WHERE q.id IN (?)`, ids)
	return out, mapErr("list questions", err)
}

func (q *queries) Candidates(ctx context.Context, f QuestionFilter) ([]Candidate, error) {
	query := `SELECT q.id, q.skill_id FROM questions q
		JOIN subsections ss ON ss.id = q.subsection_id
		LEFT JOIN skills sk ON sk.id = q.skill_id
		WHERE q.active = ?`
	args := []any{true}

	var clauses []string
	if len(f.SubsectionSlugs) > 0 {
		clauses = append(clauses, "ss.slug IN (?)")
		args = append(args, f.SubsectionSlugs)
	}
	if len(f.SkillSlugs) > 0 {
		clauses = append(clauses, "sk.slug IN (?)")
		args = append(args, f.SkillSlugs)
	}
	if len(clauses) > 0 {
		query += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	if f.StarredBy != "" {
		query += ` AND EXISTS (SELECT 1 FROM starred_questions st
			WHERE st.question_id = q.id AND st.user_id = ?)`
		args = append(args, f.StarredBy)
	}
	query += " ORDER BY q.id"

	var out []Candidate
	err := sqlxSelectIn(ctx, q, &out, query, args...)
	return out, mapErr("list candidates", err)
}

func (q *queries) Star(ctx context.Context, userID, questionID string, at time.Time) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO starred_questions (user_id, question_id, created_at)
		VALUES (?, ?, ?) ON CONFLICT (user_id, question_id) DO NOTHING`),
		userID, questionID, at.UTC())
	return mapErr("star question", err)
}

func (q *queries) Unstar(ctx context.Context, userID, questionID string) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`DELETE FROM starred_questions WHERE user_id = ? AND question_id = ?`),
		userID, questionID)
	return mapErr("unstar question", err)
}
