package store

import "context"

func (q *queries) UpsertAnswer(ctx context.Context, qa *QuestionAttempt) error {
	_, err := q.ext.ExecContext(ctx, q.rebind(`INSERT INTO question_attempts
		(id, user_id, test_attempt_id, emergency_session_id, question_id, selected_choice, is_correct,
		 elapsed_ms, mode, hint_used, elimination_used, answer_revealed, explanation_revealed, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, test_attempt_id, question_id) DO UPDATE SET
			selected_choice = excluded.selected_choice,
			is_correct = excluded.is_correct,
			elapsed_ms = excluded.elapsed_ms,
			hint_used = excluded.hint_used,
			elimination_used = excluded.elimination_used,
			answer_revealed = excluded.answer_revealed,
			explanation_revealed = excluded.explanation_revealed,
			answered_at = excluded.answered_at`),
		qa.ID, qa.UserID, qa.TestAttemptID, qa.EmergencySessionID, qa.QuestionID, qa.SelectedChoice,
		qa.IsCorrect, qa.ElapsedMs, string(qa.Mode), qa.HintUsed, qa.EliminationUsed,
		qa.AnswerRevealed, qa.ExplanationRevealed, qa.AnsweredAt.UTC())
	return mapErr("upsert answer", err)
}

func (q *queries) ScoredAnswers(ctx context.Context, attemptID string) ([]ScoredAnswer, error) {
	var out []ScoredAnswer
	err := sqlxSelect(ctx, q, &out, `SELECT qa.question_id, qa.is_correct,
		COALESCE(ss.slug, '') AS subsection_slug, COALESCE(ss.name, '') AS subsection_name,
		COALESCE(s.slug, '') AS section_slug, COALESCE(s.name, '') AS section_name,
		COALESCE(s.category, '') AS category
		FROM question_attempts qa
		LEFT JOIN questions q ON q.id = qa.question_id
		LEFT JOIN subsections ss ON ss.id = q.subsection_id
		LEFT JOIN sections s ON s.id = ss.section_id
		WHERE qa.test_attempt_id = ?
		ORDER BY qa.answered_at, qa.question_id`, attemptID)
	return out, mapErr("list scored answers", err)
}

func (q *queries) SessionQuestionIDs(ctx context.Context, sessionID string) ([]string, error) {
	var out []string
	err := sqlxSelect(ctx, q, &out, `SELECT DISTINCT question_id FROM question_attempts
		WHERE emergency_session_id = ? ORDER BY question_id`, sessionID)
	return out, mapErr("list session answers", err)
}
