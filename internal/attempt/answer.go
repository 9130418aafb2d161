package attempt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/catalog"
	"github.com/abhisek/testprep/internal/events"
	"github.com/abhisek/testprep/internal/store"
)

// AnswerRequest is one submitted answer.
type AnswerRequest struct {
	QuestionID      string
	Choice          string
	Elapsed         time.Duration // zero when unknown
	HintUsed        bool
	EliminationUsed bool
}

// Feedback is returned for every recorded answer. Correctness, the correct
// choice and the explanation are only filled in when Revealed is set.
type Feedback struct {
	QuestionID    string
	Recorded      bool
	Revealed      bool
	Correct       *bool
	CorrectChoice string
	Explanation   string

	// Proficiency is the updated row for the question's skill, nil for
	// questions without a skill.
	Proficiency *store.SkillProficiency
}

// Answer records an answer inside a started attempt. Re-answering a question
// overwrites the earlier answer.
func (e *Engine) Answer(ctx context.Context, learnerID, attemptID string, req AnswerRequest) (*Feedback, error) {
	if strings.TrimSpace(req.Choice) == "" {
		return nil, apperr.Validationf("an answer choice is required")
	}
	a, err := e.load(ctx, learnerID, attemptID)
	if err != nil {
		return nil, err
	}
	if err := requireStarted(a); err != nil {
		return nil, err
	}
	if !a.Contains(req.QuestionID) {
		return nil, apperr.Validationf("question %s is not part of attempt %s", req.QuestionID, a.ID)
	}
	q, err := e.pool.Question(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}

	reveal := a.Type == store.AttemptTraditional
	correct := catalog.Grade(&q.Question, req.Choice)
	qa := e.newAnswer(learnerID, q, req, correct, store.ModeFor(a.Type), reveal)
	qa.TestAttemptID = &a.ID

	var prof *store.SkillProficiency
	err = e.db.InTx(ctx, func(r store.Repos) error {
		locked, err := r.LockAttempt(ctx, learnerID, a.ID)
		if err != nil {
			return err
		}
		if err := requireStarted(locked); err != nil {
			return err
		}
		if err := r.UpsertAnswer(ctx, qa); err != nil {
			return err
		}
		prof, err = e.recordProficiency(ctx, r, learnerID, q, correct)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("attempt", attemptID)
		}
		return nil, err
	}

	ev := events.New(events.AnswerRecorded, learnerID)
	ev.AttemptID, ev.AttemptType = a.ID, a.Type
	ev.QuestionID, ev.Correct = q.ID, correct
	e.events.Emit(ctx, ev)

	return buildFeedback(q, correct, reveal, prof), nil
}

// AnswerUnbound records a practice answer outside any attempt. The answer is
// always revealed.
func (e *Engine) AnswerUnbound(ctx context.Context, learnerID string, req AnswerRequest) (*Feedback, error) {
	if strings.TrimSpace(req.Choice) == "" {
		return nil, apperr.Validationf("an answer choice is required")
	}
	q, err := e.pool.Question(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	if !q.Active {
		return nil, apperr.Validationf("question %s is not available for practice", q.ID)
	}

	correct := catalog.Grade(&q.Question, req.Choice)
	qa := e.newAnswer(learnerID, q, req, correct, store.ModeTraditional, true)

	var prof *store.SkillProficiency
	err = e.db.InTx(ctx, func(r store.Repos) error {
		if err := r.UpsertAnswer(ctx, qa); err != nil {
			return err
		}
		prof, err = e.recordProficiency(ctx, r, learnerID, q, correct)
		return err
	})
	if err != nil {
		return nil, err
	}

	ev := events.New(events.AnswerRecorded, learnerID)
	ev.QuestionID, ev.Correct = q.ID, correct
	e.events.Emit(ctx, ev)

	return buildFeedback(q, correct, true, prof), nil
}

func (e *Engine) newAnswer(learnerID string, q *store.QuestionDetail, req AnswerRequest, correct bool, mode store.AnswerMode, reveal bool) *store.QuestionAttempt {
	qa := &store.QuestionAttempt{
		ID:                  uuid.NewString(),
		UserID:              learnerID,
		QuestionID:          q.ID,
		SelectedChoice:      catalog.NormalizeChoice(req.Choice),
		IsCorrect:           correct,
		Mode:                mode,
		HintUsed:            req.HintUsed,
		EliminationUsed:     req.EliminationUsed,
		AnswerRevealed:      reveal,
		ExplanationRevealed: reveal && q.Explanation != "",
		AnsweredAt:          e.now().UTC(),
	}
	if req.Elapsed > 0 {
		ms := req.Elapsed.Milliseconds()
		qa.ElapsedMs = &ms
	}
	return qa
}

func (e *Engine) recordProficiency(ctx context.Context, r store.ProficiencyRepo, learnerID string, q *store.QuestionDetail, correct bool) (*store.SkillProficiency, error) {
	if q.SkillID == nil {
		return nil, nil
	}
	return e.tracker.Record(ctx, r, learnerID, *q.SkillID, correct)
}

func buildFeedback(q *store.QuestionDetail, correct, reveal bool, prof *store.SkillProficiency) *Feedback {
	fb := &Feedback{QuestionID: q.ID, Recorded: true, Revealed: reveal, Proficiency: prof}
	if reveal {
		fb.Correct = &correct
		fb.CorrectChoice = q.CorrectChoice
		fb.Explanation = q.Explanation
	}
	return fb
}
