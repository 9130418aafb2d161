package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/events"
	"github.com/abhisek/testprep/internal/scoring"
	"github.com/abhisek/testprep/internal/store"
)

// Completion is the result of Complete. Result is nil for Traditional
// attempts, which are never scored.
type Completion struct {
	Attempt *store.Attempt
	Result  *scoring.Result
	Message string
}

// Complete finishes a started attempt. Scored attempt types are scored from
// the recorded answers; a scoring failure moves the attempt to the error
// status and is returned as an internal error. The attempt row stays locked
// from the answer read until the scores are written, so an answer cannot
// land between the two.
func (e *Engine) Complete(ctx context.Context, learnerID, attemptID string) (*Completion, error) {
	a, err := e.load(ctx, learnerID, attemptID)
	if err != nil {
		return nil, err
	}
	if err := requireStarted(a); err != nil {
		return nil, err
	}

	var (
		result   *scoring.Result
		scores   *store.AttemptScores
		scoreErr error
	)
	now := e.now().UTC()
	err = e.db.InTx(ctx, func(r store.Repos) error {
		locked, err := r.LockAttempt(ctx, learnerID, a.ID)
		if err != nil {
			return err
		}
		if err := requireStarted(locked); err != nil {
			return err
		}
		a = locked

		if a.Type != store.AttemptTraditional {
			result, scores, scoreErr = e.score(ctx, r, a)
			if scoreErr != nil {
				return scoreErr
			}
		}
		if err := r.FinishAttempt(ctx, a.ID, store.StatusCompleted, now, scores); err != nil {
			return err
		}
		if a.Type == store.AttemptLevelAssessment {
			return e.saveLevels(ctx, r, learnerID, result, now)
		}
		return nil
	})
	switch {
	case scoreErr != nil:
		return nil, e.fail(ctx, a, "score attempt", scoreErr)
	case errors.Is(err, store.ErrConflict):
		return nil, apperr.Validationf("attempt %s is no longer in progress", a.ID)
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("attempt", attemptID)
	case apperr.IsValidation(err):
		return nil, err
	case err != nil:
		return nil, e.fail(ctx, a, "save attempt scores", err)
	}

	a.Status = store.StatusCompleted
	a.EndedAt = &now

	if a.Type == store.AttemptTraditional {
		e.logger.Info("attempt completed", "user", learnerID, "attempt", a.ID, "type", a.Type)
		e.emitCompleted(ctx, a, nil)
		return &Completion{Attempt: a, Message: "Practice session completed."}, nil
	}

	a.OverallScore, a.VerbalScore, a.QuantitativeScore = scores.Overall, scores.Verbal, scores.Quantitative
	a.ResultsSummary.JSONText = scores.ResultsSummary
	a.ResultsSummary.Valid = true

	e.logger.Info("attempt completed", "user", learnerID, "attempt", a.ID, "type", a.Type,
		"overall", result.Overall, "answered", result.Answered, "declared", result.Declared)
	e.emitCompleted(ctx, a, &result.Overall)

	return &Completion{Attempt: a, Result: result, Message: scoring.Message(result)}, nil
}

// saveLevels writes a level assessment's category scores into the profile
// under the profile row lock. A category the assessment did not cover keeps
// its earlier level.
func (e *Engine) saveLevels(ctx context.Context, r store.ProfileRepo, learnerID string, result *scoring.Result, now time.Time) error {
	p, err := r.LockProfile(ctx, learnerID, e.cfg.DefaultTier)
	if err != nil {
		return fmt.Errorf("lock profile: %w", err)
	}
	if result.Verbal != nil {
		p.VerbalLevel = result.Verbal
	}
	if result.Quantitative != nil {
		p.QuantitativeLevel = result.Quantitative
	}
	p.LevelDetermined = true
	p.UpdatedAt = now
	return r.SaveProfile(ctx, p)
}

// Cancel abandons a started attempt without scoring it.
func (e *Engine) Cancel(ctx context.Context, learnerID, attemptID string) (*store.Attempt, error) {
	a, err := e.load(ctx, learnerID, attemptID)
	if err != nil {
		return nil, err
	}
	if err := requireStarted(a); err != nil {
		return nil, err
	}
	if err := e.finish(ctx, a, store.StatusAbandoned, nil); err != nil {
		return nil, err
	}

	e.logger.Info("attempt abandoned", "user", learnerID, "attempt", a.ID)
	ev := events.New(events.AttemptAbandoned, learnerID)
	ev.AttemptID, ev.AttemptType = a.ID, a.Type
	e.events.Emit(ctx, ev)
	return a, nil
}

func (e *Engine) score(ctx context.Context, r store.AnswerRepo, a *store.Attempt) (*scoring.Result, *store.AttemptScores, error) {
	answers, err := r.ScoredAnswers(ctx, a.ID)
	if err != nil {
		return nil, nil, err
	}
	result, err := scoring.Score(answers, len(a.QuestionIDs))
	if err != nil {
		return nil, nil, err
	}
	if result.UnderCompleted() {
		e.logger.Info("scoring attempt with unanswered questions", "user", a.UserID, "attempt", a.ID,
			"answered", result.Answered, "declared", result.Declared)
	}
	scores, err := result.Scores()
	if err != nil {
		return nil, nil, err
	}
	return result, scores, nil
}

// finish moves a to status with no scores and updates a in place.
func (e *Engine) finish(ctx context.Context, a *store.Attempt, status store.AttemptStatus, scores *store.AttemptScores) error {
	now := e.now().UTC()
	if err := e.db.FinishAttempt(ctx, a.ID, status, now, scores); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return apperr.Validationf("attempt %s is no longer in progress", a.ID)
		}
		return err
	}
	a.Status = status
	a.EndedAt = &now
	return nil
}

// fail logs cause, moves the attempt to the error status and returns an
// opaque internal error.
func (e *Engine) fail(ctx context.Context, a *store.Attempt, op string, cause error) error {
	e.logger.Error("attempt failed", "op", op, "user", a.UserID, "attempt", a.ID, "type", a.Type, "error", cause)
	if err := e.finish(ctx, a, store.StatusError, nil); err != nil {
		e.logger.Error("mark attempt as failed", "user", a.UserID, "attempt", a.ID, "error", err)
	}
	return apperr.Internal(op, cause)
}

func (e *Engine) emitCompleted(ctx context.Context, a *store.Attempt, overall *float64) {
	ev := events.New(events.AttemptCompleted, a.UserID)
	ev.AttemptID, ev.AttemptType = a.ID, a.Type
	ev.OverallScore = overall
	e.events.Emit(ctx, ev)
}
