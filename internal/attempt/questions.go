package attempt

import (
	"context"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/catalog"
	"github.com/abhisek/testprep/internal/selection"
	"github.com/abhisek/testprep/internal/snapshot"
	"github.com/abhisek/testprep/internal/store"
)

// FetchRequest asks for ad-hoc practice questions.
type FetchRequest struct {
	Filters snapshot.Filters
	Limit   int
}

// FetchQuestions returns up to req.Limit random questions matching the
// filters, outside any attempt.
func (e *Engine) FetchQuestions(ctx context.Context, learnerID string, req FetchRequest) ([]catalog.Item, error) {
	if req.Limit <= 0 {
		return nil, apperr.Validationf("limit must be positive")
	}
	ids, err := e.selector.Select(ctx, learnerID, selection.Criteria{
		Filters:              req.Filters,
		Limit:                req.Limit,
		ProficiencyThreshold: e.cfg.ProficiencyThreshold,
	})
	if err != nil {
		return nil, err
	}
	return e.pool.Items(ctx, ids)
}

// Questions returns the questions of an attempt in attempt order.
func (e *Engine) Questions(ctx context.Context, learnerID, attemptID string) ([]catalog.Item, error) {
	a, err := e.load(ctx, learnerID, attemptID)
	if err != nil {
		return nil, err
	}
	return e.pool.Items(ctx, a.QuestionIDs)
}

// Get returns one of the learner's attempts.
func (e *Engine) Get(ctx context.Context, learnerID, attemptID string) (*store.Attempt, error) {
	return e.load(ctx, learnerID, attemptID)
}

// Active returns the learner's started attempt, or nil.
func (e *Engine) Active(ctx context.Context, learnerID string) (*store.Attempt, error) {
	return e.db.ActiveAttempt(ctx, learnerID)
}

// List returns the learner's most recent attempts, newest first.
func (e *Engine) List(ctx context.Context, learnerID string, limit int) ([]store.Attempt, error) {
	if limit <= 0 {
		limit = e.cfg.HistoryLimit
	}
	return e.db.ListAttempts(ctx, learnerID, limit)
}

// Star marks a question for the starred-only filter.
func (e *Engine) Star(ctx context.Context, learnerID, questionID string) error {
	if _, err := e.pool.Question(ctx, questionID); err != nil {
		return err
	}
	return e.db.Star(ctx, learnerID, questionID, e.now().UTC())
}

// Unstar removes a star. Removing a missing star is not an error.
func (e *Engine) Unstar(ctx context.Context, learnerID, questionID string) error {
	return e.db.Unstar(ctx, learnerID, questionID)
}
