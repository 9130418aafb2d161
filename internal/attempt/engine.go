// Package attempt is the attempt lifecycle engine: it starts, answers,
// completes, cancels and retakes test attempts, and serves ad-hoc question
// practice outside a bound attempt.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/catalog"
	"github.com/abhisek/testprep/internal/events"
	"github.com/abhisek/testprep/internal/logging"
	"github.com/abhisek/testprep/internal/proficiency"
	"github.com/abhisek/testprep/internal/quota"
	"github.com/abhisek/testprep/internal/selection"
	"github.com/abhisek/testprep/internal/snapshot"
	"github.com/abhisek/testprep/internal/store"
)

// Config holds engine tunables.
type Config struct {
	// ProficiencyThreshold is the not-mastered cut-off passed to the selector.
	ProficiencyThreshold float64

	// DefaultTier is used when a profile row has to be created.
	DefaultTier string

	// HistoryLimit caps List when the caller passes no limit.
	HistoryLimit int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		ProficiencyThreshold: selection.DefaultProficiencyThreshold,
		DefaultTier:          quota.TierFree,
		HistoryLimit:         20,
	}
}

// Limiter is the usage limiter the engine consults before creating attempts.
type Limiter interface {
	CanStart(ctx context.Context, learnerID string, t store.AttemptType) error
	// MaxQuestions returns the per-attempt question cap; 0 means unlimited.
	MaxQuestions(ctx context.Context, learnerID string) (int, error)
	Record(ctx context.Context, learnerID string) error
}

type unlimited struct{}

func (unlimited) CanStart(context.Context, string, store.AttemptType) error { return nil }
func (unlimited) MaxQuestions(context.Context, string) (int, error)         { return 0, nil }
func (unlimited) Record(context.Context, string) error                      { return nil }

// Engine runs the attempt state machine.
type Engine struct {
	db       store.TxRepos
	pool     *catalog.Pool
	selector *selection.Selector
	tracker  *proficiency.Tracker
	limiter  Limiter
	events   events.Emitter
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

// New creates an Engine. A nil limiter allows everything and a nil emitter
// drops events.
func New(db store.TxRepos, sel *selection.Selector, limiter Limiter, emitter events.Emitter, cfg Config, logger *slog.Logger) *Engine {
	if limiter == nil {
		limiter = unlimited{}
	}
	if emitter == nil {
		emitter = events.Nop{}
	}
	if sel == nil {
		sel = selection.New(db, nil)
	}
	return &Engine{
		db:       db,
		pool:     catalog.NewPool(db),
		selector: sel,
		tracker:  proficiency.NewTracker(),
		limiter:  limiter,
		events:   emitter,
		cfg:      cfg,
		now:      time.Now,
		logger:   logging.OrDiscard(logger),
	}
}

// StartRequest describes a new attempt.
type StartRequest struct {
	Type         store.AttemptType
	Filters      snapshot.Filters
	NumQuestions int
}

// Started is the result of Start and Retake.
type Started struct {
	Attempt  *store.Attempt
	Snapshot snapshot.Config

	// Sequence is the 1-based number of this attempt among the learner's
	// attempts of the same type.
	Sequence int
}

// Start creates a new attempt for the learner.
func (e *Engine) Start(ctx context.Context, learnerID string, req StartRequest) (*Started, error) {
	if !req.Type.Valid() {
		return nil, apperr.Validationf("unknown attempt type %q", req.Type)
	}
	if req.NumQuestions < 0 {
		return nil, apperr.Validationf("number of questions must not be negative")
	}
	if err := e.checkNoActive(ctx, learnerID); err != nil {
		return nil, err
	}

	count, capped, err := e.allowance(ctx, learnerID, req.Type, req.NumQuestions)
	if err != nil {
		return nil, err
	}

	ids := []string{}
	if count > 0 {
		ids, err = e.selector.Select(ctx, learnerID, selection.Criteria{
			Filters:              req.Filters,
			Limit:                count,
			ProficiencyThreshold: e.cfg.ProficiencyThreshold,
			MinRequired:          1,
		})
		if err != nil {
			return nil, err
		}
	}

	snap := snapshot.New(req.Type, req.Filters, req.NumQuestions, len(ids), capped)
	return e.create(ctx, learnerID, req.Type, ids, snap)
}

// Retake starts a new attempt rebuilt from the original's configuration
// snapshot, preferring questions the original did not contain.
func (e *Engine) Retake(ctx context.Context, learnerID, originalID string) (*Started, error) {
	original, err := e.load(ctx, learnerID, originalID)
	if err != nil {
		return nil, err
	}
	if err := e.checkNoActive(ctx, learnerID); err != nil {
		return nil, err
	}
	snap, err := snapshot.Decode(original.Snapshot)
	if err != nil {
		return nil, apperr.Validationf("attempt %s cannot be retaken: %v", original.ID, err)
	}

	target, capped, err := e.allowance(ctx, learnerID, original.Type, snap.NumQuestionsRequested)
	if err != nil {
		return nil, err
	}

	ids := []string{}
	if target > 0 {
		ids, err = e.retakeQuestions(ctx, learnerID, original, snap.Filters, target)
		if err != nil {
			return nil, err
		}
	}

	return e.create(ctx, learnerID, original.Type, ids, snap.ForRetake(original.ID, len(ids), capped))
}

// retakeQuestions draws target questions avoiding the original's, and falls
// back to allowing repeats when the catalog cannot supply enough new ones.
func (e *Engine) retakeQuestions(ctx context.Context, learnerID string, original *store.Attempt, f snapshot.Filters, target int) ([]string, error) {
	crit := selection.Criteria{
		Filters:              f,
		Limit:                target,
		ExcludeIDs:           original.QuestionIDs,
		ProficiencyThreshold: e.cfg.ProficiencyThreshold,
	}
	fresh, err := e.selector.Pool(ctx, learnerID, crit)
	if err != nil {
		return nil, err
	}
	if len(fresh) >= target {
		return e.selector.Sample(fresh, target), nil
	}

	e.logger.Debug("retake pool short of unused questions, allowing repeats",
		"user", learnerID, "attempt", original.ID, "fresh", len(fresh), "target", target)
	crit.ExcludeIDs = nil
	crit.MinRequired = 1
	ids, err := e.selector.Select(ctx, learnerID, crit)
	if apperr.IsValidation(err) {
		return nil, apperr.Validationf("no suitable questions found for a retake of attempt %s", original.ID)
	}
	return ids, err
}

// allowance checks the usage limiter and clamps the requested count to the
// tier's cap.
func (e *Engine) allowance(ctx context.Context, learnerID string, t store.AttemptType, requested int) (int, bool, error) {
	if err := e.limiter.CanStart(ctx, learnerID, t); err != nil {
		return 0, false, err
	}
	limit, err := e.limiter.MaxQuestions(ctx, learnerID)
	if err != nil {
		return 0, false, err
	}
	count, capped := quota.Clamp(requested, limit)
	if count == 0 && t != store.AttemptTraditional {
		return 0, false, apperr.Validationf("%s attempts need at least one question", t)
	}
	return count, capped, nil
}

func (e *Engine) checkNoActive(ctx context.Context, learnerID string) error {
	active, err := e.db.ActiveAttempt(ctx, learnerID)
	if err != nil {
		return err
	}
	if active != nil {
		return alreadyActive(active.ID)
	}
	return nil
}

func alreadyActive(id string) error {
	if id == "" {
		return apperr.Validationf("another attempt is already in progress; complete or cancel it first")
	}
	return apperr.Validationf("attempt %s is already in progress; complete or cancel it first", id)
}

func (e *Engine) create(ctx context.Context, learnerID string, t store.AttemptType, ids []string, snap snapshot.Config) (*Started, error) {
	raw, err := snap.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	a := &store.Attempt{
		ID:          uuid.NewString(),
		UserID:      learnerID,
		Type:        t,
		Status:      store.StatusStarted,
		QuestionIDs: ids,
		Snapshot:    raw,
		StartedAt:   e.now().UTC(),
	}
	if err := e.db.CreateAttempt(ctx, a); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, alreadyActive("")
		}
		return nil, err
	}

	seq, err := e.db.CountAttempts(ctx, learnerID, t)
	if err != nil {
		return nil, err
	}
	if err := e.limiter.Record(ctx, learnerID); err != nil {
		e.logger.Warn("record attempt quota", "user", learnerID, "attempt", a.ID, "error", err)
	}

	e.logger.Info("attempt started", "user", learnerID, "attempt", a.ID, "type", t,
		"questions", len(ids), "limit_applied", snap.LimitApplied, "retake_of", snap.RetakeOfAttemptID)
	ev := events.New(events.AttemptStarted, learnerID)
	ev.AttemptID, ev.AttemptType = a.ID, t
	e.events.Emit(ctx, ev)

	return &Started{Attempt: a, Snapshot: snap, Sequence: seq}, nil
}

// load fetches an attempt owned by the learner.
func (e *Engine) load(ctx context.Context, learnerID, id string) (*store.Attempt, error) {
	a, err := e.db.GetAttempt(ctx, learnerID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("attempt", id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func requireStarted(a *store.Attempt) error {
	if a.Status != store.StatusStarted {
		return apperr.Validationf("attempt %s is %s, not in progress", a.ID, a.Status)
	}
	return nil
}
