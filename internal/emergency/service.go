package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/catalog"
	"github.com/abhisek/testprep/internal/events"
	"github.com/abhisek/testprep/internal/logging"
	"github.com/abhisek/testprep/internal/proficiency"
	"github.com/abhisek/testprep/internal/selection"
	"github.com/abhisek/testprep/internal/store"
)

// Session is a stored emergency session with its decoded plan.
type Session struct {
	*store.EmergencySession
	Plan *Plan
}

// Active reports whether the session is still open.
func (s *Session) Active() bool { return s.EndedAt == nil }

// StartRequest describes a new emergency session.
type StartRequest struct {
	Reason         string
	AvailableHours *float64
	FocusSections  []string
}

// AnswerRequest is one answer given inside a session.
type AnswerRequest struct {
	QuestionID string
	Choice     string
	Elapsed    time.Duration
}

// AnswerResult reveals the answer and reports session progress.
type AnswerResult struct {
	QuestionID    string
	Correct       bool
	CorrectChoice string
	Explanation   string
	Proficiency   *store.SkillProficiency

	Answered    int
	Recommended int
}

// Service runs emergency sessions.
type Service struct {
	db       store.TxRepos
	gen      *Generator
	selector *selection.Selector
	pool     *catalog.Pool
	tracker  *proficiency.Tracker
	events   events.Emitter
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a Service. A nil emitter drops events.
func NewService(db store.TxRepos, gen *Generator, sel *selection.Selector, emitter events.Emitter, logger *slog.Logger) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	if sel == nil {
		sel = selection.New(db, nil)
	}
	return &Service{
		db:       db,
		gen:      gen,
		selector: sel,
		pool:     catalog.NewPool(db),
		tracker:  proficiency.NewTracker(),
		events:   emitter,
		now:      time.Now,
		logger:   logging.OrDiscard(logger),
	}
}

// Start generates a plan and opens a session for it. An open session is
// ended first.
func (s *Service) Start(ctx context.Context, learnerID string, req StartRequest) (*Session, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperr.Validationf("a reason is required")
	}
	plan, err := s.gen.Generate(ctx, learnerID, req.AvailableHours, req.FocusSections)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode emergency plan: %w", err)
	}

	now := s.now().UTC()
	sess := &store.EmergencySession{
		ID:             uuid.NewString(),
		UserID:         learnerID,
		Reason:         reason,
		AvailableHours: req.AvailableHours,
		Plan:           raw,
		StartedAt:      now,
	}
	err = s.db.InTx(ctx, func(r store.Repos) error {
		prev, err := r.ActiveSession(ctx, learnerID)
		if err != nil {
			return err
		}
		if prev != nil {
			s.logger.Info("ending previous emergency session", "user", learnerID, "session", prev.ID)
			if err := r.EndSession(ctx, prev.ID, now); err != nil {
				return err
			}
		}
		return r.CreateSession(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("emergency session started", "user", learnerID, "session", sess.ID,
		"skills", len(plan.TargetSkills), "recommended", plan.RecommendedQuestions)
	ev := events.New(events.EmergencyStarted, learnerID)
	ev.SessionID = sess.ID
	s.events.Emit(ctx, ev)

	return &Session{EmergencySession: sess, Plan: plan}, nil
}

// Get returns one of the learner's sessions.
func (s *Service) Get(ctx context.Context, learnerID, sessionID string) (*Session, error) {
	sess, err := s.db.GetSession(ctx, learnerID, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("emergency session", sessionID)
	}
	if err != nil {
		return nil, err
	}
	return withPlan(sess)
}

// Active returns the learner's open session, or nil.
func (s *Service) Active(ctx context.Context, learnerID string) (*Session, error) {
	sess, err := s.db.ActiveSession(ctx, learnerID)
	if err != nil || sess == nil {
		return nil, err
	}
	return withPlan(sess)
}

func withPlan(sess *store.EmergencySession) (*Session, error) {
	plan, err := DecodePlan(sess.Plan)
	if err != nil {
		return nil, err
	}
	return &Session{EmergencySession: sess, Plan: plan}, nil
}

func (s *Service) open(ctx context.Context, learnerID, sessionID string) (*Session, error) {
	sess, err := s.Get(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return nil, apperr.Validationf("emergency session %s has ended", sess.ID)
	}
	return sess, nil
}

// NextQuestions returns up to limit questions on the plan's skills that the
// session has not answered yet, never more than the plan still recommends.
func (s *Service) NextQuestions(ctx context.Context, learnerID, sessionID string, limit int) ([]catalog.Item, error) {
	sess, err := s.open(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	answered, err := s.db.SessionQuestionIDs(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	remaining := sess.Plan.RecommendedQuestions - len(answered)
	if limit <= 0 || limit > remaining {
		limit = remaining
	}
	if limit <= 0 {
		return []catalog.Item{}, nil
	}

	crit := selection.Criteria{Limit: limit, ExcludeIDs: answered}
	crit.Skills = sess.Plan.SkillSlugs()
	ids, err := s.selector.Select(ctx, learnerID, crit)
	if err != nil {
		return nil, err
	}
	return s.pool.Items(ctx, ids)
}

// Answer records an answer inside an open session. The answer is always
// revealed.
func (s *Service) Answer(ctx context.Context, learnerID, sessionID string, req AnswerRequest) (*AnswerResult, error) {
	if strings.TrimSpace(req.Choice) == "" {
		return nil, apperr.Validationf("an answer choice is required")
	}
	sess, err := s.open(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	q, err := s.pool.Question(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	if !q.Active {
		return nil, apperr.Validationf("question %s is not available for practice", q.ID)
	}

	correct := catalog.Grade(&q.Question, req.Choice)
	qa := &store.QuestionAttempt{
		ID:                  uuid.NewString(),
		UserID:              learnerID,
		EmergencySessionID:  &sess.ID,
		QuestionID:          q.ID,
		SelectedChoice:      catalog.NormalizeChoice(req.Choice),
		IsCorrect:           correct,
		Mode:                store.ModeEmergency,
		AnswerRevealed:      true,
		ExplanationRevealed: q.Explanation != "",
		AnsweredAt:          s.now().UTC(),
	}
	if req.Elapsed > 0 {
		ms := req.Elapsed.Milliseconds()
		qa.ElapsedMs = &ms
	}

	res := &AnswerResult{
		QuestionID:    q.ID,
		Correct:       correct,
		CorrectChoice: q.CorrectChoice,
		Explanation:   q.Explanation,
		Recommended:   sess.Plan.RecommendedQuestions,
	}
	err = s.db.InTx(ctx, func(r store.Repos) error {
		locked, err := r.LockSession(ctx, learnerID, sess.ID)
		if err != nil {
			return err
		}
		if locked.EndedAt != nil {
			return apperr.Validationf("emergency session %s has ended", sess.ID)
		}
		if err := r.UpsertAnswer(ctx, qa); err != nil {
			return err
		}
		if q.SkillID != nil {
			p, err := s.tracker.Record(ctx, r, learnerID, *q.SkillID, correct)
			if err != nil {
				return err
			}
			res.Proficiency = p
		}
		ids, err := r.SessionQuestionIDs(ctx, sess.ID)
		if err != nil {
			return err
		}
		res.Answered = len(ids)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := events.New(events.AnswerRecorded, learnerID)
	ev.SessionID, ev.QuestionID, ev.Correct = sess.ID, q.ID, correct
	s.events.Emit(ctx, ev)
	return res, nil
}

// End closes an open session.
func (s *Service) End(ctx context.Context, learnerID, sessionID string) (*Session, error) {
	sess, err := s.open(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.db.EndSession(ctx, sess.ID, now); err != nil {
		return nil, err
	}
	sess.EndedAt = &now
	s.logger.Info("emergency session ended", "user", learnerID, "session", sess.ID)
	return sess, nil
}
