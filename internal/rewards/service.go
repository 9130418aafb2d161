package rewards

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/testprep/internal/events"
	"github.com/abhisek/testprep/internal/logging"
	"github.com/abhisek/testprep/internal/store"
)

// TenAttemptsThreshold is the completed-attempt count for BadgeTenAttempts.
const TenAttemptsThreshold = 10

// Service applies engine events to the reward ledger.
type Service struct {
	db          store.TxRepos
	defaultTier string
	now         func() time.Time
	logger      *slog.Logger
}

// NewService creates a reward service. Profiles created on first award get
// defaultTier.
func NewService(db store.TxRepos, defaultTier string, logger *slog.Logger) *Service {
	return &Service{
		db:          db,
		defaultTier: defaultTier,
		now:         time.Now,
		logger:      logging.OrDiscard(logger),
	}
}

// Handle satisfies events.Sink.
func (s *Service) Handle(ctx context.Context, e events.Event) error {
	switch e.Type {
	case events.AnswerRecorded:
		var grants []grant
		if e.Correct {
			grants = append(grants, grant{
				kind:   KindCorrectAnswer,
				points: PointsCorrectAnswer,
				reason: "Correct answer",
				ref:    answerRef(e),
			})
		}
		return s.apply(ctx, e.UserID, grants, true, nil)
	case events.AttemptCompleted:
		return s.apply(ctx, e.UserID, completionGrants(e), true, func(r store.Repos) ([]grant, error) {
			return s.badges(ctx, r, e)
		})
	default:
		return nil
	}
}

// answerRef scopes a correct-answer award so that re-answering the same
// question in the same attempt earns it once.
func answerRef(e events.Event) string {
	switch {
	case e.AttemptID != "":
		return "attempt:" + e.AttemptID + ":" + e.QuestionID
	case e.SessionID != "":
		return "emergency:" + e.SessionID + ":" + e.QuestionID
	default:
		return "event:" + e.ID
	}
}

func completionGrants(e events.Event) []grant {
	if e.AttemptType == store.AttemptTraditional {
		return nil
	}
	grants := []grant{{
		kind:   KindCompletion,
		points: PointsCompletion,
		reason: fmt.Sprintf("Completed a %s attempt", e.AttemptType),
		ref:    e.AttemptID,
	}}
	if e.OverallScore != nil && *e.OverallScore >= HighScoreBonusAt {
		grants = append(grants, grant{
			kind:   KindHighScoreBonus,
			points: PointsHighScoreBonus,
			reason: fmt.Sprintf("Scored %.0f%%", *e.OverallScore),
			ref:    e.AttemptID,
		})
	}
	return grants
}

func (s *Service) badges(ctx context.Context, r store.Repos, e events.Event) ([]grant, error) {
	badge := func(b Badge) grant {
		return grant{kind: KindBadge, reason: b.DisplayName(), ref: string(b)}
	}

	grants := []grant{badge(BadgeFirstAttempt)}
	if e.OverallScore != nil && *e.OverallScore >= 100 {
		grants = append(grants, badge(BadgePerfectScore))
	}
	n, err := r.CountCompleted(ctx, e.UserID)
	if err != nil {
		return nil, err
	}
	if n >= TenAttemptsThreshold {
		grants = append(grants, badge(BadgeTenAttempts))
	}
	return grants, nil
}

// apply locks the learner's profile, appends the grants that are new and
// adds their points. Learner activity also advances the daily streak.
func (s *Service) apply(ctx context.Context, userID string, grants []grant, activity bool, extra func(store.Repos) ([]grant, error)) error {
	now := s.now().UTC()
	err := s.db.InTx(ctx, func(r store.Repos) error {
		p, err := r.LockProfile(ctx, userID, s.defaultTier)
		if err != nil {
			return err
		}
		if extra != nil {
			more, err := extra(r)
			if err != nil {
				return err
			}
			grants = append(grants, more...)
		}

		for _, g := range grants {
			inserted, err := r.AppendReward(ctx, &store.RewardEvent{
				ID:        uuid.NewString(),
				UserID:    userID,
				Kind:      string(g.kind),
				Points:    g.points,
				Reason:    g.reason,
				RefID:     g.ref,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
			if inserted {
				p.Points += int64(g.points)
				s.logger.Debug("reward granted", "user", userID, "kind", g.kind, "points", g.points, "ref", g.ref)
			}
		}

		if activity {
			p.StreakDays = NextStreak(p.StreakDays, p.LastActiveOn, now)
			p.LastActiveOn = now.Format(dayLayout)
		}
		p.UpdatedAt = now
		return r.SaveProfile(ctx, p)
	})
	if err != nil {
		return fmt.Errorf("apply rewards: %w", err)
	}
	return nil
}

// AwardPoints adds an operator-issued adjustment to the learner's balance.
// ref makes the adjustment idempotent; an empty ref always applies.
func (s *Service) AwardPoints(ctx context.Context, userID string, points int, reason, ref string) error {
	if ref == "" {
		ref = uuid.NewString()
	}
	return s.apply(ctx, userID, []grant{{kind: KindAdjustment, points: points, reason: reason, ref: ref}}, false, nil)
}

// Badges returns the badges the learner holds, oldest first.
func (s *Service) Badges(ctx context.Context, userID string) ([]Badge, error) {
	entries, err := s.db.ListRewards(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	var out []Badge
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == string(KindBadge) {
			out = append(out, Badge(entries[i].RefID))
		}
	}
	return out, nil
}
