// Package quota enforces per-tier limits on attempt creation: which attempt
// types a learner may start, how many questions one attempt may hold and how
// many attempts may start per day.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/store"
)

// ProfileReader resolves the learner's tier.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*store.Profile, error)
}

// Counter tracks attempts started per learner.
type Counter interface {
	// StartedSince returns the number of attempts started at or after since.
	StartedSince(ctx context.Context, userID string, since time.Time) (int, error)
	// Record notes one started attempt.
	Record(ctx context.Context, userID string, at time.Time) error
}

// Limiter answers quota questions for the attempt engine.
type Limiter struct {
	profiles    ProfileReader
	counter     Counter
	tiers       map[string]Tier
	defaultTier string
	now         func() time.Time
}

// NewLimiter returns a Limiter over the given tier table. Learners without a
// profile, or with an unknown tier, get defaultTier; if that is unknown too,
// the free tier applies.
func NewLimiter(profiles ProfileReader, counter Counter, tiers map[string]Tier, defaultTier string) *Limiter {
	if tiers == nil {
		tiers = DefaultTiers()
	}
	return &Limiter{
		profiles:    profiles,
		counter:     counter,
		tiers:       tiers,
		defaultTier: defaultTier,
		now:         time.Now,
	}
}

// TierFor returns the tier that applies to the learner.
func (l *Limiter) TierFor(ctx context.Context, learnerID string) (Tier, error) {
	name := l.defaultTier
	p, err := l.profiles.GetProfile(ctx, learnerID)
	if err != nil {
		return Tier{}, fmt.Errorf("load profile: %w", err)
	}
	if p != nil && p.Tier != "" {
		name = p.Tier
	}
	if t, ok := l.tiers[name]; ok {
		return t, nil
	}
	if t, ok := l.tiers[l.defaultTier]; ok {
		return t, nil
	}
	return DefaultTiers()[TierFree], nil
}

// CanStart returns a *apperr.QuotaError when the learner may not start an
// attempt of type t right now.
func (l *Limiter) CanStart(ctx context.Context, learnerID string, t store.AttemptType) error {
	tier, err := l.TierFor(ctx, learnerID)
	if err != nil {
		return err
	}
	if !tier.Allows(t) {
		return &apperr.QuotaError{Reason: fmt.Sprintf("the %s plan does not include %s attempts", tier.Name, t)}
	}
	if tier.AttemptsPerDay > 0 && l.counter != nil {
		n, err := l.counter.StartedSince(ctx, learnerID, startOfDay(l.now()))
		if err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}
		if n >= tier.AttemptsPerDay {
			return &apperr.QuotaError{Reason: fmt.Sprintf("the %s plan allows %d attempts per day", tier.Name, tier.AttemptsPerDay)}
		}
	}
	return nil
}

// MaxQuestions returns the learner's per-attempt question cap; 0 means
// unlimited.
func (l *Limiter) MaxQuestions(ctx context.Context, learnerID string) (int, error) {
	tier, err := l.TierFor(ctx, learnerID)
	if err != nil {
		return 0, err
	}
	return tier.MaxQuestionsPerAttempt, nil
}

// Record notes a started attempt with the counter.
func (l *Limiter) Record(ctx context.Context, learnerID string) error {
	if l.counter == nil {
		return nil
	}
	return l.counter.Record(ctx, learnerID, l.now())
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SetTier assigns tier to the learner, creating the profile if needed.
func (l *Limiter) SetTier(ctx context.Context, db store.TxRepos, learnerID, tier string) error {
	if _, ok := l.tiers[tier]; !ok {
		return apperr.Validationf("unknown tier %q", tier)
	}
	return db.InTx(ctx, func(r store.Repos) error {
		p, err := r.LockProfile(ctx, learnerID, l.defaultTier)
		if err != nil {
			return err
		}
		p.Tier = tier
		p.UpdatedAt = l.now().UTC()
		return r.SaveProfile(ctx, p)
	})
}
