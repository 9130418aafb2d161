package rewards

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/testprep/internal/events"
	"github.com/abhisek/testprep/internal/store"
	"github.com/abhisek/testprep/internal/store/storetest"
)

func newTestService(t *testing.T, now time.Time) (*Service, *store.Store) {
	t.Helper()
	s := storetest.Open(t)
	svc := NewService(s, "free", nil)
	svc.now = func() time.Time { return now }
	return svc, s
}

func profile(t *testing.T, s *store.Store, user string) *store.Profile {
	t.Helper()
	p, err := s.GetProfile(context.Background(), user)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func answered(user, attemptID, questionID string, correct bool) events.Event {
	e := events.New(events.AnswerRecorded, user)
	e.AttemptID = attemptID
	e.QuestionID = questionID
	e.Correct = correct
	return e
}

func completed(user, attemptID string, typ store.AttemptType, score *float64) events.Event {
	e := events.New(events.AttemptCompleted, user)
	e.AttemptID = attemptID
	e.AttemptType = typ
	e.OverallScore = score
	return e
}

func TestNextStreak(t *testing.T) {
	day := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		streak     int
		lastActive string
		want       int
	}{
		{"first activity", 0, "", 1},
		{"same day", 4, "2026-03-10", 4},
		{"next day", 4, "2026-03-09", 5},
		{"gap", 4, "2026-03-07", 1},
		{"garbage", 4, "yesterday", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStreak(tt.streak, tt.lastActive, day))
		})
	}
}

func TestCorrectAnswerPointsOncePerQuestion(t *testing.T) {
	svc, s := newTestService(t, time.Now())
	ctx := context.Background()

	require.NoError(t, svc.Handle(ctx, answered("u1", "a1", "q1", true)))
	require.NoError(t, svc.Handle(ctx, answered("u1", "a1", "q1", true)))
	require.NoError(t, svc.Handle(ctx, answered("u1", "a1", "q2", false)))
	require.NoError(t, svc.Handle(ctx, answered("u1", "a2", "q1", true)))

	p := profile(t, s, "u1")
	assert.Equal(t, int64(2), p.Points)
	assert.Equal(t, "free", p.Tier)
	assert.Equal(t, 1, p.StreakDays)
}

func TestCompletionPointsAndBadges(t *testing.T) {
	svc, s := newTestService(t, time.Now())
	ctx := context.Background()

	perfect := 100.0
	require.NoError(t, svc.Handle(ctx, completed("u1", "a1", store.AttemptPractice, &perfect)))
	// Replay is a no-op.
	require.NoError(t, svc.Handle(ctx, completed("u1", "a1", store.AttemptPractice, &perfect)))

	p := profile(t, s, "u1")
	assert.Equal(t, int64(PointsCompletion+PointsHighScoreBonus), p.Points)

	badges, err := svc.Badges(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []Badge{BadgeFirstAttempt, BadgePerfectScore}, badges)

	low := 50.0
	require.NoError(t, svc.Handle(ctx, completed("u1", "a2", store.AttemptSimulation, &low)))
	p = profile(t, s, "u1")
	assert.Equal(t, int64(2*PointsCompletion+PointsHighScoreBonus), p.Points)

	badges, err = svc.Badges(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, badges, 2)
}

func TestTraditionalCompletionEarnsNoPoints(t *testing.T) {
	svc, s := newTestService(t, time.Now())
	ctx := context.Background()

	require.NoError(t, svc.Handle(ctx, completed("u1", "a1", store.AttemptTraditional, nil)))
	p := profile(t, s, "u1")
	assert.Equal(t, int64(0), p.Points)

	badges, err := svc.Badges(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []Badge{BadgeFirstAttempt}, badges)
}

func TestStreakAcrossDays(t *testing.T) {
	day := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc, s := newTestService(t, day)
	ctx := context.Background()

	require.NoError(t, svc.Handle(ctx, answered("u1", "a1", "q1", false)))
	svc.now = func() time.Time { return day.AddDate(0, 0, 1) }
	require.NoError(t, svc.Handle(ctx, answered("u1", "a1", "q2", false)))
	assert.Equal(t, 2, profile(t, s, "u1").StreakDays)

	svc.now = func() time.Time { return day.AddDate(0, 0, 5) }
	require.NoError(t, svc.Handle(ctx, answered("u1", "a1", "q3", false)))
	p := profile(t, s, "u1")
	assert.Equal(t, 1, p.StreakDays)
	assert.Equal(t, "2026-03-14", p.LastActiveOn)
}

func TestAwardPointsDoesNotTouchStreak(t *testing.T) {
	svc, s := newTestService(t, time.Now())
	ctx := context.Background()

	require.NoError(t, svc.AwardPoints(ctx, "u1", 25, "Contest prize", "contest-1"))
	require.NoError(t, svc.AwardPoints(ctx, "u1", 25, "Contest prize", "contest-1"))

	p := profile(t, s, "u1")
	assert.Equal(t, int64(25), p.Points)
	assert.Equal(t, 0, p.StreakDays)
}

func TestIgnoresOtherEvents(t *testing.T) {
	svc, s := newTestService(t, time.Now())
	require.NoError(t, svc.Handle(context.Background(), events.New(events.AttemptStarted, "u1")))

	p, err := s.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, p)
}
