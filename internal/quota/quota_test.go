package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/store"
	"github.com/abhisek/testprep/internal/store/storetest"
)

type mockProfiles struct {
	profiles map[string]*store.Profile
	err      error
}

func (m *mockProfiles) GetProfile(_ context.Context, userID string) (*store.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profiles[userID], nil
}

type mockCounter struct {
	n        int
	recorded int
}

func (m *mockCounter) StartedSince(context.Context, string, time.Time) (int, error) { return m.n, nil }
func (m *mockCounter) Record(context.Context, string, time.Time) error {
	m.recorded++
	return nil
}

func profiles(tiers map[string]string) *mockProfiles {
	m := &mockProfiles{profiles: make(map[string]*store.Profile)}
	for u, t := range tiers {
		m.profiles[u] = &store.Profile{UserID: u, Tier: t}
	}
	return m
}

func TestClamp(t *testing.T) {
	tests := []struct {
		requested, limit int
		want             int
		clamped          bool
	}{
		{10, 5, 5, true},
		{5, 5, 5, false},
		{3, 5, 3, false},
		{100, 0, 100, false},
	}
	for _, tt := range tests {
		got, clamped := Clamp(tt.requested, tt.limit)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.clamped, clamped)
	}
}

func TestCanStartByTier(t *testing.T) {
	l := NewLimiter(profiles(map[string]string{"free-user": "free", "basic-user": "basic", "odd-user": "gold"}),
		&mockCounter{}, nil, TierFree)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    string
		typ     store.AttemptType
		blocked bool
	}{
		{"free practice", "free-user", store.AttemptPractice, false},
		{"free simulation", "free-user", store.AttemptSimulation, true},
		{"basic simulation", "basic-user", store.AttemptSimulation, false},
		{"no profile uses default", "nobody", store.AttemptSimulation, true},
		{"unknown tier uses default", "odd-user", store.AttemptSimulation, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.CanStart(ctx, tt.user, tt.typ)
			if !tt.blocked {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.IsQuota(err))
			assert.False(t, apperr.IsValidation(err))
		})
	}
}

func TestCanStartDailyLimit(t *testing.T) {
	counter := &mockCounter{n: 3}
	l := NewLimiter(profiles(map[string]string{"u1": "free", "u2": "premium"}), counter, nil, TierFree)
	ctx := context.Background()

	err := l.CanStart(ctx, "u1", store.AttemptPractice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 attempts per day")

	// Premium has no daily limit.
	assert.NoError(t, l.CanStart(ctx, "u2", store.AttemptPractice))

	require.NoError(t, l.Record(ctx, "u1"))
	assert.Equal(t, 1, counter.recorded)
}

func TestMaxQuestions(t *testing.T) {
	l := NewLimiter(profiles(map[string]string{"p": "premium", "b": "basic"}), nil, nil, TierFree)
	ctx := context.Background()

	for user, want := range map[string]int{"p": 0, "b": 25, "x": 10} {
		got, err := l.MaxQuestions(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, want, got, "user %s", user)
	}
}

func TestProfileErrorPropagates(t *testing.T) {
	l := NewLimiter(&mockProfiles{err: errors.New("db down")}, nil, nil, TierFree)
	err := l.CanStart(context.Background(), "u1", store.AttemptPractice)
	require.Error(t, err)
	assert.False(t, apperr.IsQuota(err))
}

func TestSQLCounter(t *testing.T) {
	s := storetest.Open(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{"a1", "a2"} {
		err := s.CreateAttempt(ctx, &store.Attempt{
			ID: id, UserID: "u1", Type: store.AttemptPractice, Status: store.StatusStarted,
			Snapshot: []byte(`{}`), StartedAt: now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, s.FinishAttempt(ctx, id, store.StatusAbandoned, now, nil))
	}

	c := NewSQLCounter(s)
	n, err := c.StartedSince(ctx, "u1", startOfDay(now))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.StartedSince(ctx, "u1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisCounterKey(t *testing.T) {
	c := NewRedisCounter(redis.NewClient(&redis.Options{Addr: "localhost:0"}))
	day := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "testprep:attempts:u1:2026-03-09", c.key("u1", day))
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2026, 3, 10, 2, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), startOfDay(in))
}

func TestSetTier(t *testing.T) {
	ctx := context.Background()
	s := storetest.Open(t)
	l := NewLimiter(s, NewSQLCounter(s), DefaultTiers(), TierFree)

	require.NoError(t, l.SetTier(ctx, s, "u1", TierPremium))
	tier, err := l.TierFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, TierPremium, tier.Name)

	err = l.SetTier(ctx, s, "u1", "platinum")
	assert.True(t, apperr.IsValidation(err))
	tier, err = l.TierFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, TierPremium, tier.Name)
}
