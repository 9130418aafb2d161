package emergency

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/selection"
	"github.com/abhisek/testprep/internal/store"
	"github.com/abhisek/testprep/internal/store/storetest"
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(3, 5)) }

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	s := storetest.Open(t)
	storetest.SeedCatalog(t, s)
	return s
}

func hours(h float64) *float64 { return &h }

func slugs(ts []TargetSkill) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Slug
	}
	return out
}

func TestGenerateWithoutHistory(t *testing.T) {
	s := seededStore(t)
	g := NewGenerator(s, DefaultConfig(), seeded())

	plan, err := g.Generate(context.Background(), "u1", nil, nil)
	require.NoError(t, err)

	require.Len(t, plan.TargetSkills, 5)
	for _, ts := range plan.TargetSkills {
		assert.Equal(t, ReasonUntested, ts.Reason)
		assert.Nil(t, ts.Score)
		assert.Contains(t, storetest.SkillSlugs, ts.Slug)
	}
	assert.Len(t, uniq(slugs(plan.TargetSkills)), 5)
	assert.Equal(t, 20, plan.RecommendedQuestions)
	assert.Len(t, plan.Tips, 3)
	assert.Len(t, uniq(plan.Tips), 3)
	for _, r := range plan.QuickReview {
		assert.NotEmpty(t, r.Description)
		assert.NotEqual(t, "vocabulary", r.Slug)
	}
}

func uniq(xs []string) map[string]bool {
	m := make(map[string]bool)
	for _, x := range xs {
		m[x] = true
	}
	return m
}

func TestGenerateOrdersWeakestFirst(t *testing.T) {
	s := seededStore(t)
	storetest.SetProficiency(t, s, "u1", "synonyms", 10, 0.9)
	storetest.SetProficiency(t, s, "u1", "main-idea", 4, 0.25)
	storetest.SetProficiency(t, s, "u1", "inference", 2, 0.7)
	storetest.SetProficiency(t, s, "u1", "triangles", 5, 0.4)
	g := NewGenerator(s, DefaultConfig(), seeded())

	plan, err := g.Generate(context.Background(), "u1", nil, nil)
	require.NoError(t, err)
	require.Len(t, plan.TargetSkills, 5)

	assert.Equal(t, []string{"main-idea", "triangles", "inference", "synonyms"}, slugs(plan.TargetSkills)[:4])
	reasons := []string{ReasonWeak, ReasonWeak, ReasonReinforce, ReasonReinforce, ReasonUntested}
	for i, ts := range plan.TargetSkills {
		assert.Equal(t, reasons[i], ts.Reason, ts.Slug)
	}
	assert.Contains(t, []string{"linear-equations", "circles"}, plan.TargetSkills[4].Slug)
	require.NotNil(t, plan.TargetSkills[0].Score)
	assert.Equal(t, 0.25, *plan.TargetSkills[0].Score)

	require.GreaterOrEqual(t, len(plan.QuickReview), 2)
	assert.Equal(t, "reading", plan.QuickReview[0].Slug)
	assert.Equal(t, "geometry", plan.QuickReview[1].Slug)
}

func TestGenerateReinforceTieBreaksOnAttempts(t *testing.T) {
	s := seededStore(t)
	storetest.SetProficiency(t, s, "u1", "circles", 8, 0.75)
	storetest.SetProficiency(t, s, "u1", "synonyms", 4, 0.75)
	cfg := DefaultConfig()
	cfg.TargetSkills = 2
	g := NewGenerator(s, cfg, seeded())

	plan, err := g.Generate(context.Background(), "u1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"synonyms", "circles"}, slugs(plan.TargetSkills))
	assert.Empty(t, plan.QuickReview)
}

func TestGenerateFocusSections(t *testing.T) {
	s := seededStore(t)
	storetest.SetProficiency(t, s, "u1", "main-idea", 4, 0.25)
	storetest.SetProficiency(t, s, "u1", "triangles", 5, 0.4)
	g := NewGenerator(s, DefaultConfig(), seeded())

	plan, err := g.Generate(context.Background(), "u1", nil, []string{"quant"})
	require.NoError(t, err)

	require.Len(t, plan.TargetSkills, 3)
	assert.Equal(t, "triangles", plan.TargetSkills[0].Slug)
	assert.ElementsMatch(t, []string{"triangles", "linear-equations", "circles"}, slugs(plan.TargetSkills))
	for _, ts := range plan.TargetSkills {
		assert.Equal(t, "quant", ts.SectionSlug)
	}
	assert.Equal(t, []string{"quant"}, plan.FocusSections)
}

func TestRecommendedQuestions(t *testing.T) {
	s := seededStore(t)
	g := NewGenerator(s, DefaultConfig(), seeded())
	ctx := context.Background()

	tests := []struct {
		hours *float64
		want  int
	}{
		{nil, 20},
		{hours(1.5), 45},
		{hours(0.1), 10},
		{hours(24 * 7), 5040},
	}
	for _, tt := range tests {
		plan, err := g.Generate(ctx, "u1", tt.hours, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, plan.RecommendedQuestions)
	}

	for _, h := range []float64{-2, 24*7 + 1, 1e17, 1e19} {
		_, err := g.Generate(ctx, "u1", hours(h), nil)
		assert.True(t, apperr.IsValidation(err), h)
	}
}

func newService(t *testing.T, cfg Config) (*Service, *store.Store) {
	t.Helper()
	s := seededStore(t)
	gen := NewGenerator(s, cfg, seeded())
	return NewService(s, gen, selection.New(s, seeded()), nil, nil), s
}

func TestStartEndsPreviousSession(t *testing.T) {
	svc, _ := newService(t, DefaultConfig())
	ctx := context.Background()

	first, err := svc.Start(ctx, "u1", StartRequest{Reason: "exam tomorrow"})
	require.NoError(t, err)
	assert.True(t, first.Active())

	second, err := svc.Start(ctx, "u1", StartRequest{Reason: "exam in an hour", AvailableHours: hours(1)})
	require.NoError(t, err)
	assert.Equal(t, 30, second.Plan.RecommendedQuestions)

	old, err := svc.Get(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.False(t, old.Active())

	active, err := svc.Active(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, second.Plan.SkillSlugs(), active.Plan.SkillSlugs())

	_, err = svc.Get(ctx, "u2", first.ID)
	assert.True(t, apperr.IsNotFound(err))

	_, err = svc.Start(ctx, "u1", StartRequest{Reason: "  "})
	assert.True(t, apperr.IsValidation(err))
}

func TestSessionPractice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultQuestions = 2
	svc, _ := newService(t, cfg)
	ctx := context.Background()

	sess, err := svc.Start(ctx, "u1", StartRequest{Reason: "exam tomorrow"})
	require.NoError(t, err)
	targets := uniq(sess.Plan.SkillSlugs())

	qs, err := svc.NextQuestions(ctx, "u1", sess.ID, 10)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	for _, q := range qs {
		assert.True(t, targets[q.SkillSlug], q.SkillSlug)
	}

	res, err := svc.Answer(ctx, "u1", sess.ID, AnswerRequest{QuestionID: qs[0].ID, Choice: storetest.WrongChoice})
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, storetest.CorrectChoice, res.CorrectChoice)
	assert.NotEmpty(t, res.Explanation)
	assert.Equal(t, 1, res.Answered)
	assert.Equal(t, 2, res.Recommended)
	require.NotNil(t, res.Proficiency)
	assert.Equal(t, 0.0, res.Proficiency.ProficiencyScore)

	// Answering the same question again does not advance progress.
	res, err = svc.Answer(ctx, "u1", sess.ID, AnswerRequest{QuestionID: qs[0].ID, Choice: storetest.CorrectChoice})
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 1, res.Answered)

	next, err := svc.NextQuestions(ctx, "u1", sess.ID, 10)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.NotEqual(t, qs[0].ID, next[0].ID)

	res, err = svc.Answer(ctx, "u1", sess.ID, AnswerRequest{QuestionID: next[0].ID, Choice: "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Answered)

	done, err := svc.NextQuestions(ctx, "u1", sess.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestEndedSessionRejectsWork(t *testing.T) {
	svc, _ := newService(t, DefaultConfig())
	ctx := context.Background()

	sess, err := svc.Start(ctx, "u1", StartRequest{Reason: "exam tomorrow"})
	require.NoError(t, err)
	ended, err := svc.End(ctx, "u1", sess.ID)
	require.NoError(t, err)
	assert.False(t, ended.Active())

	_, err = svc.Answer(ctx, "u1", sess.ID, AnswerRequest{QuestionID: storetest.QuestionID("circles", 1), Choice: "A"})
	assert.True(t, apperr.IsValidation(err))
	_, err = svc.NextQuestions(ctx, "u1", sess.ID, 5)
	assert.True(t, apperr.IsValidation(err))
	_, err = svc.End(ctx, "u1", sess.ID)
	assert.True(t, apperr.IsValidation(err))

	active, err := svc.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestAnswerRejectsInactiveQuestion(t *testing.T) {
	svc, s := newService(t, DefaultConfig())
	ctx := context.Background()

	sess, err := svc.Start(ctx, "u1", StartRequest{Reason: "exam tomorrow"})
	require.NoError(t, err)

	_, err = svc.Answer(ctx, "u1", sess.ID, AnswerRequest{QuestionID: "q-linear-equations-inactive", Choice: "A"})
	assert.True(t, apperr.IsValidation(err))

	ids, err := s.SessionQuestionIDs(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// endingStore ends the session right before the answer transaction opens.
type endingStore struct {
	store.TxRepos
	sessionID string
}

func (e endingStore) InTx(ctx context.Context, fn func(store.Repos) error) error {
	if err := e.TxRepos.EndSession(ctx, e.sessionID, time.Now().UTC()); err != nil {
		return err
	}
	return e.TxRepos.InTx(ctx, fn)
}

func TestAnswerRejectsSessionEndedConcurrently(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	cfg := DefaultConfig()
	svc := NewService(s, NewGenerator(s, cfg, seeded()), selection.New(s, seeded()), nil, nil)

	sess, err := svc.Start(ctx, "u1", StartRequest{Reason: "exam tomorrow"})
	require.NoError(t, err)

	racing := NewService(endingStore{TxRepos: s, sessionID: sess.ID}, NewGenerator(s, cfg, seeded()), selection.New(s, seeded()), nil, nil)
	_, err = racing.Answer(ctx, "u1", sess.ID, AnswerRequest{QuestionID: storetest.QuestionID("circles", 1), Choice: "A"})
	assert.True(t, apperr.IsValidation(err))

	ids, err := s.SessionQuestionIDs(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
