package attempt

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/events"
	"github.com/abhisek/testprep/internal/rewards"
	"github.com/abhisek/testprep/internal/selection"
	"github.com/abhisek/testprep/internal/snapshot"
	"github.com/abhisek/testprep/internal/store"
	"github.com/abhisek/testprep/internal/store/storetest"
)

// fakeLimiter is a configurable Limiter.
type fakeLimiter struct {
	max      int
	blockErr error
	recorded int
}

func (f *fakeLimiter) CanStart(context.Context, string, store.AttemptType) error { return f.blockErr }
func (f *fakeLimiter) MaxQuestions(context.Context, string) (int, error)         { return f.max, nil }
func (f *fakeLimiter) Record(context.Context, string) error {
	f.recorded++
	return nil
}

// recorder collects emitted events.
type recorder struct {
	events []events.Event
}

func (r *recorder) Emit(_ context.Context, e events.Event) { r.events = append(r.events, e) }

func (r *recorder) types() []events.Type {
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	engine  *Engine
	store   *store.Store
	limiter *fakeLimiter
	events  *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s := storetest.Open(t)
	storetest.SeedCatalog(t, s)
	return newHarnessOn(t, s, s)
}

func newHarnessOn(t *testing.T, s *store.Store, db store.TxRepos) *harness {
	t.Helper()
	h := &harness{store: s, limiter: &fakeLimiter{}, events: &recorder{}}
	sel := selection.New(db, rand.New(rand.NewPCG(7, 11)))
	h.engine = New(db, sel, h.limiter, h.events, DefaultConfig(), nil)
	return h
}

func (h *harness) start(t *testing.T, learner string, typ store.AttemptType, n int, f snapshot.Filters) *Started {
	t.Helper()
	st, err := h.engine.Start(context.Background(), learner, StartRequest{Type: typ, Filters: f, NumQuestions: n})
	require.NoError(t, err)
	return st
}

func (h *harness) answerAll(t *testing.T, learner string, a *store.Attempt, choice string) {
	t.Helper()
	for _, id := range a.QuestionIDs {
		_, err := h.engine.Answer(context.Background(), learner, a.ID, AnswerRequest{QuestionID: id, Choice: choice})
		require.NoError(t, err)
	}
}

func TestStart(t *testing.T) {
	h := newHarness(t)
	st := h.start(t, "u1", store.AttemptPractice, 5, snapshot.Filters{})

	assert.Equal(t, store.StatusStarted, st.Attempt.Status)
	assert.Len(t, st.Attempt.QuestionIDs, 5)
	assert.Equal(t, 1, st.Sequence)
	assert.Equal(t, 5, st.Snapshot.NumQuestionsRequested)
	assert.Equal(t, 5, st.Snapshot.NumQuestionsSelected)
	assert.False(t, st.Snapshot.LimitApplied)
	assert.Equal(t, 1, h.limiter.recorded)
	assert.Equal(t, []events.Type{events.AttemptStarted}, h.events.types())

	stored, err := h.engine.Get(context.Background(), "u1", st.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, st.Attempt.QuestionIDs, stored.QuestionIDs)

	snap, err := snapshot.Decode(stored.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, store.AttemptPractice, snap.TestType)
}

func TestStartRejectsSecondActiveAttempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.start(t, "u1", store.AttemptPractice, 3, snapshot.Filters{})

	for _, typ := range store.AllAttemptTypes() {
		_, err := h.engine.Start(ctx, "u1", StartRequest{Type: typ, NumQuestions: 3})
		require.Error(t, err, typ)
		assert.True(t, apperr.IsValidation(err), typ)
	}

	// Other learners are unaffected.
	h.start(t, "u2", store.AttemptPractice, 3, snapshot.Filters{})
}

func TestStartClampsToTierCap(t *testing.T) {
	h := newHarness(t)
	h.limiter.max = 5

	st := h.start(t, "u1", store.AttemptPractice, 10, snapshot.Filters{})
	assert.LessOrEqual(t, len(st.Attempt.QuestionIDs), 5)
	assert.True(t, st.Snapshot.LimitApplied)
	assert.Equal(t, 10, st.Snapshot.NumQuestionsRequested)
}

func TestStartQuotaBlocked(t *testing.T) {
	h := newHarness(t)
	h.limiter.blockErr = &apperr.QuotaError{Reason: "the free plan does not include simulation attempts"}

	_, err := h.engine.Start(context.Background(), "u1", StartRequest{Type: store.AttemptSimulation, NumQuestions: 5})
	require.Error(t, err)
	assert.True(t, apperr.IsQuota(err))
	assert.False(t, apperr.IsValidation(err))
}

func TestStartValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  StartRequest
	}{
		{"unknown type", StartRequest{Type: "quiz", NumQuestions: 5}},
		{"negative count", StartRequest{Type: store.AttemptPractice, NumQuestions: -1}},
		{"zero count for scored type", StartRequest{Type: store.AttemptSimulation}},
		{"no matching questions", StartRequest{Type: store.AttemptPractice, NumQuestions: 5,
			Filters: snapshot.Filters{Subsections: []string{"calculus"}}}},
		{"nothing starred", StartRequest{Type: store.AttemptPractice, NumQuestions: 5,
			Filters: snapshot.Filters{StarredOnly: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.Start(ctx, "u1", tt.req)
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))
		})
	}
}

func TestStartTraditionalWithoutQuestions(t *testing.T) {
	h := newHarness(t)
	st := h.start(t, "u1", store.AttemptTraditional, 0, snapshot.Filters{})
	assert.Empty(t, st.Attempt.QuestionIDs)
}

func TestStartFewerQuestionsThanRequested(t *testing.T) {
	h := newHarness(t)
	st := h.start(t, "u1", store.AttemptPractice, 10, snapshot.Filters{Subsections: []string{"algebra"}})
	assert.ElementsMatch(t, storetest.QuestionIDs("linear-equations"), st.Attempt.QuestionIDs)
	assert.Equal(t, 3, st.Snapshot.NumQuestionsSelected)
}

func TestAnswerOutsideScope(t *testing.T) {
	h := newHarness(t)
	st := h.start(t, "u1", store.AttemptPractice, 3, snapshot.Filters{Subsections: []string{"algebra"}})

	_, err := h.engine.Answer(context.Background(), "u1", st.Attempt.ID, AnswerRequest{
		QuestionID: storetest.QuestionID("circles", 1), Choice: "A",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestAnswerOwnership(t *testing.T) {
	h := newHarness(t)
	st := h.start(t, "u1", store.AttemptPractice, 3, snapshot.Filters{})

	_, err := h.engine.Answer(context.Background(), "u2", st.Attempt.ID, AnswerRequest{
		QuestionID: st.Attempt.QuestionIDs[0], Choice: "A",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestAnswerFeedbackPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("hidden during a practice attempt", func(t *testing.T) {
		h := newHarness(t)
		st := h.start(t, "u1", store.AttemptPractice, 3, snapshot.Filters{Subsections: []string{"algebra"}})
		fb, err := h.engine.Answer(ctx, "u1", st.Attempt.ID, AnswerRequest{QuestionID: st.Attempt.QuestionIDs[0], Choice: "b"})
		require.NoError(t, err)
		assert.True(t, fb.Recorded)
		assert.False(t, fb.Revealed)
		assert.Nil(t, fb.Correct)
		assert.Empty(t, fb.CorrectChoice)
		assert.Empty(t, fb.Explanation)
		require.NotNil(t, fb.Proficiency)
		assert.Equal(t, 1, fb.Proficiency.AttemptsCount)
	})

	t.Run("revealed during a traditional attempt", func(t *testing.T) {
		h := newHarness(t)
		st := h.start(t, "u1", store.AttemptTraditional, 3, snapshot.Filters{Subsections: []string{"algebra"}})
		fb, err := h.engine.Answer(ctx, "u1", st.Attempt.ID, AnswerRequest{QuestionID: st.Attempt.QuestionIDs[0], Choice: " a "})
		require.NoError(t, err)
		assert.True(t, fb.Revealed)
		require.NotNil(t, fb.Correct)
		assert.True(t, *fb.Correct)
		assert.Equal(t, storetest.CorrectChoice, fb.CorrectChoice)
		assert.NotEmpty(t, fb.Explanation)
	})
}

func TestAnswerUntaggedQuestionSkipsProficiency(t *testing.T) {
	h := newHarness(t)
	st := h.start(t, "u1", store.AttemptPractice, 5, snapshot.Filters{Subsections: []string{"vocabulary"}})

	for _, id := range st.Attempt.QuestionIDs {
		fb, err := h.engine.Answer(context.Background(), "u1", st.Attempt.ID, AnswerRequest{QuestionID: id, Choice: "A"})
		require.NoError(t, err)
		if fb.Proficiency == nil {
			return
		}
	}
	t.Fatal("expected an untagged vocabulary question")
}

func TestResubmissionOverwrites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st := h.start(t, "u1", store.AttemptPractice, 3, snapshot.Filters{Subsections: []string{"algebra"}})
	first := st.Attempt.QuestionIDs[0]

	_, err := h.engine.Answer(ctx, "u1", st.Attempt.ID, AnswerRequest{QuestionID: first, Choice: storetest.WrongChoice})
	require.NoError(t, err)
	h.answerAll(t, "u1", st.Attempt, storetest.CorrectChoice)

	c, err := h.engine.Complete(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, c.Result.Overall)
	assert.Equal(t, 3, c.Result.Answered)
}

func TestCompleteScoresAttempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st := h.start(t, "u1", store.AttemptSimulation, 3, snapshot.Filters{Subsections: []string{"algebra"}})
	h.answerAll(t, "u1", st.Attempt, storetest.CorrectChoice)

	c, err := h.engine.Complete(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, c.Attempt.Status)
	assert.NotNil(t, c.Attempt.EndedAt)
	assert.Contains(t, c.Message, "Excellent")

	stored, err := h.engine.Get(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.OverallScore)
	assert.Equal(t, 100.0, *stored.OverallScore)
	require.NotNil(t, stored.QuantitativeScore)
	assert.Nil(t, stored.VerbalScore)
	assert.True(t, stored.ResultsSummary.Valid)
	assert.Contains(t, string(stored.ResultsSummary.JSONText), "subsection:algebra")

	last := h.events.events[len(h.events.events)-1]
	assert.Equal(t, events.AttemptCompleted, last.Type)
	require.NotNil(t, last.OverallScore)
	assert.Equal(t, 100.0, *last.OverallScore)

	// Terminal states accept nothing further.
	_, err = h.engine.Complete(ctx, "u1", st.Attempt.ID)
	assert.True(t, apperr.IsValidation(err))
	_, err = h.engine.Cancel(ctx, "u1", st.Attempt.ID)
	assert.True(t, apperr.IsValidation(err))
}

func TestCompletePartialAttemptNamesWeakArea(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st := h.start(t, "u1", store.AttemptPractice, 3, snapshot.Filters{Subsections: []string{"algebra"}})

	_, err := h.engine.Answer(ctx, "u1", st.Attempt.ID, AnswerRequest{QuestionID: st.Attempt.QuestionIDs[0], Choice: storetest.WrongChoice})
	require.NoError(t, err)

	c, err := h.engine.Complete(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Result.Overall)
	assert.True(t, c.Result.UnderCompleted())
	assert.Contains(t, c.Message, "Algebra")
}

func TestCompleteTraditionalLeavesScoresEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st := h.start(t, "u1", store.AttemptTraditional, 3, snapshot.Filters{Subsections: []string{"algebra"}})
	h.answerAll(t, "u1", st.Attempt, storetest.CorrectChoice)

	c, err := h.engine.Complete(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	assert.Nil(t, c.Result)

	stored, err := h.engine.Get(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, stored.Status)
	assert.Nil(t, stored.OverallScore)
	assert.Nil(t, stored.VerbalScore)
	assert.Nil(t, stored.QuantitativeScore)
	assert.False(t, stored.ResultsSummary.Valid)
}

func TestCompleteLevelAssessmentUpdatesProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st := h.start(t, "u1", store.AttemptLevelAssessment, 20, snapshot.Filters{})
	h.answerAll(t, "u1", st.Attempt, storetest.CorrectChoice)

	_, err := h.engine.Complete(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)

	p, err := h.store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.LevelDetermined)
	require.NotNil(t, p.VerbalLevel)
	require.NotNil(t, p.QuantitativeLevel)
	assert.Equal(t, 100.0, *p.VerbalLevel)
	assert.Equal(t, 100.0, *p.QuantitativeLevel)
	assert.Equal(t, "free", p.Tier)
}

// hookedStore routes ScoredAnswers calls made inside transactions through
// scored.
type hookedStore struct {
	*store.Store
	scored func(ctx context.Context, r store.Repos, attemptID string) ([]store.ScoredAnswer, error)
}

func (h hookedStore) InTx(ctx context.Context, fn func(store.Repos) error) error {
	return h.Store.InTx(ctx, func(r store.Repos) error {
		return fn(hookedRepos{Repos: r, scored: h.scored})
	})
}

type hookedRepos struct {
	store.Repos
	scored func(ctx context.Context, r store.Repos, attemptID string) ([]store.ScoredAnswer, error)
}

func (h hookedRepos) ScoredAnswers(ctx context.Context, attemptID string) ([]store.ScoredAnswer, error) {
	return h.scored(ctx, h.Repos, attemptID)
}

func TestCompleteScoringFailureMarksError(t *testing.T) {
	s := storetest.Open(t)
	storetest.SeedCatalog(t, s)
	h := newHarnessOn(t, s, hookedStore{Store: s, scored: func(context.Context, store.Repos, string) ([]store.ScoredAnswer, error) {
		return nil, errors.New("disk on fire")
	}})
	ctx := context.Background()

	st := h.start(t, "u1", store.AttemptPractice, 3, snapshot.Filters{})
	_, err := h.engine.Complete(ctx, "u1", st.Attempt.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsInternal(err))
	assert.NotContains(t, err.Error(), "disk on fire")

	stored, err := h.engine.Get(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusError, stored.Status)
	assert.NotNil(t, stored.EndedAt)

	// The learner can start again.
	h.start(t, "u1", store.AttemptPractice, 3, snapshot.Filters{})
}

func TestCompleteRejectsAnswersAfterScoringRead(t *testing.T) {
	s := storetest.Open(t)
	storetest.SeedCatalog(t, s)
	ctx := context.Background()

	var h *harness
	late := make(chan error, 1)
	var lateQuestion string
	db := hookedStore{Store: s, scored: func(ctx context.Context, r store.Repos, attemptID string) ([]store.ScoredAnswer, error) {
		rows, err := r.ScoredAnswers(ctx, attemptID)
		go func() {
			_, err := h.engine.Answer(ctx, "u1", attemptID, AnswerRequest{QuestionID: lateQuestion, Choice: storetest.CorrectChoice})
			late <- err
		}()
		return rows, err
	}}
	h = newHarnessOn(t, s, db)

	st := h.start(t, "u1", store.AttemptPractice, 2, snapshot.Filters{})
	lateQuestion = st.Attempt.QuestionIDs[1]
	_, err := h.engine.Answer(ctx, "u1", st.Attempt.ID, AnswerRequest{QuestionID: st.Attempt.QuestionIDs[0], Choice: storetest.CorrectChoice})
	require.NoError(t, err)

	c, err := h.engine.Complete(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Result.Answered)

	lateErr := <-late
	require.Error(t, lateErr)
	assert.True(t, apperr.IsValidation(lateErr))

	rows, err := s.ScoredAnswers(ctx, st.Attempt.ID)
	require.NoError(t, err)
	assert.Len(t, rows, c.Result.Answered)
}

func TestCompleteLevelAssessmentKeepsUncoveredLevel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.start(t, "u1", store.AttemptLevelAssessment, 20, snapshot.Filters{})
	h.answerAll(t, "u1", first.Attempt, storetest.CorrectChoice)
	_, err := h.engine.Complete(ctx, "u1", first.Attempt.ID)
	require.NoError(t, err)

	second := h.start(t, "u1", store.AttemptLevelAssessment, 3, snapshot.Filters{Subsections: []string{"algebra"}})
	h.answerAll(t, "u1", second.Attempt, "B")
	c, err := h.engine.Complete(ctx, "u1", second.Attempt.ID)
	require.NoError(t, err)
	assert.Nil(t, c.Result.Verbal)

	p, err := h.store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.LevelDetermined)
	require.NotNil(t, p.VerbalLevel)
	require.NotNil(t, p.QuantitativeLevel)
	assert.Equal(t, 100.0, *p.VerbalLevel)
	assert.Equal(t, 0.0, *p.QuantitativeLevel)
}

func TestCompleteLevelAssessmentAlongsidePointAward(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ledger := rewards.NewService(h.store, "free", nil)

	st := h.start(t, "u1", store.AttemptLevelAssessment, 20, snapshot.Filters{})
	h.answerAll(t, "u1", st.Attempt, storetest.CorrectChoice)

	var wg sync.WaitGroup
	var completeErr, awardErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, completeErr = h.engine.Complete(ctx, "u1", st.Attempt.ID)
	}()
	go func() {
		defer wg.Done()
		awardErr = ledger.AwardPoints(ctx, "u1", 7, "bonus", "bonus-1")
	}()
	wg.Wait()
	require.NoError(t, completeErr)
	require.NoError(t, awardErr)

	p, err := h.store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(7), p.Points)
	assert.True(t, p.LevelDetermined)
	require.NotNil(t, p.VerbalLevel)
	assert.Equal(t, 100.0, *p.VerbalLevel)
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st := h.start(t, "u1", store.AttemptPractice, 3, snapshot.Filters{})

	a, err := h.engine.Cancel(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusAbandoned, a.Status)
	assert.Equal(t, events.AttemptAbandoned, h.events.events[len(h.events.events)-1].Type)

	_, err = h.engine.Answer(ctx, "u1", st.Attempt.ID, AnswerRequest{QuestionID: st.Attempt.QuestionIDs[0], Choice: "A"})
	assert.True(t, apperr.IsValidation(err))

	stored, err := h.engine.Get(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.OverallScore)

	active, err := h.engine.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestRetakeAvoidsOriginalQuestions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	original := h.start(t, "u1", store.AttemptPractice, 5, snapshot.Filters{})
	_, err := h.engine.Cancel(ctx, "u1", original.Attempt.ID)
	require.NoError(t, err)

	rt, err := h.engine.Retake(ctx, "u1", original.Attempt.ID)
	require.NoError(t, err)

	assert.NotEqual(t, original.Attempt.ID, rt.Attempt.ID)
	assert.Len(t, rt.Attempt.QuestionIDs, 5)
	for _, id := range rt.Attempt.QuestionIDs {
		assert.NotContains(t, original.Attempt.QuestionIDs, id)
	}
	assert.Equal(t, original.Attempt.ID, rt.Snapshot.RetakeOfAttemptID)
	assert.Equal(t, 2, rt.Sequence)
}

func TestRetakeFallsBackToRepeats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	f := snapshot.Filters{Subsections: []string{"algebra"}}
	original := h.start(t, "u1", store.AttemptPractice, 3, f)
	_, err := h.engine.Cancel(ctx, "u1", original.Attempt.ID)
	require.NoError(t, err)

	rt, err := h.engine.Retake(ctx, "u1", original.Attempt.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, original.Attempt.QuestionIDs, rt.Attempt.QuestionIDs)
	assert.Equal(t, []string{"algebra"}, rt.Snapshot.Subsections)
}

func TestRetakeRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	active := h.start(t, "u1", store.AttemptPractice, 3, snapshot.Filters{})
	_, err := h.engine.Retake(ctx, "u1", active.Attempt.ID)
	assert.True(t, apperr.IsValidation(err))

	_, err = h.engine.Retake(ctx, "u1", "missing")
	assert.True(t, apperr.IsNotFound(err))

	_, err = h.engine.Cancel(ctx, "u1", active.Attempt.ID)
	require.NoError(t, err)

	// Corrupt snapshot.
	err = h.store.CreateAttempt(ctx, &store.Attempt{
		ID: "legacy", UserID: "u1", Type: store.AttemptPractice, Status: store.StatusCompleted,
		QuestionIDs: store.StringList{}, Snapshot: []byte(`{"filters": "all"}`),
		StartedAt: active.Attempt.StartedAt,
	})
	require.NoError(t, err)
	_, err = h.engine.Retake(ctx, "u1", "legacy")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestRetakeReclampsCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	original := h.start(t, "u1", store.AttemptPractice, 8, snapshot.Filters{})
	_, err := h.engine.Cancel(ctx, "u1", original.Attempt.ID)
	require.NoError(t, err)

	h.limiter.max = 4
	rt, err := h.engine.Retake(ctx, "u1", original.Attempt.ID)
	require.NoError(t, err)
	assert.Len(t, rt.Attempt.QuestionIDs, 4)
	assert.True(t, rt.Snapshot.LimitApplied)
	assert.Equal(t, 8, rt.Snapshot.NumQuestionsRequested)
}

func TestFetchQuestionsAndUnboundAnswer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	qs, err := h.engine.FetchQuestions(ctx, "u1", FetchRequest{
		Filters: snapshot.Filters{Skills: []string{"circles"}},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, qs, 3)
	for _, q := range qs {
		assert.Equal(t, "circles", q.SkillSlug)
		assert.Equal(t, "geometry", q.SubsectionSlug)
		assert.Len(t, q.Choices, 4)
	}

	fb, err := h.engine.AnswerUnbound(ctx, "u1", AnswerRequest{QuestionID: qs[0].ID, Choice: storetest.CorrectChoice})
	require.NoError(t, err)
	assert.True(t, fb.Revealed)
	require.NotNil(t, fb.Correct)
	assert.True(t, *fb.Correct)
	require.NotNil(t, fb.Proficiency)
	assert.Equal(t, 1.0, fb.Proficiency.ProficiencyScore)

	// Answering again adds a second row rather than overwriting.
	fb, err = h.engine.AnswerUnbound(ctx, "u1", AnswerRequest{QuestionID: qs[0].ID, Choice: storetest.WrongChoice})
	require.NoError(t, err)
	assert.Equal(t, 2, fb.Proficiency.AttemptsCount)

	_, err = h.engine.AnswerUnbound(ctx, "u1", AnswerRequest{QuestionID: "q-linear-equations-inactive", Choice: "A"})
	assert.True(t, apperr.IsValidation(err))

	_, err = h.engine.FetchQuestions(ctx, "u1", FetchRequest{Limit: 0})
	assert.True(t, apperr.IsValidation(err))
}

func TestStarredFilter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	starred := storetest.QuestionID("triangles", 2)

	require.NoError(t, h.engine.Star(ctx, "u1", starred))
	require.NoError(t, h.engine.Star(ctx, "u1", starred))
	assert.True(t, apperr.IsNotFound(h.engine.Star(ctx, "u1", "nope")))

	st := h.start(t, "u1", store.AttemptPractice, 5, snapshot.Filters{StarredOnly: true})
	assert.Equal(t, []string{starred}, []string(st.Attempt.QuestionIDs))

	require.NoError(t, h.engine.Unstar(ctx, "u1", starred))
	qs, err := h.engine.FetchQuestions(ctx, "u1", FetchRequest{Filters: snapshot.Filters{StarredOnly: true}, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestListAndQuestions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st := h.start(t, "u1", store.AttemptPractice, 4, snapshot.Filters{})

	qs, err := h.engine.Questions(ctx, "u1", st.Attempt.ID)
	require.NoError(t, err)
	require.Len(t, qs, 4)
	for i, q := range qs {
		assert.Equal(t, st.Attempt.QuestionIDs[i], q.ID)
	}

	list, err := h.engine.List(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, st.Attempt.ID, list[0].ID)

	list, err = h.engine.List(ctx, "u2", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
