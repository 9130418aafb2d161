// Package selection draws the question set for an attempt: a uniform random
// sample, without replacement, from the active questions that pass every
// requested filter.
package selection

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/snapshot"
	"github.com/abhisek/testprep/internal/store"
)

// DefaultProficiencyThreshold is the score below which a skill counts as
// not mastered.
const DefaultProficiencyThreshold = 0.6

// Source supplies the candidate pool and the learner's proficiency rows.
type Source interface {
	Candidates(ctx context.Context, f store.QuestionFilter) ([]store.Candidate, error)
	ListProficiency(ctx context.Context, userID string) ([]store.ProficiencyDetail, error)
}

// Rand is the randomness the sampler needs. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Criteria describes one selection request.
type Criteria struct {
	snapshot.Filters

	// Limit is the number of ids wanted. The result holds
	// min(Limit, pool size) ids.
	Limit int

	// ExcludeIDs are removed from the pool before sampling.
	ExcludeIDs []string

	// ProficiencyThreshold applies to NotMasteredOnly. Zero means
	// DefaultProficiencyThreshold.
	ProficiencyThreshold float64

	// MinRequired, when positive, makes a pool smaller than this a
	// validation error.
	MinRequired int
}

// Selector samples question ids. It is safe for concurrent use.
type Selector struct {
	src Source

	mu  sync.Mutex
	rng Rand
}

// New returns a Selector. A nil rng uses the auto-seeded global source.
func New(src Source, rng Rand) *Selector {
	if rng == nil {
		rng = globalRand{}
	}
	return &Selector{src: src, rng: rng}
}

// Select returns up to c.Limit question ids in random draw order.
func (s *Selector) Select(ctx context.Context, learnerID string, c Criteria) ([]string, error) {
	pool, err := s.Pool(ctx, learnerID, c)
	if err != nil {
		return nil, err
	}
	if c.MinRequired > 0 && len(pool) < c.MinRequired {
		return nil, apperr.Validationf("not enough questions match the selected filters: found %d, need at least %d",
			len(pool), c.MinRequired)
	}
	return s.Sample(pool, c.Limit), nil
}

// Pool returns the filtered candidate ids, ordered by id, without sampling.
func (s *Selector) Pool(ctx context.Context, learnerID string, c Criteria) ([]string, error) {
	f := store.QuestionFilter{
		SubsectionSlugs: c.Subsections,
		SkillSlugs:      c.Skills,
	}
	if c.StarredOnly {
		f.StarredBy = learnerID
	}
	cands, err := s.src.Candidates(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	if c.NotMasteredOnly {
		threshold := c.ProficiencyThreshold
		if threshold <= 0 {
			threshold = DefaultProficiencyThreshold
		}
		cands, err = s.notMastered(ctx, learnerID, cands, threshold)
		if err != nil {
			return nil, err
		}
	}

	exclude := make(map[string]bool, len(c.ExcludeIDs))
	for _, id := range c.ExcludeIDs {
		exclude[id] = true
	}

	ids := make([]string, 0, len(cands))
	for _, cand := range cands {
		if !exclude[cand.ID] {
			ids = append(ids, cand.ID)
		}
	}
	return ids, nil
}

// notMastered keeps questions whose skill is below threshold or has never
// been attempted. Questions without a skill are dropped.
func (s *Selector) notMastered(ctx context.Context, learnerID string, cands []store.Candidate, threshold float64) ([]store.Candidate, error) {
	profs, err := s.src.ListProficiency(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list proficiency: %w", err)
	}

	low := make(map[string]bool)
	attempted := make(map[string]bool)
	for _, p := range profs {
		if p.AttemptsCount > 0 {
			attempted[p.SkillID] = true
		}
		if p.ProficiencyScore < threshold {
			low[p.SkillID] = true
		}
	}

	var out []store.Candidate
	for _, c := range cands {
		if c.SkillID == nil {
			continue
		}
		if low[*c.SkillID] || !attempted[*c.SkillID] {
			out = append(out, c)
		}
	}
	return out, nil
}

// Sample draws min(k, len(ids)) distinct ids uniformly at random. The
// returned order is the draw order. ids is not modified.
func (s *Selector) Sample(ids []string, k int) []string {
	if k <= 0 || len(ids) == 0 {
		return []string{}
	}
	if k > len(ids) {
		k = len(ids)
	}

	buf := make([]string, len(ids))
	copy(buf, ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Partial Fisher-Yates: the first k slots end up holding the draw.
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(len(buf)-i)
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf[:k]
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }
