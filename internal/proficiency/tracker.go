// Package proficiency maintains one bounded score per (learner, skill),
// updated on every answer.
package proficiency

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/abhisek/testprep/internal/store"
)

// Tracker records answers against skill proficiency rows.
type Tracker struct {
	now func() time.Time
}

// NewTracker returns a Tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Record applies one answer for (learnerID, skillID). The row is created on
// first use. Pass a transaction-scoped repo so the read-modify-write holds
// the row lock.
func (t *Tracker) Record(ctx context.Context, repo store.ProficiencyRepo, learnerID, skillID string, correct bool) (*store.SkillProficiency, error) {
	p, err := repo.LockProficiency(ctx, learnerID, skillID)
	if err != nil {
		return nil, fmt.Errorf("load proficiency: %w", err)
	}
	if p == nil {
		p = &store.SkillProficiency{UserID: learnerID, SkillID: skillID}
	}

	Apply(p, correct, t.now().UTC())

	if err := repo.SaveProficiency(ctx, p); err != nil {
		return nil, fmt.Errorf("save proficiency: %w", err)
	}
	return p, nil
}

// Entry is one line of a proficiency report.
type Entry struct {
	store.ProficiencyDetail
	Level    Level
	Accuracy float64
}

// Report lists the learner's proficiency rows, weakest first; ties break
// on skill slug.
func Report(ctx context.Context, repo store.ProficiencyRepo, learnerID string, threshold float64) ([]Entry, error) {
	rows, err := repo.ListProficiency(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{
			ProficiencyDetail: r,
			Level:             LevelFor(r.SkillProficiency, threshold),
			Accuracy:          Accuracy(r.SkillProficiency),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProficiencyScore != out[j].ProficiencyScore {
			return out[i].ProficiencyScore < out[j].ProficiencyScore
		}
		return out[i].SkillSlug < out[j].SkillSlug
	})
	return out, nil
}
