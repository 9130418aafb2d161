// Package emergency builds short, personalized study plans for learners
// under time pressure and runs the practice session that follows one.
package emergency

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/selection"
	"github.com/abhisek/testprep/internal/store"
)

// Config holds plan generation tunables.
type Config struct {
	// TargetSkills is the number of skills a plan focuses on.
	TargetSkills int

	// ProficiencyThreshold separates weak skills from the rest.
	ProficiencyThreshold float64

	// DefaultQuestions is recommended when no time budget is given.
	DefaultQuestions int

	// MinutesPerQuestion converts a time budget into a question count.
	MinutesPerQuestion float64

	// MinQuestions floors the time-derived recommendation.
	MinQuestions int

	// MaxHours is the largest accepted time budget. 0 means no cap.
	MaxHours float64

	// Tips is the number of motivational tips attached.
	Tips int
}

// DefaultConfig returns the default plan configuration.
func DefaultConfig() Config {
	return Config{
		TargetSkills:         5,
		ProficiencyThreshold: selection.DefaultProficiencyThreshold,
		DefaultQuestions:     20,
		MinutesPerQuestion:   2,
		MinQuestions:         10,
		MaxHours:             24 * 7,
		Tips:                 3,
	}
}

// Why a skill was picked.
const (
	ReasonWeak      = "weak"
	ReasonReinforce = "reinforce"
	ReasonUntested  = "untested"
)

// TargetSkill is one skill the plan focuses on. Score is nil for untested
// skills.
type TargetSkill struct {
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	SubsectionID string   `json:"subsection_id"`
	SectionSlug  string   `json:"section"`
	Score        *float64 `json:"score,omitempty"`
	Attempts     int      `json:"attempts"`
	Reason       string   `json:"reason"`
}

// ReviewTopic is a subsection worth a quick read before practicing.
type ReviewTopic struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Plan is the suggested plan stored with an emergency session. It is not
// changed after creation.
type Plan struct {
	TargetSkills         []TargetSkill `json:"target_skills"`
	RecommendedQuestions int           `json:"recommended_questions"`
	QuickReview          []ReviewTopic `json:"quick_review_topics"`
	Tips                 []string      `json:"tips"`
	FocusSections        []string      `json:"focus_sections,omitempty"`
}

// SkillSlugs returns the target skill slugs in plan order.
func (p *Plan) SkillSlugs() []string {
	out := make([]string, len(p.TargetSkills))
	for i, s := range p.TargetSkills {
		out[i] = s.Slug
	}
	return out
}

// DecodePlan parses a stored plan.
func DecodePlan(raw []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode emergency plan: %w", err)
	}
	return &p, nil
}

var tips = []string{
	"Read every answer choice before committing to one.",
	"If a question stalls you for more than two minutes, mark it and move on.",
	"Eliminate clearly wrong choices first; it raises the odds on a guess.",
	"Sleep beats a late-night cram session. Stop early tonight.",
	"Review why you missed a question, not just what the right answer was.",
	"Short, focused sessions stick better than one long one.",
	"Keep an eye on the clock but do not let it rush your reading.",
	"Trust your preparation. Your first careful answer is usually right.",
}

// Source is the catalog and proficiency access the generator needs.
type Source interface {
	ListProficiency(ctx context.Context, userID string) ([]store.ProficiencyDetail, error)
	ListSkills(ctx context.Context, sectionSlugs []string) ([]store.SkillDetail, error)
	SubsectionsByID(ctx context.Context, ids []string) ([]store.Subsection, error)
}

// Generator builds plans. It is safe for concurrent use.
type Generator struct {
	src Source
	cfg Config

	mu  sync.Mutex
	rng selection.Rand
}

// NewGenerator returns a Generator. A nil rng uses the auto-seeded global
// source.
func NewGenerator(src Source, cfg Config, rng selection.Rand) *Generator {
	if rng == nil {
		rng = globalRand{}
	}
	return &Generator{src: src, cfg: cfg, rng: rng}
}

// Generate builds a plan for the learner. availableHours may be nil;
// focusSections restricts the skills considered.
func (g *Generator) Generate(ctx context.Context, learnerID string, availableHours *float64, focusSections []string) (*Plan, error) {
	if availableHours != nil && (*availableHours <= 0 || math.IsNaN(*availableHours) || math.IsInf(*availableHours, 0)) {
		return nil, apperr.Validationf("available time must be a positive number of hours")
	}
	if availableHours != nil && g.cfg.MaxHours > 0 && *availableHours > g.cfg.MaxHours {
		return nil, apperr.Validationf("available time must be at most %g hours", g.cfg.MaxHours)
	}

	targets, err := g.targets(ctx, learnerID, focusSections)
	if err != nil {
		return nil, err
	}
	review, err := g.quickReview(ctx, targets)
	if err != nil {
		return nil, err
	}

	return &Plan{
		TargetSkills:         targets,
		RecommendedQuestions: g.recommended(availableHours),
		QuickReview:          review,
		Tips:                 g.sample(tips, g.cfg.Tips),
		FocusSections:        focusSections,
	}, nil
}

// targets picks weak skills first, then attempted skills at or above the
// threshold, then skills never attempted.
func (g *Generator) targets(ctx context.Context, learnerID string, focusSections []string) ([]TargetSkill, error) {
	n := g.cfg.TargetSkills
	profs, err := g.src.ListProficiency(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list proficiency: %w", err)
	}

	inFocus := make(map[string]bool, len(focusSections))
	for _, s := range focusSections {
		inFocus[s] = true
	}

	attempted := make(map[string]bool)
	var weak, reinforce []store.ProficiencyDetail
	for _, p := range profs {
		if len(inFocus) > 0 && !inFocus[p.SectionSlug] {
			continue
		}
		if p.AttemptsCount == 0 {
			continue
		}
		attempted[p.SkillID] = true
		if p.ProficiencyScore < g.cfg.ProficiencyThreshold {
			weak = append(weak, p)
		} else {
			reinforce = append(reinforce, p)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		if weak[i].ProficiencyScore != weak[j].ProficiencyScore {
			return weak[i].ProficiencyScore < weak[j].ProficiencyScore
		}
		return weak[i].SkillSlug < weak[j].SkillSlug
	})
	sort.SliceStable(reinforce, func(i, j int) bool {
		a, b := reinforce[i], reinforce[j]
		if a.ProficiencyScore != b.ProficiencyScore {
			return a.ProficiencyScore < b.ProficiencyScore
		}
		if a.AttemptsCount != b.AttemptsCount {
			return a.AttemptsCount < b.AttemptsCount
		}
		return a.SkillSlug < b.SkillSlug
	})

	var out []TargetSkill
	for _, group := range []struct {
		rows   []store.ProficiencyDetail
		reason string
	}{{weak, ReasonWeak}, {reinforce, ReasonReinforce}} {
		for _, p := range group.rows {
			if len(out) == n {
				return out, nil
			}
			score := p.ProficiencyScore
			out = append(out, TargetSkill{
				Slug:         p.SkillSlug,
				Name:         p.SkillName,
				SubsectionID: p.SubsectionID,
				SectionSlug:  p.SectionSlug,
				Score:        &score,
				Attempts:     p.AttemptsCount,
				Reason:       group.reason,
			})
		}
	}
	if len(out) >= n {
		return out, nil
	}

	skills, err := g.src.ListSkills(ctx, focusSections)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	var untested []store.SkillDetail
	for _, s := range skills {
		if !attempted[s.ID] {
			untested = append(untested, s)
		}
	}
	idx := make([]int, len(untested))
	for i := range idx {
		idx[i] = i
	}
	for _, i := range g.sampleIdx(idx, n-len(out)) {
		s := untested[i]
		out = append(out, TargetSkill{
			Slug:         s.Slug,
			Name:         s.Name,
			SubsectionID: s.SubsectionID,
			SectionSlug:  s.SectionSlug,
			Reason:       ReasonUntested,
		})
	}
	return out, nil
}

// quickReview returns the distinct subsections of the weak targets that
// carry a description, in target order.
func (g *Generator) quickReview(ctx context.Context, targets []TargetSkill) ([]ReviewTopic, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, t := range targets {
		if t.Reason == ReasonReinforce || seen[t.SubsectionID] {
			continue
		}
		seen[t.SubsectionID] = true
		ids = append(ids, t.SubsectionID)
	}
	subs, err := g.src.SubsectionsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list subsections: %w", err)
	}
	byID := make(map[string]store.Subsection, len(subs))
	for _, s := range subs {
		byID[s.ID] = s
	}

	out := []ReviewTopic{}
	for _, id := range ids {
		s, ok := byID[id]
		if !ok || s.Description == "" {
			continue
		}
		if len(out) == g.cfg.TargetSkills {
			break
		}
		out = append(out, ReviewTopic{Slug: s.Slug, Name: s.Name, Description: s.Description})
	}
	return out, nil
}

func (g *Generator) recommended(availableHours *float64) int {
	if availableHours == nil || g.cfg.MinutesPerQuestion <= 0 {
		return g.cfg.DefaultQuestions
	}
	hours := *availableHours
	if g.cfg.MaxHours > 0 {
		hours = min(hours, g.cfg.MaxHours)
	}
	n := int(hours * 60 / g.cfg.MinutesPerQuestion)
	return max(n, g.cfg.MinQuestions)
}

func (g *Generator) sample(items []string, k int) []string {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	out := []string{}
	for _, i := range g.sampleIdx(idx, k) {
		out = append(out, items[i])
	}
	return out
}

// sampleIdx draws min(k, len(idx)) distinct entries of idx.
func (g *Generator) sampleIdx(idx []int, k int) []int {
	if k <= 0 {
		return nil
	}
	k = min(k, len(idx))
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i < k; i++ {
		j := i + g.rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }
