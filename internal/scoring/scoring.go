// Package scoring computes overall and per-category scores for a completed
// attempt, plus the per-area breakdown stored as the attempt's results
// summary.
package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/testprep/internal/store"
)

// Thresholds used by Message, in percent.
const (
	WeakAreaThreshold  = 60.0
	HighScoreThreshold = 80.0
)

// ErrMissingMetadata is returned when an answer's question can no longer be
// placed in a section and subsection.
var ErrMissingMetadata = errors.New("question metadata unavailable")

// Area kinds.
const (
	KindSubsection = "subsection"
	KindSection    = "section"
)

// Area is one entry of the results summary.
type Area struct {
	Kind    string  `json:"kind"`
	Slug    string  `json:"slug"`
	Name    string  `json:"name"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Score   float64 `json:"score"`
}

// Key returns the summary key, e.g. "subsection:algebra".
func (a Area) Key() string { return a.Kind + ":" + a.Slug }

// Result is the outcome of scoring one attempt. Scores are percentages in
// [0, 100]. A category score is nil when the attempt holds no answers in it.
type Result struct {
	Overall      float64
	Verbal       *float64
	Quantitative *float64

	Answered int
	Declared int

	// Areas are ordered by key.
	Areas []Area
}

// UnderCompleted reports whether fewer answers were recorded than the
// attempt declared.
func (r *Result) UnderCompleted() bool { return r.Answered < r.Declared }

type tally struct {
	correct, total int
}

func (t *tally) add(correct bool) {
	t.total++
	if correct {
		t.correct++
	}
}

func (t tally) percent() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.correct) / float64(t.total) * 100
}

// Score computes the result for answers. declared is the attempt's question
// count; fewer answers than declared is allowed and only the answers present
// are scored.
func Score(answers []store.ScoredAnswer, declared int) (*Result, error) {
	var overall, verbal, quant tally
	areas := make(map[string]*Area)
	counts := make(map[string]*tally)

	bump := func(kind, slug, name string, correct bool) {
		key := kind + ":" + slug
		if _, ok := areas[key]; !ok {
			areas[key] = &Area{Kind: kind, Slug: slug, Name: name}
			counts[key] = &tally{}
		}
		counts[key].add(correct)
	}

	for _, a := range answers {
		if a.SectionSlug == "" || a.SubsectionSlug == "" {
			return nil, fmt.Errorf("score question %s: %w", a.QuestionID, ErrMissingMetadata)
		}
		overall.add(a.IsCorrect)
		switch a.Category {
		case store.CategoryVerbal:
			verbal.add(a.IsCorrect)
		case store.CategoryQuantitative:
			quant.add(a.IsCorrect)
		}
		bump(KindSubsection, a.SubsectionSlug, a.SubsectionName, a.IsCorrect)
		bump(KindSection, a.SectionSlug, a.SectionName, a.IsCorrect)
	}

	r := &Result{
		Overall:  overall.percent(),
		Answered: len(answers),
		Declared: declared,
		Areas:    make([]Area, 0, len(areas)),
	}
	if verbal.total > 0 {
		v := verbal.percent()
		r.Verbal = &v
	}
	if quant.total > 0 {
		q := quant.percent()
		r.Quantitative = &q
	}
	for key, a := range areas {
		c := counts[key]
		a.Correct, a.Total, a.Score = c.correct, c.total, c.percent()
		r.Areas = append(r.Areas, *a)
	}
	sort.Slice(r.Areas, func(i, j int) bool { return r.Areas[i].Key() < r.Areas[j].Key() })
	return r, nil
}

// summaryEntry is the stored shape of one area.
type summaryEntry struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
}

// Summary encodes the areas as a JSON object keyed by Area.Key.
func (r *Result) Summary() ([]byte, error) {
	m := make(map[string]summaryEntry, len(r.Areas))
	for _, a := range r.Areas {
		m[a.Key()] = summaryEntry{Name: a.Name, Score: a.Score, Correct: a.Correct, Total: a.Total}
	}
	return json.Marshal(m)
}

// ParseSummary decodes a stored results summary back into areas ordered by
// key.
func ParseSummary(raw []byte) ([]Area, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]summaryEntry
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode results summary: %w", err)
	}
	areas := make([]Area, 0, len(m))
	for key, e := range m {
		kind, slug, ok := strings.Cut(key, ":")
		if !ok {
			kind, slug = KindSubsection, key
		}
		areas = append(areas, Area{Kind: kind, Slug: slug, Name: e.Name, Correct: e.Correct, Total: e.Total, Score: e.Score})
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].Key() < areas[j].Key() })
	return areas, nil
}

// Scores converts r into the store's score fields.
func (r *Result) Scores() (*store.AttemptScores, error) {
	summary, err := r.Summary()
	if err != nil {
		return nil, fmt.Errorf("encode results summary: %w", err)
	}
	overall := r.Overall
	return &store.AttemptScores{
		Overall:        &overall,
		Verbal:         r.Verbal,
		Quantitative:   r.Quantitative,
		ResultsSummary: summary,
	}, nil
}
