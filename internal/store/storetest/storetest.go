// Package storetest opens throwaway in-memory stores and seeds them with a
// small fixed catalog for tests in other packages.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/testprep/internal/store"
)

// Fixture catalog sizes.
const (
	ActiveQuestions  = 20
	AlgebraQuestions = 3 // active questions in the algebra subsection
	UntaggedVocab    = 2 // vocabulary questions without a skill
	CorrectChoice    = "A"
	WrongChoice      = "B"
)

// Open returns a fresh in-memory SQLite store private to t.
func Open(t testing.TB) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	s, err := store.Open(context.Background(), store.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type skillSpec struct {
	slug      string
	name      string
	questions int
}

type subsectionSpec struct {
	section     string
	slug        string
	name        string
	description string
	skills      []skillSpec
	untagged    int
}

var sections = []store.Section{
	{ID: "sec-verbal", Slug: "verbal", Name: "Verbal Reasoning", Category: store.CategoryVerbal},
	{ID: "sec-quant", Slug: "quant", Name: "Quantitative Reasoning", Category: store.CategoryQuantitative},
}

var subsections = []subsectionSpec{
	{section: "sec-verbal", slug: "reading", name: "Reading Comprehension", description: "Main idea and inference",
		skills: []skillSpec{{"main-idea", "Main Idea", 3}, {"inference", "Inference", 3}}},
	{section: "sec-verbal", slug: "vocabulary", name: "Vocabulary",
		skills: []skillSpec{{"synonyms", "Synonyms", 3}}, untagged: UntaggedVocab},
	{section: "sec-quant", slug: "algebra", name: "Algebra", description: "Linear equations",
		skills: []skillSpec{{"linear-equations", "Linear Equations", 3}}},
	{section: "sec-quant", slug: "geometry", name: "Geometry", description: "Angles and triangles",
		skills: []skillSpec{{"triangles", "Triangles", 3}, {"circles", "Circles", 3}}},
}

// SkillSlugs lists every fixture skill.
var SkillSlugs = []string{"main-idea", "inference", "synonyms", "linear-equations", "triangles", "circles"}

// SkillID returns the fixture id for a skill slug.
func SkillID(slug string) string { return "sk-" + slug }

// QuestionID returns the id of the n-th (1-based) fixture question of a skill.
func QuestionID(skillSlug string, n int) string { return fmt.Sprintf("q-%s-%d", skillSlug, n) }

// QuestionIDs returns every active question id of a skill.
func QuestionIDs(skillSlug string) []string {
	var ids []string
	for _, ss := range subsections {
		for _, sk := range ss.skills {
			if sk.slug == skillSlug {
				for i := 1; i <= sk.questions; i++ {
					ids = append(ids, QuestionID(sk.slug, i))
				}
			}
		}
	}
	return ids
}

// SeedCatalog writes the fixture catalog: two sections, four subsections,
// six skills, twenty active questions and one inactive algebra question.
func SeedCatalog(t testing.TB, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	err := s.InTx(ctx, func(r store.Repos) error {
		for _, sec := range sections {
			if err := r.UpsertSection(ctx, sec); err != nil {
				return err
			}
		}
		for _, ss := range subsections {
			subID := "sub-" + ss.slug
			err := r.UpsertSubsection(ctx, store.Subsection{
				ID: subID, SectionID: ss.section, Slug: ss.slug, Name: ss.name, Description: ss.description,
			})
			if err != nil {
				return err
			}
			for _, sk := range ss.skills {
				skillID := SkillID(sk.slug)
				if err := r.UpsertSkill(ctx, store.Skill{ID: skillID, SubsectionID: subID, Slug: sk.slug, Name: sk.name}); err != nil {
					return err
				}
				for i := 1; i <= sk.questions; i++ {
					if err := r.UpsertQuestion(ctx, question(QuestionID(sk.slug, i), subID, &skillID, true)); err != nil {
						return err
					}
				}
			}
			for i := 1; i <= ss.untagged; i++ {
				if err := r.UpsertQuestion(ctx, question(fmt.Sprintf("q-%s-untagged-%d", ss.slug, i), subID, nil, true)); err != nil {
					return err
				}
			}
		}
		inactiveSkill := SkillID("linear-equations")
		return r.UpsertQuestion(ctx, question("q-linear-equations-inactive", "sub-algebra", &inactiveSkill, false))
	})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
}

// SetProficiency writes a proficiency row directly.
func SetProficiency(t testing.TB, s *store.Store, userID, skillSlug string, attempts int, score float64) {
	t.Helper()
	err := s.SaveProficiency(context.Background(), &store.SkillProficiency{
		UserID:           userID,
		SkillID:          SkillID(skillSlug),
		AttemptsCount:    attempts,
		CorrectCount:     int(float64(attempts) * score),
		ProficiencyScore: score,
		UpdatedAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("set proficiency: %v", err)
	}
}

func question(id, subsectionID string, skillID *string, active bool) store.Question {
	return store.Question{
		ID:            id,
		SubsectionID:  subsectionID,
		SkillID:       skillID,
		Difficulty:    2,
		Prompt:        "Prompt for " + id,
		Choices:       store.StringList{"A", "B", "C", "D"},
		CorrectChoice: CorrectChoice,
		Explanation:   "Explanation for " + id,
		Active:        active,
	}
}
