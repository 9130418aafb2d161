// Package catalog is the read-only view of the content catalog (sections,
// subsections, skills and questions) plus the file importer that fills it.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/store"
)

// Pool resolves catalog lookups for the engine.
type Pool struct {
	repo store.CatalogRepo
}

// NewPool returns a Pool reading from repo.
func NewPool(repo store.CatalogRepo) *Pool {
	return &Pool{repo: repo}
}

// Question returns one question with its placement. Unknown ids yield an
// apperr.NotFoundError.
func (p *Pool) Question(ctx context.Context, id string) (*store.QuestionDetail, error) {
	d, err := p.repo.QuestionDetail(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("question", id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Questions returns the questions for ids in the order given. Ids that do
// not resolve are skipped.
func (p *Pool) Questions(ctx context.Context, ids []string) ([]store.QuestionDetail, error) {
	rows, err := p.repo.QuestionDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.QuestionDetail, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]store.QuestionDetail, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// Sections returns every section ordered by slug.
func (p *Pool) Sections(ctx context.Context) ([]store.Section, error) {
	return p.repo.ListSections(ctx)
}

// Skills returns skills ordered by slug, optionally restricted to sections.
func (p *Pool) Skills(ctx context.Context, sectionSlugs []string) ([]store.SkillDetail, error) {
	return p.repo.ListSkills(ctx, sectionSlugs)
}

// Subsections returns the subsections with the given ids, ordered by slug.
func (p *Pool) Subsections(ctx context.Context, ids []string) ([]store.Subsection, error) {
	return p.repo.SubsectionsByID(ctx, ids)
}

// Summary counts catalog entries per section for display.
type Summary struct {
	Section store.Section
	Skills  int
}

// Summarize returns one Summary per section.
func (p *Pool) Summarize(ctx context.Context) ([]Summary, error) {
	sections, err := p.repo.ListSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	out := make([]Summary, 0, len(sections))
	for _, sec := range sections {
		skills, err := p.repo.ListSkills(ctx, []string{sec.Slug})
		if err != nil {
			return nil, fmt.Errorf("list skills: %w", err)
		}
		out = append(out, Summary{Section: sec, Skills: len(skills)})
	}
	return out, nil
}
