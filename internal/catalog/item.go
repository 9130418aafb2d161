package catalog

import (
	"context"
	"strings"

	"github.com/abhisek/testprep/internal/store"
)

// Item is a question as shown to a learner, without the answer key.
type Item struct {
	ID             string   `json:"id"`
	SectionSlug    string   `json:"section"`
	SubsectionSlug string   `json:"subsection"`
	SkillSlug      string   `json:"skill,omitempty"`
	Difficulty     int      `json:"difficulty"`
	Prompt         string   `json:"prompt"`
	Choices        []string `json:"choices"`
}

// ItemFor strips the answer key from d.
func ItemFor(d store.QuestionDetail) Item {
	it := Item{
		ID:             d.ID,
		SectionSlug:    d.SectionSlug,
		SubsectionSlug: d.SubsectionSlug,
		Difficulty:     d.Difficulty,
		Prompt:         d.Prompt,
		Choices:        d.Choices,
	}
	if d.SkillSlug != nil {
		it.SkillSlug = *d.SkillSlug
	}
	return it
}

// Items returns the learner view of the questions for ids, in order.
func (p *Pool) Items(ctx context.Context, ids []string) ([]Item, error) {
	details, err := p.Questions(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(details))
	for _, d := range details {
		out = append(out, ItemFor(d))
	}
	return out, nil
}

// NormalizeChoice canonicalizes a submitted choice label.
func NormalizeChoice(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// Grade reports whether choice is the correct answer to q.
func Grade(q *store.Question, choice string) bool {
	return NormalizeChoice(choice) == NormalizeChoice(q.CorrectChoice)
}
