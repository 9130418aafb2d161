package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/abhisek/testprep/internal/store"
	"github.com/abhisek/testprep/internal/validate"
)

// File is the on-disk catalog format. Questions name their skill by slug
// within the enclosing subsection.
type File struct {
	Sections []FileSection `json:"sections"`
}

type FileSection struct {
	ID          string           `json:"id"`
	Slug        string           `json:"slug"`
	Name        string           `json:"name"`
	Category    store.Category   `json:"category"`
	Subsections []FileSubsection `json:"subsections"`
}

type FileSubsection struct {
	ID          string         `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Skills      []store.Skill  `json:"skills"`
	Questions   []FileQuestion `json:"questions"`
}

type FileQuestion struct {
	ID            string   `json:"id"`
	Skill         string   `json:"skill,omitempty"`
	Difficulty    int      `json:"difficulty"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	CorrectChoice string   `json:"correct_choice"`
	Explanation   string   `json:"explanation"`
	Active        *bool    `json:"active,omitempty"`
}

// ImportStats reports how many rows an import wrote.
type ImportStats struct {
	Sections    int
	Subsections int
	Skills      int
	Questions   int
}

// Import validates a catalog file and upserts it in one transaction.
func Import(ctx context.Context, db store.TxRepos, r io.Reader) (ImportStats, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ImportStats{}, fmt.Errorf("read catalog: %w", err)
	}
	if err := validate.JSON(fileSchema, raw); err != nil {
		return ImportStats{}, err
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return ImportStats{}, fmt.Errorf("decode catalog: %w", err)
	}

	var stats ImportStats
	err = db.InTx(ctx, func(repo store.Repos) error {
		stats = ImportStats{}
		for _, sec := range f.Sections {
			category := sec.Category
			if category == "" {
				category = store.CategoryOther
			}
			if err := repo.UpsertSection(ctx, store.Section{ID: sec.ID, Slug: sec.Slug, Name: sec.Name, Category: category}); err != nil {
				return err
			}
			stats.Sections++

			for _, sub := range sec.Subsections {
				if err := repo.UpsertSubsection(ctx, store.Subsection{
					ID: sub.ID, SectionID: sec.ID, Slug: sub.Slug, Name: sub.Name, Description: sub.Description,
				}); err != nil {
					return err
				}
				stats.Subsections++

				skillIDs := make(map[string]string, len(sub.Skills))
				for _, sk := range sub.Skills {
					sk.SubsectionID = sub.ID
					if err := repo.UpsertSkill(ctx, sk); err != nil {
						return err
					}
					skillIDs[sk.Slug] = sk.ID
					stats.Skills++
				}

				for _, fq := range sub.Questions {
					q, err := toQuestion(fq, sub.ID, skillIDs)
					if err != nil {
						return err
					}
					if err := repo.UpsertQuestion(ctx, q); err != nil {
						return err
					}
					stats.Questions++
				}
			}
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, fmt.Errorf("import catalog: %w", err)
	}
	return stats, nil
}

func toQuestion(fq FileQuestion, subsectionID string, skillIDs map[string]string) (store.Question, error) {
	q := store.Question{
		ID:            fq.ID,
		SubsectionID:  subsectionID,
		Difficulty:    fq.Difficulty,
		Prompt:        fq.Prompt,
		Choices:       fq.Choices,
		CorrectChoice: fq.CorrectChoice,
		Explanation:   fq.Explanation,
		Active:        fq.Active == nil || *fq.Active,
	}
	if fq.Skill != "" {
		id, ok := skillIDs[fq.Skill]
		if !ok {
			return store.Question{}, fmt.Errorf("question %s: skill %q is not defined in its subsection", fq.ID, fq.Skill)
		}
		q.SkillID = &id
	}
	return q, nil
}

var idSlugName = map[string]any{
	"id":   map[string]any{"type": "string", "minLength": 1},
	"slug": map[string]any{"type": "string", "minLength": 1},
	"name": map[string]any{"type": "string", "minLength": 1},
}

func withProps(extra map[string]any) map[string]any {
	out := make(map[string]any, len(idSlugName)+len(extra))
	for k, v := range idSlugName {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

var fileSchema = &validate.Schema{
	Name: "catalog-file",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"sections"},
		"properties": map[string]any{
			"sections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"id", "slug", "name"},
					"properties": withProps(map[string]any{
						"category": map[string]any{"type": "string", "enum": []any{"verbal", "quantitative", "other"}},
						"subsections": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type":     "object",
								"required": []any{"id", "slug", "name"},
								"properties": withProps(map[string]any{
									"description": map[string]any{"type": "string"},
									"skills": map[string]any{
										"type": "array",
										"items": map[string]any{
											"type":       "object",
											"required":   []any{"id", "slug", "name"},
											"properties": withProps(nil),
										},
									},
									"questions": map[string]any{
										"type": "array",
										"items": map[string]any{
											"type":     "object",
											"required": []any{"id", "correct_choice"},
											"properties": map[string]any{
												"id":             map[string]any{"type": "string", "minLength": 1},
												"skill":          map[string]any{"type": "string"},
												"difficulty":     map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
												"prompt":         map[string]any{"type": "string"},
												"choices":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
												"correct_choice": map[string]any{"type": "string", "minLength": 1},
												"explanation":    map[string]any{"type": "string"},
												"active":         map[string]any{"type": "boolean"},
											},
										},
									},
								}),
							},
						},
					}),
				},
			},
		},
	},
}
