// Package snapshot defines the configuration snapshot stored with every test
// attempt: the filters and counts the attempt was built from. Retakes rebuild
// their filters from it, so the encoding is versioned and validated on both
// write and read.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/abhisek/testprep/internal/store"
	"github.com/abhisek/testprep/internal/validate"
)

// CurrentVersion is written into every new snapshot. Readers accept any
// version with the same major number.
const CurrentVersion = "v1.0.0"

// ErrUnsupportedVersion is returned by Decode for snapshots written with an
// incompatible major version.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Filters is the selection vocabulary shared by attempts, retakes and
// ad-hoc question fetches.
type Filters struct {
	Subsections     []string `json:"subsections_requested"`
	Skills          []string `json:"skills_requested"`
	StarredOnly     bool     `json:"starred_requested"`
	NotMasteredOnly bool     `json:"not_mastered_requested"`
}

// Config is the typed configuration snapshot.
type Config struct {
	Version  string            `json:"version"`
	TestType store.AttemptType `json:"test_type"`
	Filters

	NumQuestionsRequested int  `json:"num_questions_requested"`
	NumQuestionsSelected  int  `json:"num_questions_selected"`
	LimitApplied          bool `json:"limit_applied"`

	// RetakeOfAttemptID is set on attempts created by a retake.
	RetakeOfAttemptID string `json:"retake_of_attempt_id,omitempty"`
}

// New returns a snapshot at the current version.
func New(t store.AttemptType, f Filters, requested, selected int, limitApplied bool) Config {
	return Config{
		Version:               CurrentVersion,
		TestType:              t,
		Filters:               f,
		NumQuestionsRequested: requested,
		NumQuestionsSelected:  selected,
		LimitApplied:          limitApplied,
	}
}

// ForRetake copies c for a retake of originalID. The requested count and
// filters carry over; the selected count and cap flag are replaced.
func (c Config) ForRetake(originalID string, selected int, limitApplied bool) Config {
	out := c
	out.Version = CurrentVersion
	out.Subsections = append([]string(nil), c.Subsections...)
	out.Skills = append([]string(nil), c.Skills...)
	out.NumQuestionsSelected = selected
	out.LimitApplied = limitApplied
	out.RetakeOfAttemptID = originalID
	return out
}

// Encode validates c and returns its JSON form.
func (c Config) Encode() ([]byte, error) {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Subsections == nil {
		c.Subsections = []string{}
	}
	if c.Skills == nil {
		c.Skills = []string{}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := validate.JSON(configSchema, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Decode parses and validates a stored snapshot. Snapshots written before
// versioning carry no version field and are read as v1.
func Decode(raw []byte) (Config, error) {
	if len(raw) == 0 {
		return Config{}, &validate.ErrInvalidDocument{Schema: configSchema.Name, Err: errors.New("empty snapshot")}
	}
	if err := validate.JSON(configSchema, raw); err != nil {
		return Config{}, err
	}

	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if !semver.IsValid(c.Version) || semver.Major(c.Version) != semver.Major(CurrentVersion) {
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedVersion, c.Version)
	}
	return c, nil
}

var configSchema = &validate.Schema{
	Name: "configuration-snapshot",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"version": map[string]any{"type": "string"},
			"test_type": map[string]any{
				"type": "string",
				"enum": []any{
					string(store.AttemptLevelAssessment),
					string(store.AttemptPractice),
					string(store.AttemptSimulation),
					string(store.AttemptTraditional),
				},
			},
			"subsections_requested":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"skills_requested":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"starred_requested":       map[string]any{"type": "boolean"},
			"not_mastered_requested":  map[string]any{"type": "boolean"},
			"num_questions_requested": map[string]any{"type": "integer", "minimum": 0},
			"num_questions_selected":  map[string]any{"type": "integer", "minimum": 0},
			"limit_applied":           map[string]any{"type": "boolean"},
			"retake_of_attempt_id":    map[string]any{"type": "string"},
		},
		"required": []any{"test_type", "num_questions_requested"},
	},
}
