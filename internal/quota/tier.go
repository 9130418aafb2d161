package quota

import "github.com/abhisek/testprep/internal/store"

// Tier is the set of limits attached to an account plan.
type Tier struct {
	Name         string
	AllowedTypes []store.AttemptType

	// MaxQuestionsPerAttempt caps the question count of one attempt.
	// 0 means unlimited.
	MaxQuestionsPerAttempt int

	// AttemptsPerDay caps attempts started per UTC day. 0 means unlimited.
	AttemptsPerDay int
}

// Allows reports whether the tier permits attempt type t.
func (t Tier) Allows(at store.AttemptType) bool {
	for _, a := range t.AllowedTypes {
		if a == at {
			return true
		}
	}
	return false
}

// Tier names.
const (
	TierFree    = "free"
	TierBasic   = "basic"
	TierPremium = "premium"
)

// DefaultTiers returns the built-in plan table.
func DefaultTiers() map[string]Tier {
	return map[string]Tier{
		TierFree: {
			Name:                   TierFree,
			AllowedTypes:           []store.AttemptType{store.AttemptLevelAssessment, store.AttemptPractice, store.AttemptTraditional},
			MaxQuestionsPerAttempt: 10,
			AttemptsPerDay:         3,
		},
		TierBasic: {
			Name:                   TierBasic,
			AllowedTypes:           store.AllAttemptTypes(),
			MaxQuestionsPerAttempt: 25,
			AttemptsPerDay:         10,
		},
		TierPremium: {
			Name:         TierPremium,
			AllowedTypes: store.AllAttemptTypes(),
		},
	}
}

// Clamp lowers requested to limit when limit is positive and exceeded. It
// reports whether clamping happened.
func Clamp(requested, limit int) (int, bool) {
	if limit > 0 && requested > limit {
		return limit, true
	}
	return requested, false
}
