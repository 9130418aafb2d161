package proficiency

import (
	"time"

	"github.com/abhisek/testprep/internal/store"
)

const (
	// MinLearningRate is the floor on the weight given to the newest answer.
	// For the first 1/MinLearningRate answers the score is plain running
	// accuracy; after that it is an exponentially weighted average.
	MinLearningRate = 0.1
)

// Apply records one answer on p: the attempt counters always move, the
// correct counter only on a correct answer, and the score moves toward the
// outcome by max(1/n, MinLearningRate).
func Apply(p *store.SkillProficiency, correct bool, now time.Time) {
	p.AttemptsCount++
	outcome := 0.0
	if correct {
		p.CorrectCount++
		outcome = 1.0
	}

	rate := max(1/float64(p.AttemptsCount), MinLearningRate)
	p.ProficiencyScore = clamp(p.ProficiencyScore+rate*(outcome-p.ProficiencyScore), 0, 1)
	p.UpdatedAt = now
}

// Accuracy returns the lifetime fraction of correct answers.
func Accuracy(p store.SkillProficiency) float64 {
	if p.AttemptsCount == 0 {
		return 0
	}
	return float64(p.CorrectCount) / float64(p.AttemptsCount)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Level is a coarse display label for a proficiency score.
type Level string

const (
	LevelUntested   Level = "untested"
	LevelWeak       Level = "weak"
	LevelDeveloping Level = "developing"
	LevelStrong     Level = "strong"
)

// developingBand is how far below the mastery threshold a score may sit and
// still count as developing.
const developingBand = 0.2

// LevelFor labels p relative to the mastery threshold.
func LevelFor(p store.SkillProficiency, threshold float64) Level {
	switch {
	case p.AttemptsCount == 0:
		return LevelUntested
	case p.ProficiencyScore >= threshold:
		return LevelStrong
	case p.ProficiencyScore >= threshold-developingBand:
		return LevelDeveloping
	default:
		return LevelWeak
	}
}
