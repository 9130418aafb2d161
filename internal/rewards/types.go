// Package rewards keeps the points, streak and badge ledger. It listens to
// engine events; every profile mutation happens under the profile row lock.
package rewards

// Kind identifies a ledger entry.
type Kind string

const (
	KindCorrectAnswer  Kind = "correct_answer"
	KindCompletion     Kind = "attempt_completed"
	KindHighScoreBonus Kind = "high_score_bonus"
	KindBadge          Kind = "badge"
	KindAdjustment     Kind = "adjustment"
)

// Point values.
const (
	PointsCorrectAnswer  = 1
	PointsCompletion     = 10
	PointsHighScoreBonus = 5

	// HighScoreBonusAt is the overall percentage that earns the bonus.
	HighScoreBonusAt = 90.0
)

// Badge names. A badge is awarded at most once per learner.
type Badge string

const (
	BadgeFirstAttempt Badge = "first_attempt"
	BadgePerfectScore Badge = "perfect_score"
	BadgeTenAttempts  Badge = "ten_attempts"
)

// DisplayName returns a human-readable label for the badge.
func (b Badge) DisplayName() string {
	switch b {
	case BadgeFirstAttempt:
		return "First Steps"
	case BadgePerfectScore:
		return "Flawless"
	case BadgeTenAttempts:
		return "Dedicated"
	default:
		return string(b)
	}
}

// grant is one candidate ledger entry. Entries are unique per
// (learner, kind, ref), so replays are no-ops.
type grant struct {
	kind   Kind
	points int
	reason string
	ref    string
}
