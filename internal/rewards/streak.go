package rewards

import "time"

const dayLayout = "2006-01-02"

// NextStreak returns the streak length after activity on day, given the
// previous streak and the last active day ("" when never active). Activity
// on the same day leaves the streak unchanged, the following day extends it
// and any gap restarts it at 1.
func NextStreak(streak int, lastActive string, day time.Time) int {
	today := day.UTC().Format(dayLayout)
	if lastActive == today && streak > 0 {
		return streak
	}
	last, err := time.Parse(dayLayout, lastActive)
	if err != nil {
		return 1
	}
	if last.AddDate(0, 0, 1).Format(dayLayout) == today {
		return streak + 1
	}
	return 1
}
