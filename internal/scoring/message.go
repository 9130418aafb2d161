package scoring

import "fmt"

// Weakest returns the lowest-scoring area, preferring subsections over
// sections on a tie. ok is false when there are no areas.
func Weakest(areas []Area) (Area, bool) {
	if len(areas) == 0 {
		return Area{}, false
	}
	best := areas[0]
	for _, a := range areas[1:] {
		if a.Score < best.Score || (a.Score == best.Score && a.Kind == KindSubsection && best.Kind != KindSubsection) {
			best = a
		}
	}
	return best, true
}

// Message returns the short feedback shown after completion.
func Message(r *Result) string {
	if weak, ok := Weakest(r.Areas); ok && weak.Score < WeakAreaThreshold {
		name := weak.Name
		if name == "" {
			name = weak.Slug
		}
		return fmt.Sprintf("You scored %.0f%% in %s. Focus your next practice session there.", weak.Score, name)
	}
	if r.Overall >= HighScoreThreshold {
		return fmt.Sprintf("Excellent work! You scored %.0f%% overall.", r.Overall)
	}
	return fmt.Sprintf("You scored %.0f%% overall. Keep practicing to build consistency.", r.Overall)
}
