package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/testprep/internal/catalog"
	"github.com/abhisek/testprep/internal/snapshot"
	"github.com/abhisek/testprep/internal/store"
	"github.com/abhisek/testprep/internal/ui/theme"
)

const ruleWidth = 80

func rule(width int) string {
	return strings.Repeat("─", width)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", *v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// addFilterFlags registers the selection filter flags shared by attempt
// start and question fetch.
func addFilterFlags(c *cobra.Command) {
	c.Flags().StringSlice("subsection", nil, "Restrict to subsection slugs (repeatable)")
	c.Flags().StringSlice("skill", nil, "Restrict to skill slugs (repeatable)")
	c.Flags().Bool("starred", false, "Only starred questions")
	c.Flags().Bool("not-mastered", false, "Only questions on skills below the mastery threshold")
}

func filtersFromFlags(c *cobra.Command) snapshot.Filters {
	subsections, _ := c.Flags().GetStringSlice("subsection")
	skills, _ := c.Flags().GetStringSlice("skill")
	starred, _ := c.Flags().GetBool("starred")
	notMastered, _ := c.Flags().GetBool("not-mastered")
	return snapshot.Filters{
		Subsections:     subsections,
		Skills:          skills,
		StarredOnly:     starred,
		NotMasteredOnly: notMastered,
	}
}

func printItems(items []catalog.Item) {
	if len(items) == 0 {
		fmt.Println("No questions.")
		return
	}
	for i, it := range items {
		header := fmt.Sprintf("%d. %s", i+1, it.ID)
		fmt.Println(theme.Heading.Render(header) + "  " +
			theme.Label.Render(fmt.Sprintf("%s / %s  difficulty %d", it.SectionSlug, it.SubsectionSlug, it.Difficulty)))
		fmt.Println(it.Prompt)
		for j, c := range it.Choices {
			fmt.Printf("   %c) %s\n", 'A'+rune(j), c)
		}
		fmt.Println()
	}
}

func printAttempt(a *store.Attempt) {
	fmt.Printf("%s  %s\n", theme.Label.Render("Attempt:"), a.ID)
	fmt.Printf("%s  %s\n", theme.Label.Render("Type:   "), a.Type)
	fmt.Printf("%s  %s\n", theme.Label.Render("Status: "), a.Status)
	fmt.Printf("%s  %d\n", theme.Label.Render("Items:  "), len(a.QuestionIDs))
	fmt.Printf("%s  %s\n", theme.Label.Render("Started:"), formatTime(&a.StartedAt))
	if a.EndedAt != nil {
		fmt.Printf("%s  %s\n", theme.Label.Render("Ended:  "), formatTime(a.EndedAt))
	}
	if a.Status == store.StatusCompleted && a.OverallScore != nil {
		fmt.Printf("%s  %s (verbal %s, quantitative %s)\n",
			theme.Label.Render("Score:  "),
			theme.Highlight.Render(formatScore(a.OverallScore)),
			formatScore(a.VerbalScore), formatScore(a.QuantitativeScore))
	}
}
