package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/testprep/internal/proficiency"
	"github.com/abhisek/testprep/internal/ui/theme"
)

var proficiencyCmd = &cobra.Command{
	Use:   "proficiency",
	Short: "Show per-skill proficiency, weakest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			entries, err := proficiency.Report(cmd.Context(), a.store, a.user, a.cfg.ProficiencyThreshold)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No answers recorded yet.")
				return nil
			}

			// Header.
			fmt.Println(theme.Heading.Render(fmt.Sprintf("%-28s  %-24s  %-10s  %8s  %6s  %s",
				"Skill", "Section", "Level", "Attempts", "Score", "")))
			fmt.Println(rule(100))
			for _, e := range entries {
				level := fmt.Sprintf("%-10s", e.Level)
				fmt.Printf("%-28s  %-24s  %s  %8d  %5.0f%%  %s\n",
					e.SkillSlug, e.SectionSlug,
					theme.Level(string(e.Level)).Render(level),
					e.AttemptsCount, e.ProficiencyScore*100,
					theme.ProgressBar(int(e.ProficiencyScore*100), 100, 12))
			}
			fmt.Println()
			fmt.Println(theme.Hint.Render(fmt.Sprintf("Mastery threshold: %.0f%%", a.cfg.ProficiencyThreshold*100)))
			return nil
		})
	},
}
