package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "testprep",
	Short: "Adaptive test preparation engine",
	Long: "testprep runs practice tests, level assessments and emergency study sessions " +
		"against a local question catalog, tracking per-skill proficiency as you go.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database path or DSN (overrides TESTPREP_DB env var)")
	rootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite or postgres (overrides TESTPREP_DB_DRIVER)")
	rootCmd.PersistentFlags().String("user", "", "Learner id to act for (overrides TESTPREP_USER)")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(attemptCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(emergencyCmd)
	rootCmd.AddCommand(proficiencyCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(versionCmd)
}
