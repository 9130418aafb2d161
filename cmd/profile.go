package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/testprep/internal/ui/theme"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change the learner profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			p, err := a.store.GetProfile(cmd.Context(), a.user)
			if err != nil {
				return err
			}
			tier, err := a.limiter.TierFor(cmd.Context(), a.user)
			if err != nil {
				return err
			}

			fmt.Println(theme.Title.Render(a.user))
			fmt.Printf("%s  %s\n", theme.Label.Render("Tier:  "), tier.Name)
			if p == nil {
				fmt.Println(theme.Hint.Render("No activity yet."))
				return nil
			}
			fmt.Printf("%s  %s\n", theme.Label.Render("Points:"), theme.Highlight.Render(fmt.Sprint(p.Points)))
			fmt.Printf("%s  %d day(s)\n", theme.Label.Render("Streak:"), p.StreakDays)
			if p.LevelDetermined {
				fmt.Printf("%s  verbal %s, quantitative %s\n", theme.Label.Render("Level: "),
					formatScore(p.VerbalLevel), formatScore(p.QuantitativeLevel))
			} else {
				fmt.Println(theme.Hint.Render("Take a level assessment to determine your level."))
			}

			badges, err := a.rewards.Badges(cmd.Context(), a.user)
			if err != nil {
				return err
			}
			if len(badges) > 0 {
				fmt.Println()
				fmt.Println(theme.Heading.Render("Badges"))
				for _, b := range badges {
					fmt.Println("  ★ " + b.DisplayName())
				}
			}
			return nil
		})
	},
}

var profileSetTierCmd = &cobra.Command{
	Use:   "set-tier <tier>",
	Short: "Change the learner's plan tier (free, basic, premium)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			if err := a.limiter.SetTier(cmd.Context(), a.store, a.user, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s is now on the %s tier.\n", a.user, args[0])
			return nil
		})
	},
}

var profileAwardCmd = &cobra.Command{
	Use:   "award <points>",
	Short: "Add or remove points by hand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var points int
		if _, err := fmt.Sscan(args[0], &points); err != nil {
			return fmt.Errorf("invalid points %q: %w", args[0], err)
		}
		reason, _ := cmd.Flags().GetString("reason")
		ref, _ := cmd.Flags().GetString("ref")

		return withApp(cmd, func(a *app) error {
			if err := a.rewards.AwardPoints(cmd.Context(), a.user, points, reason, ref); err != nil {
				return err
			}
			fmt.Printf("Awarded %d points to %s.\n", points, a.user)
			return nil
		})
	},
}

func init() {
	profileAwardCmd.Flags().String("reason", "manual adjustment", "Reason recorded in the ledger")
	profileAwardCmd.Flags().String("ref", "", "Idempotency key; repeating a ref is a no-op")

	profileCmd.AddCommand(profileSetTierCmd)
	profileCmd.AddCommand(profileAwardCmd)
}
