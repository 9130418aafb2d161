package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/testprep/internal/apperr"
	"github.com/abhisek/testprep/internal/emergency"
	"github.com/abhisek/testprep/internal/ui/theme"
)

var emergencyCmd = &cobra.Command{
	Use:   "emergency",
	Short: "Short-notice study sessions focused on weak skills",
}

var emergencyStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Generate a study plan and open a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		focus, _ := cmd.Flags().GetStringSlice("focus")

		req := emergency.StartRequest{Reason: reason, FocusSections: focus}
		if cmd.Flags().Changed("hours") {
			hours, _ := cmd.Flags().GetFloat64("hours")
			req.AvailableHours = &hours
		}

		return withApp(cmd, func(a *app) error {
			sess, err := a.emergency.Start(cmd.Context(), a.user, req)
			if err != nil {
				return err
			}
			printSession(sess, 0)
			return nil
		})
	},
}

var emergencyNextCmd = &cobra.Command{
	Use:   "next [session-id]",
	Short: "Fetch the next questions of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, func(a *app) error {
			id, err := sessionID(cmd, a, args)
			if err != nil {
				return err
			}
			items, err := a.emergency.NextQuestions(cmd.Context(), a.user, id, limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("You have worked through every recommended question. End the session when ready.")
				return nil
			}
			printItems(items)
			return nil
		})
	},
}

var emergencyAnswerCmd = &cobra.Command{
	Use:   "answer <question-id> <choice>",
	Short: "Answer a question in the active session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		elapsed, _ := cmd.Flags().GetDuration("elapsed")

		return withApp(cmd, func(a *app) error {
			id, err := sessionID(cmd, a, nil)
			if err != nil {
				return err
			}
			res, err := a.emergency.Answer(cmd.Context(), a.user, id, emergency.AnswerRequest{
				QuestionID: args[0],
				Choice:     args[1],
				Elapsed:    elapsed,
			})
			if err != nil {
				return err
			}

			fmt.Println(theme.Verdict(res.Correct))
			if !res.Correct {
				fmt.Printf("%s %s\n", theme.Label.Render("Correct answer:"), res.CorrectChoice)
			}
			if res.Explanation != "" {
				fmt.Println(theme.Hint.Render(res.Explanation))
			}
			fmt.Printf("%s %d/%d\n", theme.ProgressBar(res.Answered, res.Recommended, 20), res.Answered, res.Recommended)
			return nil
		})
	},
}

var emergencyEndCmd = &cobra.Command{
	Use:   "end [session-id]",
	Short: "End a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			id, err := sessionID(cmd, a, args)
			if err != nil {
				return err
			}
			sess, err := a.emergency.End(cmd.Context(), a.user, id)
			if err != nil {
				return err
			}
			fmt.Printf("Emergency session %s ended.\n", sess.ID)
			return nil
		})
	},
}

var emergencyShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show a session and its plan",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			id, err := sessionID(cmd, a, args)
			if err != nil {
				return err
			}
			sess, err := a.emergency.Get(cmd.Context(), a.user, id)
			if err != nil {
				return err
			}
			answered, err := a.store.SessionQuestionIDs(cmd.Context(), sess.ID)
			if err != nil {
				return err
			}
			printSession(sess, len(answered))
			return nil
		})
	},
}

// sessionID returns the id given on the command line, or the learner's
// active session.
func sessionID(cmd *cobra.Command, a *app, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	sess, err := a.emergency.Active(cmd.Context(), a.user)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", apperr.Validationf("no active emergency session; start one with `testprep emergency start`")
	}
	return sess.ID, nil
}

func printSession(sess *emergency.Session, answered int) {
	status := theme.Correct.Render("active")
	if !sess.Active() {
		status = theme.Label.Render("ended")
	}
	fmt.Println(theme.Title.Render("Emergency plan") + "  " + status)
	fmt.Printf("%s  %s\n", theme.Label.Render("Session:"), sess.ID)
	fmt.Printf("%s  %s\n", theme.Label.Render("Reason: "), sess.Reason)
	if sess.AvailableHours != nil {
		fmt.Printf("%s  %.1f\n", theme.Label.Render("Hours:  "), *sess.AvailableHours)
	}
	fmt.Printf("%s  %s %d/%d\n", theme.Label.Render("Practice:"),
		theme.ProgressBar(answered, sess.Plan.RecommendedQuestions, 20), answered, sess.Plan.RecommendedQuestions)

	fmt.Println()
	fmt.Println(theme.Heading.Render(fmt.Sprintf("%-28s  %-32s  %-9s  %s", "Skill", "Name", "Why", "Score")))
	fmt.Println(rule(84))
	for _, t := range sess.Plan.TargetSkills {
		score := "-"
		if t.Score != nil {
			score = fmt.Sprintf("%.0f%%", *t.Score*100)
		}
		fmt.Printf("%-28s  %-32s  %-9s  %s\n", t.Slug, truncate(t.Name, 32), t.Reason, score)
	}

	if len(sess.Plan.QuickReview) > 0 {
		fmt.Println()
		fmt.Println(theme.Heading.Render("Quick review"))
		for _, r := range sess.Plan.QuickReview {
			fmt.Printf("  %s  %s\n", theme.Highlight.Render(r.Name), theme.Hint.Render(r.Description))
		}
	}

	if len(sess.Plan.Tips) > 0 {
		fmt.Println()
		fmt.Println(theme.Heading.Render("Tips"))
		for _, tip := range sess.Plan.Tips {
			fmt.Println("  • " + tip)
		}
	}
}

func init() {
	emergencyStartCmd.Flags().String("reason", "", "Why you need a crash session, e.g. \"exam tomorrow\"")
	emergencyStartCmd.Flags().Float64("hours", 0, "Hours available to study")
	emergencyStartCmd.Flags().StringSlice("focus", nil, "Restrict to section slugs (repeatable)")

	emergencyNextCmd.Flags().Int("limit", 5, "Maximum questions to fetch")

	emergencyAnswerCmd.Flags().Duration("elapsed", 0, "Time spent on the question, e.g. 45s")

	emergencyCmd.AddCommand(emergencyStartCmd)
	emergencyCmd.AddCommand(emergencyNextCmd)
	emergencyCmd.AddCommand(emergencyAnswerCmd)
	emergencyCmd.AddCommand(emergencyEndCmd)
	emergencyCmd.AddCommand(emergencyShowCmd)
}
