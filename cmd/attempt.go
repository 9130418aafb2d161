package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/testprep/internal/attempt"
	"github.com/abhisek/testprep/internal/scoring"
	"github.com/abhisek/testprep/internal/store"
	"github.com/abhisek/testprep/internal/ui/theme"
)

var attemptCmd = &cobra.Command{
	Use:   "attempt",
	Short: "Start, answer and finish test attempts",
}

var attemptStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new attempt",
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		count, _ := cmd.Flags().GetInt("count")

		t, err := parseAttemptType(typ)
		if err != nil {
			return err
		}

		return withApp(cmd, func(a *app) error {
			started, err := a.attempts.Start(cmd.Context(), a.user, attempt.StartRequest{
				Type:         t,
				Filters:      filtersFromFlags(cmd),
				NumQuestions: count,
			})
			if err != nil {
				return err
			}
			printStarted(started)
			return nil
		})
	},
}

var attemptAnswerCmd = &cobra.Command{
	Use:   "answer <attempt-id> <question-id> <choice>",
	Short: "Answer a question inside an attempt",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := answerRequestFromFlags(cmd, args[1], args[2])

		return withApp(cmd, func(a *app) error {
			fb, err := a.attempts.Answer(cmd.Context(), a.user, args[0], req)
			if err != nil {
				return err
			}
			printFeedback(fb)
			return nil
		})
	},
}

var attemptCompleteCmd = &cobra.Command{
	Use:   "complete <attempt-id>",
	Short: "Finish an attempt and show its score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			c, err := a.attempts.Complete(cmd.Context(), a.user, args[0])
			if err != nil {
				return err
			}
			printCompletion(c)
			return nil
		})
	},
}

var attemptCancelCmd = &cobra.Command{
	Use:   "cancel <attempt-id>",
	Short: "Abandon a started attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			att, err := a.attempts.Cancel(cmd.Context(), a.user, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Attempt %s abandoned.\n", att.ID)
			return nil
		})
	},
}

var attemptRetakeCmd = &cobra.Command{
	Use:   "retake <attempt-id>",
	Short: "Start a new attempt with the configuration of an earlier one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			started, err := a.attempts.Retake(cmd.Context(), a.user, args[0])
			if err != nil {
				return err
			}
			printStarted(started)
			return nil
		})
	},
}

var attemptShowCmd = &cobra.Command{
	Use:   "show [attempt-id]",
	Short: "Show an attempt, or the active one when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			var (
				att *store.Attempt
				err error
			)
			if len(args) == 1 {
				att, err = a.attempts.Get(cmd.Context(), a.user, args[0])
			} else {
				att, err = a.attempts.Active(cmd.Context(), a.user)
			}
			if err != nil {
				return err
			}
			if att == nil {
				fmt.Println("No active attempt.")
				return nil
			}
			printAttempt(att)

			if att.ResultsSummary.Valid {
				areas, err := scoring.ParseSummary(att.ResultsSummary.JSONText)
				if err != nil {
					return fmt.Errorf("read results summary: %w", err)
				}
				fmt.Println()
				printAreas(areas)
			}
			return nil
		})
	},
}

var attemptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, func(a *app) error {
			list, err := a.attempts.List(cmd.Context(), a.user, limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No attempts yet.")
				return nil
			}

			// Header.
			fmt.Println(theme.Heading.Render(fmt.Sprintf("%-36s  %-16s  %-9s  %5s  %6s  %s",
				"ID", "Type", "Status", "Items", "Score", "Started")))
			fmt.Println(rule(100))
			for _, att := range list {
				fmt.Printf("%-36s  %-16s  %-9s  %5d  %6s  %s\n",
					att.ID, att.Type, att.Status, len(att.QuestionIDs),
					formatScore(att.OverallScore), formatTime(&att.StartedAt))
			}
			return nil
		})
	},
}

var attemptQuestionsCmd = &cobra.Command{
	Use:   "questions <attempt-id>",
	Short: "Print the questions of an attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			items, err := a.attempts.Questions(cmd.Context(), a.user, args[0])
			if err != nil {
				return err
			}
			printItems(items)
			return nil
		})
	},
}

func parseAttemptType(s string) (store.AttemptType, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "level_assessment", "assessment", "la":
		return store.AttemptLevelAssessment, nil
	case "practice":
		return store.AttemptPractice, nil
	case "simulation", "sim":
		return store.AttemptSimulation, nil
	case "traditional":
		return store.AttemptTraditional, nil
	}
	return "", fmt.Errorf("unknown attempt type %q (want level_assessment, practice, simulation or traditional)", s)
}

func answerRequestFromFlags(cmd *cobra.Command, questionID, choice string) attempt.AnswerRequest {
	elapsed, _ := cmd.Flags().GetDuration("elapsed")
	hint, _ := cmd.Flags().GetBool("hint")
	eliminate, _ := cmd.Flags().GetBool("eliminate")
	return attempt.AnswerRequest{
		QuestionID:      questionID,
		Choice:          choice,
		Elapsed:         elapsed,
		HintUsed:        hint,
		EliminationUsed: eliminate,
	}
}

func addAnswerFlags(c *cobra.Command) {
	c.Flags().Duration("elapsed", 0, "Time spent on the question, e.g. 45s")
	c.Flags().Bool("hint", false, "A hint was used")
	c.Flags().Bool("eliminate", false, "Answer elimination was used")
}

func printStarted(s *attempt.Started) {
	fmt.Println(theme.Title.Render(fmt.Sprintf("%s attempt #%d", s.Attempt.Type, s.Sequence)))
	printAttempt(s.Attempt)
	if s.Snapshot.LimitApplied {
		fmt.Println(theme.Caution.Render(fmt.Sprintf(
			"Your plan limits attempts to %d questions.", s.Snapshot.NumQuestionsSelected)))
	}
	if s.Snapshot.RetakeOfAttemptID != "" {
		fmt.Println(theme.Hint.Render("Retake of " + s.Snapshot.RetakeOfAttemptID))
	}
}

func printFeedback(fb *attempt.Feedback) {
	if !fb.Revealed {
		fmt.Printf("Answer to %s recorded.\n", fb.QuestionID)
		return
	}
	fmt.Println(theme.Verdict(*fb.Correct))
	if !*fb.Correct {
		fmt.Printf("%s %s\n", theme.Label.Render("Correct answer:"), fb.CorrectChoice)
	}
	if fb.Explanation != "" {
		fmt.Println(theme.Hint.Render(fb.Explanation))
	}
	if fb.Proficiency != nil {
		fmt.Printf("%s %.0f%%\n", theme.Label.Render("Skill proficiency:"), fb.Proficiency.ProficiencyScore*100)
	}
}

func printCompletion(c *attempt.Completion) {
	fmt.Println(theme.Title.Render("Attempt completed"))
	if c.Result != nil {
		fmt.Printf("%s %s  %s\n",
			theme.Label.Render("Overall:"),
			theme.Highlight.Render(fmt.Sprintf("%.0f%%", c.Result.Overall)),
			theme.ProgressBar(c.Result.Answered, c.Result.Declared, 20))
		fmt.Printf("%s %s  %s %s\n",
			theme.Label.Render("Verbal:"), formatScore(c.Result.Verbal),
			theme.Label.Render("Quantitative:"), formatScore(c.Result.Quantitative))
		if c.Result.UnderCompleted() {
			fmt.Println(theme.Caution.Render(fmt.Sprintf("Answered %d of %d questions.",
				c.Result.Answered, c.Result.Declared)))
		}
		if len(c.Result.Areas) > 0 {
			fmt.Println()
			printAreas(c.Result.Areas)
		}
	}
	fmt.Println()
	fmt.Println(theme.Card.Render(c.Message))
}

func printAreas(areas []scoring.Area) {
	fmt.Println(theme.Heading.Render(fmt.Sprintf("%-11s  %-32s  %7s  %6s", "Kind", "Area", "Correct", "Score")))
	fmt.Println(rule(64))
	for _, ar := range areas {
		score := fmt.Sprintf("%5.0f%%", ar.Score)
		if ar.Score < scoring.WeakAreaThreshold {
			score = theme.Incorrect.Render(score)
		}
		fmt.Printf("%-11s  %-32s  %3d/%-3d  %s\n",
			ar.Kind, truncate(ar.Name, 32), ar.Correct, ar.Total, score)
	}
}

func init() {
	attemptStartCmd.Flags().String("type", "practice", "Attempt type: level_assessment, practice, simulation, traditional")
	attemptStartCmd.Flags().Int("count", 10, "Number of questions (0 allowed for traditional)")
	addFilterFlags(attemptStartCmd)

	addAnswerFlags(attemptAnswerCmd)

	attemptListCmd.Flags().Int("limit", 0, "Maximum attempts to list (0 uses the default)")

	attemptCmd.AddCommand(attemptStartCmd)
	attemptCmd.AddCommand(attemptAnswerCmd)
	attemptCmd.AddCommand(attemptCompleteCmd)
	attemptCmd.AddCommand(attemptCancelCmd)
	attemptCmd.AddCommand(attemptRetakeCmd)
	attemptCmd.AddCommand(attemptShowCmd)
	attemptCmd.AddCommand(attemptListCmd)
	attemptCmd.AddCommand(attemptQuestionsCmd)
}
