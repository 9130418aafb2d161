package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/testprep/internal/attempt"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Fetch and answer questions outside an attempt",
}

var questionsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a random set of questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, func(a *app) error {
			items, err := a.attempts.FetchQuestions(cmd.Context(), a.user, attempt.FetchRequest{
				Filters: filtersFromFlags(cmd),
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			printItems(items)
			return nil
		})
	},
}

var questionsAnswerCmd = &cobra.Command{
	Use:   "answer <question-id> <choice>",
	Short: "Answer a question outside an attempt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := answerRequestFromFlags(cmd, args[0], args[1])

		return withApp(cmd, func(a *app) error {
			fb, err := a.attempts.AnswerUnbound(cmd.Context(), a.user, req)
			if err != nil {
				return err
			}
			printFeedback(fb)
			return nil
		})
	},
}

var questionsStarCmd = &cobra.Command{
	Use:   "star <question-id>",
	Short: "Star a question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			if err := a.attempts.Star(cmd.Context(), a.user, args[0]); err != nil {
				return err
			}
			fmt.Printf("Starred %s.\n", args[0])
			return nil
		})
	},
}

var questionsUnstarCmd = &cobra.Command{
	Use:   "unstar <question-id>",
	Short: "Remove a star",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			return a.attempts.Unstar(cmd.Context(), a.user, args[0])
		})
	},
}

func init() {
	questionsFetchCmd.Flags().Int("limit", 5, "Number of questions")
	addFilterFlags(questionsFetchCmd)

	addAnswerFlags(questionsAnswerCmd)

	questionsCmd.AddCommand(questionsFetchCmd)
	questionsCmd.AddCommand(questionsAnswerCmd)
	questionsCmd.AddCommand(questionsStarCmd)
	questionsCmd.AddCommand(questionsUnstarCmd)
}
