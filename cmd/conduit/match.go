package main

import (
	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/cli"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <text>",
	Short: "Match text against utterance patterns",
	Long: `Matches text against patterns such as "fly to @city" and prints the matches and any
pattern that could not be used, as JSON. Slot values are a JSON object of lists.`,
	Example: `  conduit match "I want to fly to Rome" -p "fly to @city" --slots '{"city": ["Rome", "Paris"]}'`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns, _ := cmd.Flags().GetStringArray("pattern")
		caseSensitive, _ := cmd.Flags().GetBool("case-sensitive")

		req := conduit.MatchRequest{Text: args[0], Patterns: patterns, CaseSensitive: caseSensitive}
		if err := jsonFlag(cmd, "slots", &req.Slots); err != nil {
			return err
		}

		host, err := conduit.New()
		if err != nil {
			return err
		}
		res, err := host.Match(req)
		if err != nil {
			return err
		}
		return cli.PrintJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().StringArrayP("pattern", "p", nil, "Pattern to match (repeatable)")
	matchCmd.Flags().String("slots", "", "Slot values as JSON or @file")
	matchCmd.Flags().Bool("case-sensitive", false, "Match case sensitively")
	_ = matchCmd.MarkFlagRequired("pattern")
}
