package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// advanceCmd represents the advance command
var advanceCmd = &cobra.Command{
	Use:     "advance",
	Aliases: []string{"run", "a"},
	Short:   "Advance completed reviews through the cadence",
	Long: `Process every verse marked reviewed since the last run: decrement its
repeat counter, reschedule it, and promote it to the next stage when the
counter reaches zero. If the Daily list is below its floor, a new verse is
introduced from the Backlog (or the suggestion fallback).`,
	Example: `  # Run once after marking verses reviewed
  versekeeper advance

  # Using alias
  versekeeper a`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		itemStore, err := GetStore()
		if err != nil {
			HandleFatalError("Error: Could not initialize the item store.", err)
		}
		defer func() {
			if err := itemStore.Close(); err != nil {
				LogError("failed to close item store", err)
			}
		}()

		runner, err := buildRunner(itemStore)
		if err != nil {
			HandleFatalError("Error: Invalid cadence configuration.", err)
		}

		report, err := runner.Run(context.Background())
		if err != nil {
			HandleFatalError("Error: The run could not read the item store.", err)
		}

		fmt.Print(report.Summary())
	},
}

func init() {
	rootCmd.AddCommand(advanceCmd)
}
