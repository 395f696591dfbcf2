package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/versekeeper/versekeeper/models"
)

// moveCmd represents the move command
var moveCmd = &cobra.Command{
	Use:   "move <citation> <stage>",
	Short: "Manually move a verse to another stage",
	Long: `Reassign a verse to a different stage list without running the cadence.
Counters and due dates are left as they are; use this to repair a library
after hand-editing the data file.`,
	Example: `  versekeeper move "2 Nephi 2:25" weekly
  versekeeper move "John 3:16" backlog`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)
}

func runMove(cmd *cobra.Command, args []string) error {
	stage, ok := models.ParseStage(args[1])
	if !ok {
		return fmt.Errorf("unknown stage %q (want backlog|daily|weekly|monthly|mastered)", args[1])
	}

	itemStore, err := GetStore()
	if err != nil {
		return fmt.Errorf("could not initialize the item store: %w", err)
	}
	defer func() { _ = itemStore.Close() }()

	item, err := findItemByCitation(itemStore, args[0])
	if err != nil {
		return err
	}
	if item.Stage == stage {
		fmt.Printf("%s is already in %s.\n", item.Reference, stage.ListName())
		return nil
	}

	moved, err := itemStore.MoveItem(item.ID, stage)
	if err != nil {
		return err
	}
	fmt.Printf("Moved %s: %s → %s\n", moved.Reference, item.Stage, moved.Stage)
	return nil
}
