package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/versekeeper/versekeeper/models"
	"github.com/versekeeper/versekeeper/scripture"
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <citation>",
	Short: "Add a verse to the Backlog",
	Long: `Parse a citation, reject it if it duplicates or overlaps a verse already
in the program, and queue it in the Backlog. Abbreviations and dash ranges
are normalized: "2 Ne. 2:25–27" becomes "2 Nephi 2:25-27".`,
	Example: `  versekeeper add "2 Nephi 2:25"
  versekeeper add "Mosiah 2:17-19"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	citation := strings.TrimSpace(strings.Join(args, " "))

	ref, err := scripture.Parse(citation)
	if err != nil {
		return err
	}

	itemStore, err := GetStore()
	if err != nil {
		return fmt.Errorf("could not initialize the item store: %w", err)
	}
	defer func() { _ = itemStore.Close() }()

	// Overlap check runs against every list, Backlog included: a queued
	// duplicate is as unwelcome as an active one.
	all, err := itemStore.ListAll()
	if err != nil {
		return fmt.Errorf("could not list existing items: %w", err)
	}
	existing := make([]scripture.Reference, 0, len(all))
	for _, item := range all {
		existing = append(existing, item.Reference)
	}
	if collision := scripture.FindCollision(ref, existing); collision != nil {
		return collision
	}

	item, err := itemStore.AddItem(models.NewItem(ref))
	if err != nil {
		return fmt.Errorf("could not add item: %w", err)
	}

	fmt.Printf("Added %s to the Backlog (ID: %s)\n", item.Reference, item.ID)
	return nil
}
