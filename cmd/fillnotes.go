package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/versekeeper/versekeeper/models"
)

// fillNotesCmd represents the fill-notes command
var fillNotesCmd = &cobra.Command{
	Use:   "fill-notes",
	Short: "Fill empty notes for Daily verses from the text providers",
	Long: `Fetch verse text for any Daily item with blank notes, trying the local
cache first and then the configured lookup APIs. Lookup failures are
reported and skipped; the verses stay in rotation with empty notes.`,
	Args: cobra.NoArgs,
	RunE: runFillNotes,
}

func init() {
	rootCmd.AddCommand(fillNotesCmd)
}

func runFillNotes(cmd *cobra.Command, args []string) error {
	resolver := getLookupResolver()
	if resolver == nil {
		return fmt.Errorf("no text providers configured")
	}

	itemStore, err := GetStore()
	if err != nil {
		return fmt.Errorf("could not initialize the item store: %w", err)
	}
	defer func() { _ = itemStore.Close() }()

	daily, err := itemStore.ListItems(models.StageDaily)
	if err != nil {
		return fmt.Errorf("could not list Daily items: %w", err)
	}

	filled := 0
	for _, item := range daily {
		if item.Notes != "" {
			continue
		}
		text, err := resolver.Resolve(context.Background(), item.Reference)
		if err != nil {
			PrintError(fmt.Sprintf("No text found for %s.", item.Reference), err)
			continue
		}
		item.Notes = text
		if _, err := itemStore.UpdateItem(item); err != nil {
			PrintError(fmt.Sprintf("Could not save notes for %s.", item.Reference), err)
			continue
		}
		filled++
	}

	fmt.Printf("Filled notes for %d item(s) in Daily.\n", filled)
	return nil
}
