package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/versekeeper/versekeeper/cadence"
	"github.com/versekeeper/versekeeper/models"
	"github.com/versekeeper/versekeeper/scheduler"
	"github.com/versekeeper/versekeeper/scripture"
)

// newVerseCmd represents the new-verse command
var newVerseCmd = &cobra.Command{
	Use:     "new-verse",
	Aliases: []string{"new"},
	Short:   "Introduce the next verse into the Daily rotation",
	Long: `Move the oldest Backlog verse into Daily, due tomorrow morning. Backlog
entries that overlap a verse already in rotation are cleaned first. With an
empty Backlog the suggestion fallback proposes a verse, which is parsed and
overlap-checked before acceptance.`,
	Args: cobra.NoArgs,
	RunE: runNewVerse,
}

func init() {
	rootCmd.AddCommand(newVerseCmd)
}

func runNewVerse(cmd *cobra.Command, args []string) error {
	config := GetConfig()

	itemStore, err := GetStore()
	if err != nil {
		return fmt.Errorf("could not initialize the item store: %w", err)
	}
	defer func() { _ = itemStore.Close() }()

	all, err := itemStore.ListAll()
	if err != nil {
		return fmt.Errorf("could not list existing items: %w", err)
	}
	var existing []scripture.Reference
	for _, item := range all {
		if item.Stage != models.StageBacklog {
			existing = append(existing, item.Reference)
		}
	}

	resolver := scheduler.NewResolver(itemStore, getSuggester(), config.AutoAdd.TopicDefault, config.AutoAdd.MaxRetries)
	item, pruned, err := resolver.Next(context.Background(), existing)
	for _, ref := range pruned {
		fmt.Printf("Cleaned duplicate from Backlog: %s\n", ref)
	}
	if err != nil {
		return err
	}

	tracker := cadence.NewTracker(cadenceConfig(&config), nil)
	tr := tracker.Introduce(item)
	// Single write: the updated item already carries the Daily stage.
	if _, err := itemStore.UpdateItem(tr.Item); err != nil {
		return err
	}

	fmt.Printf("New verse moved from Backlog → Daily (next review %s): %s\n",
		tr.NextDue.Format("01/02/2006 15:04"), tr.Item.Reference)
	return nil
}
