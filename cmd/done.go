package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/versekeeper/versekeeper/models"
	"github.com/versekeeper/versekeeper/scripture"
	"github.com/versekeeper/versekeeper/store"
)

// doneCmd represents the done command
var doneCmd = &cobra.Command{
	Use:     "done [citation]",
	Aliases: []string{"reviewed", "d"},
	Short:   "Mark a verse as reviewed",
	Long: `Mark a verse's review as completed. The next 'advance' run counts the
review toward promotion. With a citation argument the verse is matched
directly; without one an interactive list is shown.`,
	Example: `  # Interactive mode
  versekeeper done

  # Mark a specific verse
  versekeeper done "2 Nephi 2:25"`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		itemStore, err := GetStore()
		if err != nil {
			HandleFatalError("Error: Could not initialize the item store.", err)
		}
		defer func() { _ = itemStore.Close() }()

		var item models.MemorizationItem

		if len(args) > 0 {
			item, err = findItemByCitation(itemStore, args[0])
			if err != nil {
				HandleFatalError(fmt.Sprintf("Error: Could not find a verse matching '%s'.", args[0]), err)
			}
		} else {
			item, err = selectItemInteractive(itemStore, func(i models.MemorizationItem) bool {
				return i.Stage != models.StageBacklog && !i.Completed
			}, "Select verse to mark as reviewed")
			if err != nil {
				if err == promptui.ErrInterrupt {
					fmt.Println("Operation cancelled.")
					return
				}
				HandleFatalError("Error: Could not select a verse.", err)
			}
		}

		if item.Completed {
			fmt.Printf("%s is already marked reviewed; run 'versekeeper advance' to process it.\n", item.Reference)
			return
		}

		item.Completed = true
		if _, err := itemStore.UpdateItem(item); err != nil {
			HandleFatalError(fmt.Sprintf("Error: Failed to mark %s as reviewed.", item.Reference), err)
		}

		fmt.Printf("Marked %s as reviewed. Run 'versekeeper advance' to apply the cadence.\n", item.Reference)
	},
}

func init() {
	rootCmd.AddCommand(doneCmd)
}

// findItemByCitation parses the citation and matches it against stored items
// by canonical reference.
func findItemByCitation(itemStore store.ItemStore, citation string) (models.MemorizationItem, error) {
	ref, err := scripture.Parse(strings.TrimSpace(citation))
	if err != nil {
		return models.MemorizationItem{}, err
	}

	all, err := itemStore.ListAll()
	if err != nil {
		return models.MemorizationItem{}, err
	}
	for _, item := range all {
		if item.Reference.Key() == ref.Key() {
			return item, nil
		}
	}
	return models.MemorizationItem{}, fmt.Errorf("no item with reference %s", ref)
}

// selectItemInteractive presents a prompt to choose an item from a filtered list.
func selectItemInteractive(itemStore store.ItemStore, filterFn func(models.MemorizationItem) bool, label string) (models.MemorizationItem, error) {
	all, err := itemStore.ListAll()
	if err != nil {
		return models.MemorizationItem{}, fmt.Errorf("failed to list items for selection: %w", err)
	}

	items := make([]models.MemorizationItem, 0, len(all))
	for _, item := range all {
		if filterFn == nil || filterFn(item) {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return models.MemorizationItem{}, fmt.Errorf("no verses available")
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   `> {{ .Reference.String | cyan }} ({{ .Stage }}, {{ .Counter }} left)`,
		Inactive: `  {{ .Reference.String | faint }} ({{ .Stage }})`,
		Selected: `{{ "✔" | green }} {{ .Reference.String | faint }}`,
	}

	prompt := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: templates,
		Size:      10,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return models.MemorizationItem{}, err
	}
	return items[idx], nil
}
