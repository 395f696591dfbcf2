package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/versekeeper/versekeeper/models"
)

var stateJSONFlag bool

// itemState is the per-item diagnostic view printed by the state command.
type itemState struct {
	ID             string     `json:"id"`
	Reference      string     `json:"reference"`
	Stage          string     `json:"stage"`
	Counter        int        `json:"counter"`
	MasteredCursor int        `json:"masteredCursor,omitempty"`
	Completed      bool       `json:"completed"`
	HasNotes       bool       `json:"hasNotes"`
	LastReviewedAt *time.Time `json:"lastReviewedAt,omitempty"`
	NextDueAt      *time.Time `json:"nextDueAt,omitempty"`
}

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Dump the cadence state of every verse",
	Long: `Print the raw cadence fields for every verse: stage, remaining repeats,
mastered review cursor, completion flag, and due dates. Useful for checking
what the next 'advance' run will do.`,
	Args: cobra.NoArgs,
	RunE: runState,
}

func init() {
	stateCmd.Flags().BoolVar(&stateJSONFlag, "json", false, "emit state as JSON")
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	itemStore, err := GetStore()
	if err != nil {
		return fmt.Errorf("could not initialize the item store: %w", err)
	}
	defer func() { _ = itemStore.Close() }()

	states := make([]itemState, 0)
	for _, stage := range models.Stages {
		items, err := itemStore.ListItems(stage)
		if err != nil {
			return fmt.Errorf("could not list %s items: %w", stage, err)
		}
		for _, item := range items {
			states = append(states, itemState{
				ID:             item.ID,
				Reference:      item.Reference.String(),
				Stage:          string(item.Stage),
				Counter:        item.Counter,
				MasteredCursor: item.MasteredCursor,
				Completed:      item.Completed,
				HasNotes:       item.Notes != "",
				LastReviewedAt: item.LastReviewedAt,
				NextDueAt:      item.NextDueAt,
			})
		}
	}

	if stateJSONFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	}

	for _, s := range states {
		fmt.Printf("%s [%s]", s.Reference, s.Stage)
		if s.Stage == string(models.StageMastered) {
			fmt.Printf(" cursor=%d", s.MasteredCursor)
		} else if s.Stage != string(models.StageBacklog) {
			fmt.Printf(" counter=%d", s.Counter)
		}
		if s.Completed {
			fmt.Print(" reviewed")
		}
		if s.NextDueAt != nil {
			fmt.Printf(" due=%s", s.NextDueAt.Format("2006-01-02 15:04"))
		}
		if s.LastReviewedAt != nil {
			fmt.Printf(" last=%s", s.LastReviewedAt.Format("2006-01-02"))
		}
		if !s.HasNotes && s.Stage == string(models.StageDaily) {
			fmt.Print(" notes=empty")
		}
		fmt.Println()
	}
	fmt.Printf("%d verse(s).\n", len(states))
	return nil
}
