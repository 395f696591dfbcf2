package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/versekeeper/versekeeper/models"
)

var listStageFlag string

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	refStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	doneMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✔")
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List verses grouped by stage",
	Long: `Print every verse in the program, grouped by stage in cadence order.
Due dates in the past are highlighted. Use --stage to show a single list.`,
	Example: `  versekeeper list
  versekeeper list --stage daily`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listStageFlag, "stage", "s", "", "show only one stage (backlog|daily|weekly|monthly|mastered)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	itemStore, err := GetStore()
	if err != nil {
		return fmt.Errorf("could not initialize the item store: %w", err)
	}
	defer func() { _ = itemStore.Close() }()

	stages := models.Stages
	if listStageFlag != "" {
		stage, ok := models.ParseStage(listStageFlag)
		if !ok {
			return fmt.Errorf("unknown stage %q (want backlog|daily|weekly|monthly|mastered)", listStageFlag)
		}
		stages = []models.Stage{stage}
	}

	// Styling is for humans; piped output stays plain.
	plain := !term.IsTerminal(int(os.Stdout.Fd()))
	now := time.Now()

	var b strings.Builder
	total := 0
	for _, stage := range stages {
		items, err := itemStore.ListItems(stage)
		if err != nil {
			return fmt.Errorf("could not list %s items: %w", stage, err)
		}
		total += len(items)

		header := fmt.Sprintf("%s (%d)", stage.ListName(), len(items))
		if plain {
			b.WriteString(header + "\n")
		} else {
			b.WriteString(headerStyle.Render(header) + "\n")
		}
		if len(items) == 0 {
			b.WriteString(renderLine(plain, faintStyle, "  (empty)") + "\n\n")
			continue
		}

		for _, item := range items {
			b.WriteString(formatItemLine(item, now, plain) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("%d verse(s) total.\n", total))
	fmt.Print(b.String())
	return nil
}

func formatItemLine(item models.MemorizationItem, now time.Time, plain bool) string {
	var parts []string
	parts = append(parts, "  "+renderLine(plain, refStyle, item.Reference.String()))

	if item.Stage != models.StageBacklog {
		if item.Stage == models.StageMastered {
			parts = append(parts, fmt.Sprintf("interval %d", item.MasteredCursor))
		} else {
			parts = append(parts, fmt.Sprintf("%d left", item.Counter))
		}
		if item.NextDueAt != nil {
			due := item.NextDueAt.Format("01/02/2006")
			style := dueStyle
			if item.NextDueAt.Before(now) {
				style = overdueStyle
				due += " (overdue)"
			}
			parts = append(parts, "due "+renderLine(plain, style, due))
		}
		if item.Completed {
			if plain {
				parts = append(parts, "reviewed")
			} else {
				parts = append(parts, doneMark)
			}
		}
	}

	return strings.Join(parts, "  ")
}

func renderLine(plain bool, style lipgloss.Style, s string) string {
	if plain {
		return s
	}
	return style.Render(s)
}
