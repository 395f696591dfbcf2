package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:     "schedule",
	Aliases: []string{"daemon"},
	Short:   "Run the cadence on a cron schedule",
	Long: `Stay in the foreground and run the advance pass on the configured cron
expression (scheduler.cron, default "0 8 * * *"). Configuration changes are
picked up without a restart. Stop with Ctrl-C.`,
	Example: `  # Advance every morning at 8am per the default schedule
  versekeeper schedule

  # Override the schedule for testing
  VERSEKEEPER_SCHEDULER_CRON="*/5 * * * *" versekeeper schedule`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

// newScheduleCron builds the daemon's cron instance. Ticks never overlap: a
// tick that fires while the previous advance pass is still running is
// skipped, keeping at most one run against the store at a time.
func newScheduleCron(expr string, job func()) (*cron.Cron, cron.EntryID, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	entryID, err := c.AddFunc(expr, job)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return c, entryID, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	expr := GetConfig().Scheduler.Cron

	c, entryID, err := newScheduleCron(expr, runScheduledAdvance)
	if err != nil {
		return err
	}

	// Reload config on edit so cadence and lookup changes apply to the
	// next tick. An invalid edit keeps the previous config; the cron
	// expression itself requires a restart.
	viper.OnConfigChange(func(e fsnotify.Event) {
		if err := ReloadConfig(); err != nil {
			PrintError("Config change ignored: invalid configuration.", err)
			return
		}
		fmt.Printf("Config reloaded: %s\n", e.Name)
	})
	viper.WatchConfig()

	c.Start()
	fmt.Printf("Scheduler started (%s); next run %s. Press Ctrl-C to stop.\n",
		expr, c.Entry(entryID).Next.Format("01/02/2006 15:04"))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("Stopping scheduler...")
	ctx := c.Stop()
	<-ctx.Done()
	return nil
}

// runScheduledAdvance performs one advance pass, logging instead of exiting
// so a bad tick never kills the daemon.
func runScheduledAdvance() {
	defer func() {
		if r := recover(); r != nil {
			LogError(fmt.Sprintf("scheduled run panicked: %v", r), nil)
		}
	}()

	itemStore, err := GetStore()
	if err != nil {
		PrintError("Scheduled run skipped: could not initialize the item store.", err)
		return
	}
	defer func() { _ = itemStore.Close() }()

	runner, err := buildRunner(itemStore)
	if err != nil {
		PrintError("Scheduled run skipped: invalid cadence configuration.", err)
		return
	}

	report, err := runner.Run(context.Background())
	if err != nil {
		PrintError("Scheduled run failed.", err)
		return
	}
	fmt.Print(report.Summary())
}
