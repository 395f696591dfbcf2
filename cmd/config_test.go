package cmd

import (
	"sync"
	"testing"

	"github.com/spf13/viper"
)

func loadTestConfig(t *testing.T) {
	t.Helper()
	setDefaults()
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
	setConfig(cfg)
}

func TestReloadKeepsPreviousConfigOnInvalidEdit(t *testing.T) {
	loadTestConfig(t)
	if got := GetConfig().Cadence.DailyRepeats; got != 7 {
		t.Fatalf("dailyRepeats = %d, want default 7", got)
	}

	// Simulate a bad config edit: zero repeats fails validation.
	viper.Set("cadence.dailyRepeats", 0)
	defer viper.Set("cadence.dailyRepeats", 7)

	if err := ReloadConfig(); err == nil {
		t.Fatal("expected validation error from reload")
	}
	if got := GetConfig().Cadence.DailyRepeats; got != 7 {
		t.Errorf("invalid reload replaced the config: dailyRepeats = %d, want 7", got)
	}
}

func TestReloadAppliesValidEdit(t *testing.T) {
	loadTestConfig(t)

	viper.Set("cadence.dailyRepeats", 5)
	defer viper.Set("cadence.dailyRepeats", 7)

	if err := ReloadConfig(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := GetConfig().Cadence.DailyRepeats; got != 5 {
		t.Errorf("dailyRepeats = %d, want reloaded 5", got)
	}
}

func TestConfigAccessIsGuarded(t *testing.T) {
	loadTestConfig(t)
	cfg := GetConfig()

	// Readers and a writer race on the shared config; the locks must keep
	// this clean under the race detector.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := GetConfig()
				if got.Cadence.DailyRepeats < 1 {
					t.Error("observed invalid config")
					return
				}
			}
		}()
	}
	for j := 0; j < 200; j++ {
		setConfig(cfg)
	}
	wg.Wait()
}
