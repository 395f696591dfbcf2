package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/versekeeper/versekeeper/audit"
	"github.com/versekeeper/versekeeper/cadence"
	"github.com/versekeeper/versekeeper/llm"
	"github.com/versekeeper/versekeeper/lookup"
	"github.com/versekeeper/versekeeper/scheduler"
	"github.com/versekeeper/versekeeper/store"
	"github.com/versekeeper/versekeeper/types"
)

const (
	configName = ".versekeeper"
	envPrefix  = "VERSEKEEPER"
)

// The loaded configuration. The schedule daemon reloads it from a watcher
// goroutine while cron ticks read it, so every access goes through the lock.
var (
	configMu        sync.RWMutex
	globalAppConfig types.AppConfig
)

// validate is a single validator instance; it caches struct info.
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// validateAppConfig performs validation on the AppConfig struct plus the
// cross-field cadence rules the tags cannot express. Invalid configuration
// is fatal before any mutation.
func validateAppConfig(config *types.AppConfig) error {
	if err := validate.Struct(config); err != nil {
		return err
	}
	return cadenceConfig(config).Validate()
}

// cadenceConfig maps the app config onto the state machine's config.
func cadenceConfig(config *types.AppConfig) cadence.Config {
	return cadence.Config{
		DailyRepeats:   config.Cadence.DailyRepeats,
		WeeklyRepeats:  config.Cadence.WeeklyRepeats,
		MonthlyRepeats: config.Cadence.MonthlyRepeats,
		ReviewMonths:   config.Mastered.ReviewMonths,
		YearlyInterval: config.Mastered.YearlyInterval,
	}
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// Load .env file first if present; it's fine if it doesn't exist.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix) // e.g. VERSEKEEPER_VERBOSE
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfgFileFlag := viper.GetString("config")

	if cfgFileFlag != "" {
		viper.SetConfigFile(cfgFileFlag)
	} else {
		projectDir := viper.GetString("project.rootDir")
		if projectDir == "" {
			projectDir = ".versekeeper"
		}
		if _, err := os.Stat(projectDir); !os.IsNotExist(err) {
			// Project-specific config directory exists; prioritize it.
			viper.AddConfigPath(projectDir)
			viper.SetConfigName(configName)
		} else {
			home, err := os.UserHomeDir()
			cobra.CheckErr(err)
			viper.AddConfigPath(home) // $HOME/.versekeeper.yaml
			viper.AddConfigPath(".")  // ./.versekeeper.yaml
			viper.SetConfigName(configName)
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if cfgFileFlag != "" {
				fmt.Fprintln(os.Stderr, "Error: Specified config file not found:", cfgFileFlag)
			} else if viper.GetBool("verbose") {
				fmt.Fprintln(os.Stderr, "No config file found. Using defaults and environment variables.")
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error reading config file:", viper.ConfigFileUsed(), "-", err)
		}
	}

	setDefaults()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %s\n", err)
		os.Exit(1)
	}
	setConfig(cfg)
}

// setDefaults registers every config default. Cadence numbers follow the
// Featherstone thresholds.
func setDefaults() {
	viper.SetDefault("project.rootDir", ".versekeeper")
	viper.SetDefault("data.backend", "file")
	viper.SetDefault("data.file", "verses.json")
	viper.SetDefault("data.format", "json")

	viper.SetDefault("cadence.dailyRepeats", 7)
	viper.SetDefault("cadence.weeklyRepeats", 4)
	viper.SetDefault("cadence.monthlyRepeats", 3)
	viper.SetDefault("mastered.reviewMonths", []int{3, 6, 12})
	viper.SetDefault("mastered.yearlyInterval", 12)

	viper.SetDefault("autoAdd.topicDefault", "faith")
	viper.SetDefault("autoAdd.maxRetries", 3)
	viper.SetDefault("scheduler.dailyFloor", 1)
	viper.SetDefault("scheduler.cron", "0 8 * * *")

	viper.SetDefault("lookup.cacheFile", "verses.txt")
	viper.SetDefault("lookup.primaryUrl", "https://bible-api.com")
	viper.SetDefault("lookup.secondaryUrl", "")
	viper.SetDefault("lookup.translation", "kjv")
	viper.SetDefault("lookup.timeoutSeconds", 10)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.modelName", "gpt-4o-mini")
	viper.SetDefault("llm.apiKey", "")
	viper.SetDefault("llm.requestTimeoutSeconds", 60)

	viper.SetDefault("audit.file", "audit.csv")
}

// loadConfig unmarshals and validates the current viper state into a fresh
// AppConfig without touching the published one.
func loadConfig() (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validateAppConfig(&cfg); err != nil {
		return types.AppConfig{}, err
	}
	return cfg, nil
}

// ReloadConfig re-reads the config file and swaps in the result. On any
// error the previously loaded configuration stays in effect, so a bad edit
// never takes down a running daemon.
func ReloadConfig() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setConfig(cfg)
	return nil
}

// GetConfig returns the loaded application configuration.
func GetConfig() types.AppConfig {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalAppConfig
}

func setConfig(cfg types.AppConfig) {
	configMu.Lock()
	globalAppConfig = cfg
	configMu.Unlock()
}

// projectPath resolves a configured path relative to the project root unless
// it is already absolute.
func projectPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GetConfig().Project.RootDir, p)
}

// GetStore initializes and returns the configured item store.
func GetStore() (store.ItemStore, error) {
	config := GetConfig()

	var s store.ItemStore
	switch config.Data.Backend {
	case "sqlite":
		s = store.NewSQLiteItemStore()
	default:
		s = store.NewFileItemStore()
	}

	dataFile := projectPath(config.Data.File)
	err := s.Initialize(map[string]string{
		"dataFile":       dataFile,
		"dataFileFormat": config.Data.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store at %s: %w", dataFile, err)
	}
	return s, nil
}

// getSuggester builds the suggestion fallback, or returns nil when no API
// key is configured. A missing suggester is not an error; the resolver
// simply cannot fall back past the Backlog.
func getSuggester() llm.Suggester {
	config := GetConfig()
	apiKey := config.LLM.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		LogError("no OpenAI API key configured; suggestion fallback disabled", nil)
		return nil
	}

	suggester, err := llm.NewOpenAISuggester(apiKey, config.LLM.ModelName, time.Duration(config.LLM.RequestTimeoutSeconds)*time.Second)
	if err != nil {
		LogError("suggestion fallback disabled", err)
		return nil
	}
	return suggester
}

// getLookupResolver builds the ranked text providers: local cache first,
// then the primary and secondary HTTP sources.
func getLookupResolver() *lookup.Resolver {
	config := GetConfig()
	timeout := time.Duration(config.Lookup.TimeoutSeconds) * time.Second

	var providers []lookup.TextProvider
	if config.Lookup.CacheFile != "" {
		providers = append(providers, lookup.NewFileCache(afero.NewOsFs(), projectPath(config.Lookup.CacheFile)))
	}
	if config.Lookup.PrimaryURL != "" {
		providers = append(providers, lookup.NewAPIClient("primary", config.Lookup.PrimaryURL, config.Lookup.Translation, timeout))
	}
	if config.Lookup.SecondaryURL != "" {
		providers = append(providers, lookup.NewAPIClient("secondary", config.Lookup.SecondaryURL, config.Lookup.Translation, timeout))
	}
	if len(providers) == 0 {
		return nil
	}
	return lookup.NewResolver(providers...)
}

// getAuditTrail builds the CSV transition trail, or nil when disabled.
func getAuditTrail() *audit.Trail {
	config := GetConfig()
	if config.Audit.File == "" {
		return nil
	}
	return audit.NewTrail(afero.NewOsFs(), projectPath(config.Audit.File))
}

// buildRunner wires a scheduler run from the loaded configuration.
func buildRunner(s store.ItemStore) (*scheduler.Runner, error) {
	config := GetConfig()
	return scheduler.NewRunner(s, cadenceConfig(&config), getSuggester(), getLookupResolver(), getAuditTrail(), scheduler.Options{
		DailyFloor:        config.Scheduler.DailyFloor,
		Topic:             config.AutoAdd.TopicDefault,
		MaxSuggestRetries: config.AutoAdd.MaxRetries,
	})
}
