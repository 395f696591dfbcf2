package types

// AppConfig represents the complete application configuration.
type AppConfig struct {
	Verbose   bool            `mapstructure:"verbose"`
	Config    string          `mapstructure:"config"`
	Project   ProjectConfig   `mapstructure:"project" validate:"required"`
	Data      DataConfig      `mapstructure:"data" validate:"required"`
	Cadence   CadenceConfig   `mapstructure:"cadence" validate:"required"`
	Mastered  MasteredConfig  `mapstructure:"mastered" validate:"required"`
	AutoAdd   AutoAddConfig   `mapstructure:"autoAdd"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Lookup    LookupConfig    `mapstructure:"lookup"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"omitempty"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// ProjectConfig holds project-related settings.
type ProjectConfig struct {
	RootDir string `mapstructure:"rootDir" validate:"required"`
}

// DataConfig holds item store configuration.
type DataConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=file sqlite"`
	File    string `mapstructure:"file" validate:"required"`
	Format  string `mapstructure:"format" validate:"required,oneof=json yaml toml"`
}

// CadenceConfig holds the per-stage repeat counts. Invalid counts abort the
// run before any mutation.
type CadenceConfig struct {
	DailyRepeats   int `mapstructure:"dailyRepeats" validate:"required,min=1"`
	WeeklyRepeats  int `mapstructure:"weeklyRepeats" validate:"required,min=1"`
	MonthlyRepeats int `mapstructure:"monthlyRepeats" validate:"required,min=1"`
}

// MasteredConfig holds the mastered-stage review rotation. ReviewMonths must
// be strictly increasing (checked by cadence.Config.Validate, beyond what the
// struct tags can express).
type MasteredConfig struct {
	ReviewMonths   []int `mapstructure:"reviewMonths" validate:"required,min=1,dive,min=1"`
	YearlyInterval int   `mapstructure:"yearlyInterval" validate:"required,min=1"`
}

// AutoAddConfig steers the suggestion fallback.
type AutoAddConfig struct {
	TopicDefault string `mapstructure:"topicDefault"`
	MaxRetries   int    `mapstructure:"maxRetries" validate:"omitempty,min=1,max=10"`
}

// SchedulerConfig holds run orchestration settings.
type SchedulerConfig struct {
	// DailyFloor is the minimum Daily list size before a new verse is pulled in.
	DailyFloor int `mapstructure:"dailyFloor" validate:"omitempty,min=1"`
	// Cron is the schedule expression for the daemon mode.
	Cron string `mapstructure:"cron"`
}

// LookupConfig configures the ranked text providers.
type LookupConfig struct {
	CacheFile      string `mapstructure:"cacheFile"`
	PrimaryURL     string `mapstructure:"primaryUrl" validate:"omitempty,url"`
	SecondaryURL   string `mapstructure:"secondaryUrl" validate:"omitempty,url"`
	Translation    string `mapstructure:"translation"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds" validate:"omitempty,min=1,max=120"`
}

// LLMConfig holds configuration for the suggestion fallback.
type LLMConfig struct {
	Provider              string `mapstructure:"provider" validate:"omitempty,oneof=openai"`
	ModelName             string `mapstructure:"modelName" validate:"omitempty,min=1"`
	APIKey                string `mapstructure:"apiKey" validate:"omitempty,min=1"`
	RequestTimeoutSeconds int    `mapstructure:"requestTimeoutSeconds" validate:"omitempty,min=5,max=600"`
}

// AuditConfig configures the CSV transition trail.
type AuditConfig struct {
	File string `mapstructure:"file"`
}
