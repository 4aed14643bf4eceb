// Package config provides configuration loading, validation, and management
// for the deadline bot. It reads a YAML file, applies defaults, lets BOT_*
// environment variables override any key and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every failure to load or validate configuration.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration for all components.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Deadlines DeadlinesConfig `mapstructure:"deadlines"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	AI        AIConfig        `mapstructure:"ai"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds transport settings and the allow-lists.
type TelegramConfig struct {
	Token           string        `mapstructure:"token"             validate:"required"`
	AuthorIDs       []int64       `mapstructure:"author_ids"        validate:"required,min=1,dive,gt=0"`
	AllowedGroupIDs []int64       `mapstructure:"allowed_group_ids" validate:"dive,ne=0"`
	ReminderChatID  int64         `mapstructure:"reminder_chat_id"  validate:"required,ne=0"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"      validate:"min=1s,max=2m"`

	// BotInfo is filled at startup from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// DeadlinesConfig controls the display offset and the listing windows.
type DeadlinesConfig struct {
	UTCOffsetHours int `mapstructure:"utc_offset_hours" validate:"min=-12,max=14"`
	WindowDays     int `mapstructure:"window_days"      validate:"min=1,max=365"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables one scheduled task and gives it a 5-field cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// AIConfig selects and configures the LLM backend.
type AIConfig struct {
	Provider           string        `mapstructure:"provider"              validate:"oneof=openai gemini"`
	APIKey             string        `mapstructure:"api_key"               validate:"required"`
	BaseURL            string        `mapstructure:"base_url"              validate:"omitempty,url"`
	TextModel          string        `mapstructure:"text_model"            validate:"required"`
	ImageModel         string        `mapstructure:"image_model"           validate:"required"`
	Instruction        string        `mapstructure:"instruction"`
	Temperature        float32       `mapstructure:"temperature"           validate:"min=0,max=2"`
	Timeout            time.Duration `mapstructure:"timeout"               validate:"min=1s,max=10m"`
	RateLimitPerMinute float64       `mapstructure:"rate_limit_per_minute" validate:"gt=0"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"      validate:"min=1"`

	// The circuit breaker opens after BreakerMaxFailures consecutive failures
	// and stays open for BreakerCooldown.
	BreakerMaxFailures int           `mapstructure:"breaker_max_failures"  validate:"min=1"`
	BreakerCooldown    time.Duration `mapstructure:"breaker_cooldown"      validate:"min=1s"`
}

// HTTPConfig configures the status endpoint. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// MessagesConfig holds every user-visible text. Entries ending in Fmt are
// fmt format strings.
type MessagesConfig struct {
	Startup         string `mapstructure:"startup"           validate:"required"`
	Welcome         string `mapstructure:"welcome"           validate:"required"`
	Help            string `mapstructure:"help"              validate:"required"`
	NotAuthorized   string `mapstructure:"not_authorized"    validate:"required"`
	GroupNotAllowed string `mapstructure:"group_not_allowed" validate:"required"`
	RateLimited     string `mapstructure:"rate_limited"      validate:"required"`
	GeneralError    string `mapstructure:"general_error"     validate:"required"`
	Timeout         string `mapstructure:"timeout"           validate:"required"`
	InvalidDate     string `mapstructure:"invalid_date"      validate:"required"`
	EmptyTitle      string `mapstructure:"empty_title"       validate:"required"`
	Unknown         string `mapstructure:"unknown"           validate:"required"`

	UsageAdd       string `mapstructure:"usage_add"       validate:"required"`
	UsageModify    string `mapstructure:"usage_modify"    validate:"required"`
	UsageRemove    string `mapstructure:"usage_remove"    validate:"required"`
	UsageAsk       string `mapstructure:"usage_ask"       validate:"required"`
	UsageTranslate string `mapstructure:"usage_translate" validate:"required"`
	UsageImage     string `mapstructure:"usage_image"     validate:"required"`

	AddedFmt          string `mapstructure:"added_fmt"           validate:"required,fmtverbs=3"`
	UpdatedFmt        string `mapstructure:"updated_fmt"         validate:"required,fmtverbs=2"`
	Removed           string `mapstructure:"removed"             validate:"required"`
	AddError          string `mapstructure:"add_error"           validate:"required"`
	UpdateError       string `mapstructure:"update_error"        validate:"required"`
	RemoveError       string `mapstructure:"remove_error"        validate:"required"`
	ListError         string `mapstructure:"list_error"          validate:"required"`
	PastHeaderFmt     string `mapstructure:"past_header_fmt"     validate:"required,fmtverbs=1"`
	UpcomingHeaderFmt string `mapstructure:"upcoming_header_fmt" validate:"required,fmtverbs=1"`
	AllHeader         string `mapstructure:"all_header"          validate:"required"`
	OverdueHeader     string `mapstructure:"overdue_header"      validate:"required"`
	NoTasks           string `mapstructure:"no_tasks"            validate:"required"`
	NoUpcomingTasks   string `mapstructure:"no_upcoming_tasks"   validate:"required"`
	NoOverdueTasks    string `mapstructure:"no_overdue_tasks"    validate:"required"`
	TimePassed        string `mapstructure:"time_passed"         validate:"required"`
	ReminderFmt       string `mapstructure:"reminder_fmt"        validate:"required,fmtverbs=1"`
	ImageGenerating   string `mapstructure:"image_generating"    validate:"required"`
	AIError           string `mapstructure:"ai_error"            validate:"required"`
	AIEmptyResponse   string `mapstructure:"ai_empty_response"   validate:"required"`
}

// LoadConfig reads configuration from path, applies defaults and BOT_*
// environment overrides, and validates the result. A missing file is not an
// error as long as the required keys come from the environment.
func LoadConfig(path string) (*Config, error) {
	startTime := time.Now()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to read %s: %w", ErrConfiguration, path, err)
		}
		slog.Info("Configuration file not found, using defaults and environment", "path", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"path", path,
		"ai_provider", cfg.AI.Provider,
		"db_path", cfg.Database.Path,
		"utc_offset_hours", cfg.Deadlines.UTCOffsetHours,
		"duration_ms", time.Since(startTime).Milliseconds())

	return cfg, nil
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	v, err := newValidator()
	if err != nil {
		return fmt.Errorf("%w: failed to build validator: %w", ErrConfiguration, err)
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

// IsAllowedGroup reports whether chatID may use the LLM commands.
func (c *Config) IsAllowedGroup(chatID int64) bool {
	return slices.Contains(c.Telegram.AllowedGroupIDs, chatID)
}
