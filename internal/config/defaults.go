package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration.
const (
	DefaultLogLevel = "info"

	DefaultDBPath = "deadlines.db"

	DefaultSendTimeout = 10 * time.Second

	DefaultUTCOffsetHours = 3
	DefaultWindowDays     = 10

	DefaultReminderSchedule    = "0 0,12 * * *"
	DefaultMaintenanceSchedule = "0 4 * * 0"

	DefaultAIProvider           = "openai"
	DefaultAITextModel          = "gpt-4o-mini"
	DefaultAIImageModel         = "dall-e-3"
	DefaultAITemperature        = 0.7
	DefaultAITimeout            = 2 * time.Minute
	DefaultAIRateLimitPerMinute = 6.0
	DefaultAIRateLimitBurst     = 3
	DefaultAIInstruction        = "You are a concise assistant in a team group chat. Answer in plain text."
	DefaultAIBreakerMaxFailures = 5
	DefaultAIBreakerCooldown    = time.Minute

	DefaultHTTPAddr = ":3000"
)

// Task names, shared with the task registry.
const (
	TaskDeadlineReminder = "deadline_reminder"
	TaskSQLMaintenance   = "sql_maintenance"
)

var defaultMessages = map[string]string{
	"startup":           "Bot is now online and ready to manage tasks!",
	"welcome":           "👋 I keep track of the team's deadlines. Send /help to see what I can do.",
	"help":              "Deadlines:\n/add <title> <YYYY-MM-DD HH:MM>\n/modify <id> <title> <YYYY-MM-DD HH:MM>\n/remove <id>\n/last_tasks\n/upcoming_tasks\n/overdue\n/list\n\nAssistant:\n/ask <question>\n/translate <language> <text>\n/image <description>",
	"not_authorized":    "You are not authorized to perform this action.",
	"group_not_allowed": "This command is not available in this chat.",
	"rate_limited":      "⏱️ Too many requests, please wait a moment.",
	"general_error":     "❌ An error occurred. Please try again later.",
	"timeout":           "⏱️ Request timed out. Please try again later.",
	"invalid_date":      "Invalid date format. Please use \"YYYY-MM-DD HH:MM\".",
	"empty_title":       "The title must not be empty.",
	"unknown":           "Unknown command. Send /help for the list of commands.",

	"usage_add":       "Usage: /add <title> <YYYY-MM-DD HH:MM>",
	"usage_modify":    "Usage: /modify <id> <title> <YYYY-MM-DD HH:MM>",
	"usage_remove":    "Usage: /remove <id>",
	"usage_ask":       "Usage: /ask <question>",
	"usage_translate": "Usage: /translate <language> <text>",
	"usage_image":     "Usage: /image <description>",

	"added_fmt":           "Deadline added (#%d): %s on %s",
	"updated_fmt":         "Deadline updated: %s on %s",
	"removed":             "Deadline removed.",
	"add_error":           "Error adding deadline.",
	"update_error":        "Error updating deadline.",
	"remove_error":        "Error removing deadline.",
	"list_error":          "Error retrieving tasks.",
	"past_header_fmt":     "Last %d days tasks:",
	"upcoming_header_fmt": "Upcoming %d days tasks:",
	"all_header":          "All tasks:",
	"overdue_header":      "Overdue tasks:",
	"no_tasks":            "No tasks found.",
	"no_upcoming_tasks":   "No upcoming tasks found.",
	"no_overdue_tasks":    "Nothing is overdue.",
	"time_passed":         "Time passed",
	"reminder_fmt":        "⏰ Deadline alert: %s is due!",
	"image_generating":    "🎨 Generating image...",
	"ai_error":            "🤖 Unable to process request. Please try again.",
	"ai_empty_response":   "🤖 The assistant returned an empty answer.",
}

// setDefaults registers default values for every optional key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("telegram.send_timeout", DefaultSendTimeout)
	v.SetDefault("telegram.allowed_group_ids", []int64{})

	v.SetDefault("deadlines.utc_offset_hours", DefaultUTCOffsetHours)
	v.SetDefault("deadlines.window_days", DefaultWindowDays)

	v.SetDefault("scheduler.tasks."+TaskDeadlineReminder+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskDeadlineReminder+".schedule", DefaultReminderSchedule)
	v.SetDefault("scheduler.tasks."+TaskSQLMaintenance+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskSQLMaintenance+".schedule", DefaultMaintenanceSchedule)

	v.SetDefault("ai.provider", DefaultAIProvider)
	v.SetDefault("ai.text_model", DefaultAITextModel)
	v.SetDefault("ai.image_model", DefaultAIImageModel)
	v.SetDefault("ai.temperature", DefaultAITemperature)
	v.SetDefault("ai.timeout", DefaultAITimeout)
	v.SetDefault("ai.rate_limit_per_minute", DefaultAIRateLimitPerMinute)
	v.SetDefault("ai.rate_limit_burst", DefaultAIRateLimitBurst)
	v.SetDefault("ai.instruction", DefaultAIInstruction)
	v.SetDefault("ai.breaker_max_failures", DefaultAIBreakerMaxFailures)
	v.SetDefault("ai.breaker_cooldown", DefaultAIBreakerCooldown)

	v.SetDefault("http.addr", DefaultHTTPAddr)

	for key, msg := range defaultMessages {
		v.SetDefault("messages."+key, msg)
	}
}

// bindEnv makes required keys without defaults visible to AutomaticEnv so
// they can be supplied purely through the environment.
func bindEnv(v *viper.Viper) error {
	for _, key := range []string{
		"telegram.token",
		"telegram.author_ids",
		"telegram.reminder_chat_id",
		"ai.api_key",
		"ai.base_url",
	} {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}
	return nil
}
