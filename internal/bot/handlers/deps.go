package handlers

import (
	"log/slog"
	"time"

	"github.com/edgard/deadlinebot/internal/ai"
	"github.com/edgard/deadlinebot/internal/config"
	"github.com/edgard/deadlinebot/internal/deadlines"
	"github.com/edgard/deadlinebot/internal/sanitize"
)

const (
	dbOperationTimeout = 15 * time.Second
	sendMessageTimeout = 15 * time.Second
	typingInterval     = 4 * time.Second
	maxMessageLength   = 4096
	maxCaptionLength   = 1024
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Deadlines *deadlines.Service
	AIClient  ai.Client
	Limiter   *RateLimiter
	// Sanitizer strips markdown from AI answers; nil sends them verbatim.
	Sanitizer *sanitize.Policy
}

// botUsername returns the bot's username once getMe has run, or "".
func (d HandlerDeps) botUsername() string {
	if d.Config == nil || d.Config.Telegram.BotInfo == nil {
		return ""
	}
	return d.Config.Telegram.BotInfo.Username
}
