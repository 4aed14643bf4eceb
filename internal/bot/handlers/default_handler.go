package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/deadlinebot/internal/command"
)

// NewDefaultHandler answers slash commands addressed to this bot that no
// other handler claimed. Plain chat messages are ignored.
func NewDefaultHandler(deps HandlerDeps) bot.HandlerFunc {
	return defaultHandler{deps}.Handle
}

type defaultHandler struct {
	deps HandlerDeps
}

func (h defaultHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	cmd := command.Parse(msg.Text, h.deps.botUsername())
	if cmd.Kind != command.Unknown || !addressedToBot(msg.Text, h.deps.botUsername()) {
		return
	}

	log := h.deps.Logger.With("handler", "default")
	log.DebugContext(ctx, "Unknown command", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
	reply(ctx, b, log, msg, h.deps.Config.Messages.Unknown)
}

// addressedToBot reports whether text is a slash command with no @suffix or
// with this bot's username as suffix.
func addressedToBot(text, username string) bool {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return false
	}
	head := strings.Fields(text)[0]
	_, target, found := strings.Cut(head, "@")
	return !found || username == "" || strings.EqualFold(target, username)
}
