package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// startChatAction shows action in chatID until the returned stop func is
// called. Telegram clears the indicator after about five seconds, so it is
// refreshed every typingInterval.
func startChatAction(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, action models.ChatAction) (stop func()) {
	if b == nil {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	send := func() {
		if _, err := b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: action}); err != nil && ctx.Err() == nil {
			log.DebugContext(ctx, "Failed to send chat action", "error", err, "chat_id", chatID)
		}
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()

		send()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				send()
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
