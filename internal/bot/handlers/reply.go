package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// reply answers msg with text, split into as many messages as Telegram's
// length limit requires. Only the first chunk quotes msg.
func reply(ctx context.Context, b *bot.Bot, log *slog.Logger, msg *models.Message, text string) {
	if b == nil || msg == nil {
		return
	}
	if ctx.Err() != nil {
		log.WarnContext(ctx, "Context cancelled before sending reply", "error", ctx.Err())
		return
	}

	chatID := msg.Chat.ID
	for i, chunk := range splitText(text, maxMessageLength) {
		params := &bot.SendMessageParams{ChatID: chatID, Text: chunk}
		if i == 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: msg.ID, AllowSendingWithoutReply: true}
		}

		sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
		sent, err := b.SendMessage(sendCtx, params)
		cancel()
		if err != nil {
			log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID, "chunk", i)
			return
		}
		log.DebugContext(ctx, "Sent reply", "chat_id", chatID, "message_id", sent.ID)
	}
}

// splitText cuts text into chunks of at most limit runes, preferring line
// breaks as cut points.
func splitText(text string, limit int) []string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		if currentLen+len(runes) <= limit {
			current.WriteString(line)
			currentLen += len(runes)
			continue
		}

		flush()
		for len(runes) > limit {
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		current.WriteString(string(runes))
		currentLen = len(runes)
	}
	flush()

	out := chunks[:0]
	for _, c := range chunks {
		if c = strings.TrimRight(c, "\n"); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// withTimeout derives a context for a storage or AI call.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
