package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageSender is the part of *bot.Bot used to push notifications.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Notifier delivers plain text messages to a chat with a bounded send time.
type Notifier struct {
	sender  MessageSender
	timeout time.Duration
	log     *slog.Logger
}

// NewNotifier creates a Notifier. A non-positive timeout leaves sends bounded
// only by the caller's context.
func NewNotifier(sender MessageSender, timeout time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:  sender,
		timeout: timeout,
		log:     logger.With("component", "notifier"),
	}
}

// Notify sends text to audience. Failures wrap ErrTransport.
func (n *Notifier) Notify(ctx context.Context, audience int64, text string) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	msg, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: audience,
		Text:   text,
	})
	if err != nil {
		n.log.WarnContext(ctx, "Failed to deliver notification", "chat_id", audience, "error", err)
		return fmt.Errorf("%w: send to %d: %w", ErrTransport, audience, err)
	}

	if msg != nil {
		n.log.DebugContext(ctx, "Notification delivered", "chat_id", audience, "message_id", msg.ID)
	}
	return nil
}
