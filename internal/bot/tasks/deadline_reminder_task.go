package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/deadlinebot/internal/telegram"
)

const reminderQueryTimeout = 30 * time.Second

// NewDeadlineReminderTask creates the task that announces every overdue
// deadline to the reminder chat. Nothing is remembered between firings, so a
// deadline is announced again each time until it is removed or moved.
func NewDeadlineReminderTask(deps TaskDeps) ScheduledTaskFunc {
	baseLog := deps.Logger.With("task", "deadline_reminder")

	return func(ctx context.Context) error {
		log := baseLog.With("firing_id", uuid.NewString())
		startTime := time.Now()

		now := deps.Normalizer.Now()
		queryCtx, cancel := context.WithTimeout(ctx, reminderQueryTimeout)
		rows, err := deps.Store.ListOverdueDeadlines(queryCtx, now)
		cancel()
		if err != nil {
			log.ErrorContext(ctx, "Failed to query overdue deadlines", "error", err)
			return fmt.Errorf("query overdue deadlines: %w", err)
		}

		audience := deps.Config.Telegram.ReminderChatID
		reminderFmt := deps.Config.Messages.ReminderFmt

		sent, failed := 0, 0
		for _, d := range rows {
			if ctx.Err() != nil {
				log.WarnContext(ctx, "Reminder firing cancelled", "error", ctx.Err(), "sent", sent)
				return ctx.Err()
			}

			err := deps.Notifier.Notify(ctx, audience, fmt.Sprintf(reminderFmt, d.Title))
			if err != nil {
				failed++
				log.WarnContext(ctx, "Failed to send deadline reminder", "error", err,
					"transport_error", errors.Is(err, telegram.ErrTransport), "deadline_id", d.ID)
				continue
			}
			sent++
		}

		log.InfoContext(ctx, "Deadline reminder firing finished",
			"overdue", len(rows), "sent", sent, "failed", failed, "duration", time.Since(startTime))
		return nil
	}
}
