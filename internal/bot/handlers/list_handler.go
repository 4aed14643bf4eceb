package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/deadlinebot/internal/command"
	"github.com/edgard/deadlinebot/internal/database"
)

// NewListHandler returns a handler for one of the read-only listing
// commands: /last_tasks, /upcoming_tasks, /list and /overdue.
func NewListHandler(deps HandlerDeps, kind command.Kind) bot.HandlerFunc {
	return listHandler{deps: deps, kind: kind}.Handle
}

type listHandler struct {
	deps HandlerDeps
	kind command.Kind
}

func (h listHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.kind.String())
	msgs := h.deps.Config.Messages

	if update.Message == nil {
		log.WarnContext(ctx, "List handler received update with nil message", "update_id", update.ID)
		return
	}

	dbCtx, cancel := withTimeout(ctx, dbOperationTimeout)
	defer cancel()

	rows, header, empty, err := h.query(dbCtx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list deadlines", "error", err)
		text := msgs.ListError
		if errors.Is(err, context.DeadlineExceeded) {
			text = msgs.Timeout
		}
		reply(ctx, b, log, update.Message, text)
		return
	}

	log.DebugContext(ctx, "Listing deadlines", "count", len(rows))
	if len(rows) == 0 {
		reply(ctx, b, log, update.Message, empty)
		return
	}
	reply(ctx, b, log, update.Message, h.deps.Deadlines.DescribeAll(header, rows))
}

// query runs the listing for h.kind and returns its rows along with the
// header and the text used when nothing matches.
func (h listHandler) query(ctx context.Context) ([]database.Deadline, string, string, error) {
	svc := h.deps.Deadlines
	msgs := h.deps.Config.Messages

	switch h.kind {
	case command.ListPast:
		rows, err := svc.LastWindow(ctx)
		return rows, fmt.Sprintf(msgs.PastHeaderFmt, svc.WindowDays()), msgs.NoTasks, err
	case command.ListUpcoming:
		rows, err := svc.NextWindow(ctx)
		return rows, fmt.Sprintf(msgs.UpcomingHeaderFmt, svc.WindowDays()), msgs.NoUpcomingTasks, err
	case command.Overdue:
		rows, err := svc.Overdue(ctx)
		return rows, msgs.OverdueHeader, msgs.NoOverdueTasks, err
	default:
		rows, err := svc.All(ctx)
		return rows, msgs.AllHeader, msgs.NoTasks, err
	}
}
