package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/deadlinebot/internal/command"
	"github.com/edgard/deadlinebot/internal/config"
	"github.com/edgard/deadlinebot/internal/deadlines"
	"github.com/edgard/deadlinebot/internal/timezone"
)

// NewAddHandler returns a handler for the /add command.
func NewAddHandler(deps HandlerDeps) bot.HandlerFunc {
	return addHandler{deps}.Handle
}

type addHandler struct {
	deps HandlerDeps
}

func (h addHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "add")
	msgs := h.deps.Config.Messages

	cmd, ok := parseMessage(ctx, log, h.deps, update)
	if !ok {
		return
	}
	if cmd.Err != nil {
		reply(ctx, b, log, update.Message, msgs.UsageAdd)
		return
	}

	dbCtx, cancel := withTimeout(ctx, dbOperationTimeout)
	defer cancel()

	id, err := h.deps.Deadlines.Add(dbCtx, update.Message.From.ID, cmd.Title, cmd.RawDate)
	if err != nil {
		log.ErrorContext(ctx, "Failed to add deadline", "error", err, "user_id", update.Message.From.ID)
		reply(ctx, b, log, update.Message, deadlineErrorText(msgs, err, msgs.AddError))
		return
	}

	reply(ctx, b, log, update.Message, fmt.Sprintf(msgs.AddedFmt, id, strings.TrimSpace(cmd.Title), cmd.RawDate))
}

// NewModifyHandler returns a handler for the /modify command.
func NewModifyHandler(deps HandlerDeps) bot.HandlerFunc {
	return modifyHandler{deps}.Handle
}

type modifyHandler struct {
	deps HandlerDeps
}

func (h modifyHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "modify")
	msgs := h.deps.Config.Messages

	cmd, ok := parseMessage(ctx, log, h.deps, update)
	if !ok {
		return
	}
	if cmd.Err != nil {
		reply(ctx, b, log, update.Message, msgs.UsageModify)
		return
	}

	dbCtx, cancel := withTimeout(ctx, dbOperationTimeout)
	defer cancel()

	if err := h.deps.Deadlines.Modify(dbCtx, cmd.ID, cmd.Title, cmd.RawDate); err != nil {
		log.ErrorContext(ctx, "Failed to modify deadline", "error", err, "deadline_id", cmd.ID)
		reply(ctx, b, log, update.Message, deadlineErrorText(msgs, err, msgs.UpdateError))
		return
	}

	title, due := strings.TrimSpace(cmd.Title), strings.TrimSpace(cmd.RawDate)
	stored, err := h.deps.Deadlines.Get(dbCtx, cmd.ID)
	switch {
	case err != nil:
		log.WarnContext(ctx, "Failed to read back modified deadline", "error", err, "deadline_id", cmd.ID)
	case stored == nil:
		log.DebugContext(ctx, "Modified deadline does not exist", "deadline_id", cmd.ID)
	default:
		title, due = stored.Title, h.deps.Deadlines.Render(stored.DueAt)
	}

	reply(ctx, b, log, update.Message, fmt.Sprintf(msgs.UpdatedFmt, title, due))
}

// NewRemoveHandler returns a handler for the /remove command.
func NewRemoveHandler(deps HandlerDeps) bot.HandlerFunc {
	return removeHandler{deps}.Handle
}

type removeHandler struct {
	deps HandlerDeps
}

func (h removeHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "remove")
	msgs := h.deps.Config.Messages

	cmd, ok := parseMessage(ctx, log, h.deps, update)
	if !ok {
		return
	}
	if cmd.Err != nil {
		reply(ctx, b, log, update.Message, msgs.UsageRemove)
		return
	}

	dbCtx, cancel := withTimeout(ctx, dbOperationTimeout)
	defer cancel()

	if err := h.deps.Deadlines.Remove(dbCtx, cmd.ID); err != nil {
		log.ErrorContext(ctx, "Failed to remove deadline", "error", err, "deadline_id", cmd.ID)
		reply(ctx, b, log, update.Message, deadlineErrorText(msgs, err, msgs.RemoveError))
		return
	}

	reply(ctx, b, log, update.Message, msgs.Removed)
}

// parseMessage parses the text of update. ok is false when there is nothing
// to answer.
func parseMessage(ctx context.Context, log *slog.Logger, deps HandlerDeps, update *models.Update) (command.Command, bool) {
	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Received update with nil message or sender", "update_id", update.ID)
		return command.Command{}, false
	}

	cmd := command.Parse(update.Message.Text, deps.botUsername())
	if cmd.Err != nil {
		log.InfoContext(ctx, "Invalid command usage", "error", cmd.Err, "chat_id", update.Message.Chat.ID)
	}
	return cmd, true
}

// deadlineErrorText maps a deadline operation error to the message shown to
// the user.
func deadlineErrorText(msgs config.MessagesConfig, err error, fallback string) string {
	switch {
	case errors.Is(err, timezone.ErrInvalidFormat):
		return msgs.InvalidDate
	case errors.Is(err, deadlines.ErrEmptyTitle):
		return msgs.EmptyTitle
	case errors.Is(err, context.DeadlineExceeded):
		return msgs.Timeout
	default:
		return fallback
	}
}
