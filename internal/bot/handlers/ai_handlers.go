package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/deadlinebot/internal/ai"
)

// NewAskHandler returns a handler for the /ask command.
func NewAskHandler(deps HandlerDeps) bot.HandlerFunc {
	return askHandler{deps}.Handle
}

type askHandler struct {
	deps HandlerDeps
}

func (h askHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "ask")

	cmd, ok := parseMessage(ctx, log, h.deps, update)
	if !ok {
		return
	}
	if cmd.Err != nil {
		reply(ctx, b, log, update.Message, h.deps.Config.Messages.UsageAsk)
		return
	}

	answerWithText(ctx, b, log, h.deps, update.Message, func(ctx context.Context) (string, error) {
		return h.deps.AIClient.Complete(ctx, cmd.Prompt)
	})
}

// NewTranslateHandler returns a handler for the /translate command.
func NewTranslateHandler(deps HandlerDeps) bot.HandlerFunc {
	return translateHandler{deps}.Handle
}

type translateHandler struct {
	deps HandlerDeps
}

func (h translateHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "translate")

	cmd, ok := parseMessage(ctx, log, h.deps, update)
	if !ok {
		return
	}
	if cmd.Err != nil {
		reply(ctx, b, log, update.Message, h.deps.Config.Messages.UsageTranslate)
		return
	}

	answerWithText(ctx, b, log, h.deps, update.Message, func(ctx context.Context) (string, error) {
		return h.deps.AIClient.Translate(ctx, cmd.TargetLang, cmd.Prompt)
	})
}

// answerWithText shows the typing indicator while generate runs and replies
// with its result.
func answerWithText(ctx context.Context, b *bot.Bot, log *slog.Logger, deps HandlerDeps, msg *models.Message, generate func(context.Context) (string, error)) {
	if deps.AIClient == nil {
		log.ErrorContext(ctx, "AI client is not configured")
		reply(ctx, b, log, msg, deps.Config.Messages.AIError)
		return
	}

	stop := startChatAction(ctx, b, log, msg.Chat.ID, models.ChatActionTyping)
	text, err := generate(ctx)
	stop()

	if err != nil {
		log.ErrorContext(ctx, "AI request failed", "error", err, "chat_id", msg.Chat.ID)
		reply(ctx, b, log, msg, aiErrorText(deps, err))
		return
	}

	if deps.Sanitizer != nil {
		text = deps.Sanitizer.PlainText(text)
	}
	if text == "" {
		log.WarnContext(ctx, "AI answer was empty after sanitizing", "chat_id", msg.Chat.ID)
		reply(ctx, b, log, msg, deps.Config.Messages.AIEmptyResponse)
		return
	}

	log.InfoContext(ctx, "AI request answered", "chat_id", msg.Chat.ID, "length", len(text))
	reply(ctx, b, log, msg, text)
}

// NewImageHandler returns a handler for the /image command.
func NewImageHandler(deps HandlerDeps) bot.HandlerFunc {
	return imageHandler{deps}.Handle
}

type imageHandler struct {
	deps HandlerDeps
}

func (h imageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "image")
	msgs := h.deps.Config.Messages

	cmd, ok := parseMessage(ctx, log, h.deps, update)
	if !ok {
		return
	}
	msg := update.Message
	if cmd.Err != nil {
		reply(ctx, b, log, msg, msgs.UsageImage)
		return
	}
	if h.deps.AIClient == nil {
		log.ErrorContext(ctx, "AI client is not configured")
		reply(ctx, b, log, msg, msgs.AIError)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	placeholder, err := b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: msg.Chat.ID, Text: msgs.ImageGenerating})
	cancel()
	if err != nil {
		log.WarnContext(ctx, "Failed to send placeholder message", "error", err, "chat_id", msg.Chat.ID)
	} else {
		defer h.deletePlaceholder(ctx, b, log, msg.Chat.ID, placeholder.ID)
	}

	stop := startChatAction(ctx, b, log, msg.Chat.ID, models.ChatActionUploadPhoto)
	img, err := h.deps.AIClient.GenerateImage(ctx, cmd.Prompt)
	stop()
	if err != nil {
		log.ErrorContext(ctx, "Image generation failed", "error", err, "chat_id", msg.Chat.ID)
		reply(ctx, b, log, msg, aiErrorText(h.deps, err))
		return
	}

	sendCtx, cancel = context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()
	_, err = b.SendPhoto(sendCtx, &bot.SendPhotoParams{
		ChatID:          msg.Chat.ID,
		Photo:           photoFile(img),
		Caption:         truncateRunes(cmd.Prompt, maxCaptionLength),
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID, AllowSendingWithoutReply: true},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send generated image", "error", err, "chat_id", msg.Chat.ID)
		reply(ctx, b, log, msg, msgs.GeneralError)
		return
	}

	log.InfoContext(ctx, "Image sent", "chat_id", msg.Chat.ID)
}

func (h imageHandler) deletePlaceholder(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, messageID int) {
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendMessageTimeout)
	defer cancel()

	if _, err := b.DeleteMessage(delCtx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: messageID}); err != nil {
		log.WarnContext(ctx, "Failed to delete placeholder message", "error", err, "chat_id", chatID, "message_id", messageID)
	}
}

// photoFile picks the upload form matching img.
func photoFile(img *ai.Image) models.InputFile {
	if img.URL != "" {
		return &models.InputFileString{Data: img.URL}
	}
	return &models.InputFileUpload{Filename: "image.png", Data: bytes.NewReader(img.Data)}
}

func aiErrorText(deps HandlerDeps, err error) string {
	msgs := deps.Config.Messages
	switch {
	case errors.Is(err, ai.ErrEmptyResponse):
		return msgs.AIEmptyResponse
	case errors.Is(err, context.DeadlineExceeded):
		return msgs.Timeout
	default:
		return msgs.AIError
	}
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
