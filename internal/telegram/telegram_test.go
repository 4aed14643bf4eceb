package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/deadlinebot/internal/bot/handlers"
	"github.com/edgard/deadlinebot/internal/logger"
)

type fakeSender struct {
	params   []*bot.SendMessageParams
	err      error
	deadline bool
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	_, f.deadline = ctx.Deadline()
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{ID: len(f.params)}, nil
}

func TestNotifierSends(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := NewNotifier(sender, time.Second, logger.Discard())

	require.NoError(t, n.Notify(context.Background(), -100, "⏰ Deadline alert: Report is due!"))
	require.Len(t, sender.params, 1)
	assert.Equal(t, int64(-100), sender.params[0].ChatID)
	assert.Equal(t, "⏰ Deadline alert: Report is due!", sender.params[0].Text)
	assert.True(t, sender.deadline)
}

func TestNotifierWrapsTransportError(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{err: errors.New("connection reset")}
	n := NewNotifier(sender, 0, logger.Discard())

	err := n.Notify(context.Background(), 1, "hi")
	assert.ErrorIs(t, err, ErrTransport)
	assert.False(t, sender.deadline)
}

type fakeRegistrar struct {
	patterns   []string
	handlers   []bot.HandlerFunc
	matchFuncs int
}

func (f *fakeRegistrar) RegisterHandlerMatchFunc(_ bot.MatchFunc, h bot.HandlerFunc, _ ...bot.Middleware) string {
	f.matchFuncs++
	f.handlers = append(f.handlers, h)
	return "match"
}

func (f *fakeRegistrar) RegisterHandler(_ bot.HandlerType, pattern string, _ bot.MatchType, h bot.HandlerFunc, _ ...bot.Middleware) string {
	f.patterns = append(f.patterns, pattern)
	f.handlers = append(f.handlers, h)
	return pattern
}

func TestRegisterHandlersAppliesMiddlewareInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				order = append(order, name)
				next(ctx, b, u)
			}
		}
	}

	reg := &fakeRegistrar{}
	err := RegisterHandlers(reg, logger.Discard(), map[string]handlers.RegisteredHandler{
		"/add": {
			HandlerType: bot.HandlerTypeMessageText,
			Pattern:     "add",
			MatchType:   bot.MatchTypeCommandStartOnly,
			Handler:     func(context.Context, *bot.Bot, *models.Update) { order = append(order, "handler") },
			Middleware:  []bot.Middleware{mw("outer"), mw("inner")},
		},
		"/nil": {Pattern: "nil"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"add"}, reg.patterns)
	require.Zero(t, reg.matchFuncs)

	reg.handlers[0](context.Background(), nil, &models.Update{})
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRegisterHandlersPrefersMatchFunc(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistrar{}
	err := RegisterHandlers(reg, logger.Discard(), map[string]handlers.RegisteredHandler{
		"/list": {
			Pattern:   "list",
			Handler:   func(context.Context, *bot.Bot, *models.Update) {},
			MatchFunc: func(*models.Update) bool { return true },
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.matchFuncs)
	assert.Empty(t, reg.patterns)
}

type fakeCommandSetter struct {
	params *bot.SetMyCommandsParams
}

func (f *fakeCommandSetter) SetMyCommands(_ context.Context, params *bot.SetMyCommandsParams) (bool, error) {
	f.params = params
	return true, nil
}

func TestSetCommandsListsDescribedHandlers(t *testing.T) {
	t.Parallel()

	setter := &fakeCommandSetter{}
	err := SetCommands(context.Background(), setter, map[string]handlers.RegisteredHandler{
		"/remove": {Pattern: "remove", Description: "Remove a deadline"},
		"/add":    {Pattern: "add", Description: "Add a deadline"},
		"/hidden": {Pattern: "hidden"},
	})
	require.NoError(t, err)
	require.NotNil(t, setter.params)
	assert.Equal(t, []models.BotCommand{
		{Command: "add", Description: "Add a deadline"},
		{Command: "remove", Description: "Remove a deadline"},
	}, setter.params.Commands)
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewTelegramBot("", logger.Discard())
	assert.Error(t, err)
}
