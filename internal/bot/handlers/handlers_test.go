package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/deadlinebot/internal/ai"
	"github.com/edgard/deadlinebot/internal/command"
	"github.com/edgard/deadlinebot/internal/config"
	"github.com/edgard/deadlinebot/internal/database"
	"github.com/edgard/deadlinebot/internal/deadlines"
	"github.com/edgard/deadlinebot/internal/logger"
	"github.com/edgard/deadlinebot/internal/sanitize"
	"github.com/edgard/deadlinebot/internal/timezone"
)

const (
	testToken   = "123456:test-token"
	authorID    = int64(42)
	strangerID  = int64(7)
	groupChatID = int64(-100)
)

type apiCall struct {
	method string
	form   map[string]string
}

// fakeTelegram records Bot API calls and answers them with canned results.
type fakeTelegram struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	form := map[string]string{}
	if err := r.ParseMultipartForm(1 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		for k := range r.MultipartForm.File {
			form[k] = "<file>"
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, form: form})
	id := len(f.calls)
	f.mu.Unlock()

	var result any = true
	switch method {
	case "sendMessage", "sendPhoto":
		result = map[string]any{"message_id": id, "date": 0, "chat": map[string]any{"id": groupChatID, "type": "group"}}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeTelegram) byMethod(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTelegram) texts() []string {
	var out []string
	for _, c := range f.byMethod("sendMessage") {
		out = append(out, c.form["text"])
	}
	return out
}

type fakeAI struct {
	answer string
	image  *ai.Image
	err    error

	prompts []string
}

func (f *fakeAI) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeAI) Translate(_ context.Context, targetLang, text string) (string, error) {
	f.prompts = append(f.prompts, targetLang+":"+text)
	return f.answer, f.err
}

func (f *fakeAI) GenerateImage(_ context.Context, prompt string) (*ai.Image, error) {
	f.prompts = append(f.prompts, prompt)
	return f.image, f.err
}

type testEnv struct {
	deps HandlerDeps
	tg   *fakeTelegram
	bot  *bot.Bot
	ai   *fakeAI
}

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
telegram:
  token: "` + testToken + `"
  author_ids: [42]
  allowed_group_ids: [-100]
  reminder_chat_id: -100
ai:
  api_key: "test"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	cfg.Telegram.BotInfo = &models.User{ID: 1, IsBot: true, Username: "deadline_bot"}
	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := loadTestConfig(t)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "deadlines.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	clock := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	normalizer := timezone.NewNormalizer(cfg.Deadlines.UTCOffsetHours, timezone.WithClock(clock))
	svc := deadlines.NewService(database.NewStore(db, logger.Discard()), normalizer, deadlines.Config{
		WindowDays: cfg.Deadlines.WindowDays,
		AuthorIDs:  cfg.Telegram.AuthorIDs,
		TimePassed: cfg.Messages.TimePassed,
	}, logger.Discard())

	tg := &fakeTelegram{}
	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	b, err := bot.New(testToken, bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)

	fake := &fakeAI{answer: "42"}
	return &testEnv{
		deps: HandlerDeps{
			Logger:    logger.Discard(),
			Config:    cfg,
			Deadlines: svc,
			AIClient:  fake,
			Limiter:   NewRateLimiter(60, 1),
			Sanitizer: sanitize.NewTelegramPolicy(),
		},
		tg:  tg,
		bot: b,
		ai:  fake,
	}
}

func textUpdate(from int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			Text: text,
			Chat: models.Chat{ID: groupChatID, Type: models.ChatTypeGroup},
			From: &models.User{ID: from},
		},
	}
}

// dispatch routes text the way RegisterHandlers wires the bot.
func (e *testEnv) dispatch(t *testing.T, from int64, text string) {
	t.Helper()

	update := textUpdate(from, text)
	for _, h := range RegisterAllCommands(e.deps) {
		if h.MatchFunc(update) {
			handler := h.Handler
			for i := len(h.Middleware) - 1; i >= 0; i-- {
				handler = h.Middleware[i](handler)
			}
			handler(context.Background(), e.bot, update)
			return
		}
	}
	NewDefaultHandler(e.deps)(context.Background(), e.bot, update)
}

func TestAddListRemoveFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	msgs := env.deps.Config.Messages

	env.dispatch(t, authorID, "/add Quarterly report 2024-05-03 18:00")
	env.dispatch(t, authorID, "/upcoming_tasks")
	env.dispatch(t, authorID, "/remove 1")
	env.dispatch(t, authorID, "/remove 1")
	env.dispatch(t, authorID, "/list")

	texts := env.tg.texts()
	require.Len(t, texts, 5)
	assert.Equal(t, "Deadline added (#1): Quarterly report on 2024-05-03 18:00", texts[0])
	assert.Equal(t, "Upcoming 10 days tasks:\n#1 Quarterly report - 2024-05-03 18:00 (time left: 2 days, 9 hours)", texts[1])
	assert.Equal(t, msgs.Removed, texts[2])
	assert.Equal(t, msgs.Removed, texts[3])
	assert.Equal(t, msgs.NoTasks, texts[4])
}

func TestModifyKeepsID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.dispatch(t, authorID, "/add Draft 2024-05-02 10:00")
	env.dispatch(t, authorID, "/modify 1 Final draft 2024-05-04 10:00")
	env.dispatch(t, authorID, "/list")

	texts := env.tg.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, "Deadline updated: Final draft on 2024-05-04 10:00", texts[1])
	assert.True(t, strings.HasPrefix(texts[2], "All tasks:\n#1 Final draft - 2024-05-04 10:00"), texts[2])
}

func TestModifyMissingIDIsAcknowledged(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.dispatch(t, authorID, "/modify 9 Ghost 2024-05-05 10:00")
	env.dispatch(t, authorID, "/list")

	texts := env.tg.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "Deadline updated: Ghost on 2024-05-05 10:00", texts[0])
	assert.Equal(t, env.deps.Config.Messages.NoTasks, texts[1])
}

func TestDeadlineCommandErrors(t *testing.T) {
	t.Parallel()

	cfg := loadTestConfig(t)
	msgs := cfg.Messages

	tests := map[string]struct {
		from int64
		text string
		want string
	}{
		"missing date":     {authorID, "/add Report", msgs.UsageAdd},
		"invalid calendar": {authorID, "/add Report 2024-02-30 10:00", msgs.InvalidDate},
		"modify usage":     {authorID, "/modify x Report 2024-05-01 10:00", msgs.UsageModify},
		"remove usage":     {authorID, "/remove", msgs.UsageRemove},
		"not an author":    {strangerID, "/add Report 2024-05-03 10:00", msgs.NotAuthorized},
		"unknown command":  {authorID, "/frobnicate", msgs.Unknown},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)

			env.dispatch(t, tt.from, tt.text)
			assert.Equal(t, []string{tt.want}, env.tg.texts())
		})
	}
}

func TestCommandsForOtherBotsAreIgnored(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.dispatch(t, authorID, "/list@other_bot")
	env.dispatch(t, authorID, "just chatting")
	assert.Empty(t, env.tg.texts())

	env.dispatch(t, authorID, "/list@deadline_bot")
	assert.Equal(t, []string{env.deps.Config.Messages.NoTasks}, env.tg.texts())
}

func TestOverdueListing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.dispatch(t, authorID, "/add Old 2024-04-30 10:00")
	env.dispatch(t, authorID, "/add New 2024-05-30 10:00")
	env.dispatch(t, authorID, "/overdue")

	texts := env.tg.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, "Overdue tasks:\n#1 Old - 2024-04-30 10:00 (time left: Time passed)", texts[2])
}

func TestAskAndTranslate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.dispatch(t, strangerID, "/ask what is the answer?")
	env.dispatch(t, authorID, "/translate pt good morning")

	assert.Equal(t, []string{"what is the answer?", "pt:good morning"}, env.ai.prompts)
	assert.Equal(t, []string{"42", "42"}, env.tg.texts())
	assert.NotEmpty(t, env.tg.byMethod("sendChatAction"))
}

func TestAskStripsMarkdown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.ai.answer = "The answer is **42**."

	env.dispatch(t, authorID, "/ask what is the answer?")
	assert.Equal(t, []string{"The answer is 42."}, env.tg.texts())
}

func TestAIErrorsAreMapped(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	msgs := env.deps.Config.Messages

	env.ai.err = ai.ErrEmptyResponse
	env.dispatch(t, authorID, "/ask hello")
	env.ai.err = errors.New("backend down")
	env.dispatch(t, strangerID, "/ask hello")

	assert.Equal(t, []string{msgs.AIEmptyResponse, msgs.AIError}, env.tg.texts())
}

func TestAICommandsOutsideAllowedGroup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	update := textUpdate(authorID, "/ask hi")
	update.Message.Chat.ID = -999
	h := RegisterAllCommands(env.deps)["/ask"]
	handler := AllowedGroupsOnly(env.deps)(h.Handler)
	handler(context.Background(), env.bot, update)

	assert.Empty(t, env.ai.prompts)
	calls := env.tg.byMethod("sendMessage")
	require.Len(t, calls, 1)
	assert.Equal(t, env.deps.Config.Messages.GroupNotAllowed, calls[0].form["text"])
}

func TestRateLimitPerUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.dispatch(t, authorID, "/ask one")
	env.dispatch(t, authorID, "/ask two")
	env.dispatch(t, strangerID, "/ask three")

	assert.Equal(t, []string{"one", "three"}, env.ai.prompts)
	assert.Contains(t, env.tg.texts(), env.deps.Config.Messages.RateLimited)
}

func TestImageHandlerSendsPhotoAndDeletesPlaceholder(t *testing.T) {
	t.Parallel()

	tests := map[string]*ai.Image{
		"url":    {URL: "https://example.com/cat.png"},
		"upload": {Data: []byte("\x89PNG"), MIMEType: "image/png"},
	}

	for name, img := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			env.ai.image = img

			env.dispatch(t, authorID, "/image a cat")

			assert.Equal(t, []string{env.deps.Config.Messages.ImageGenerating}, env.tg.texts())
			photos := env.tg.byMethod("sendPhoto")
			require.Len(t, photos, 1)
			assert.Equal(t, "a cat", photos[0].form["caption"])
			if img.URL != "" {
				assert.Equal(t, img.URL, photos[0].form["photo"])
			} else {
				assert.Equal(t, "<file>", photos[0].form["photo"])
			}

			deletes := env.tg.byMethod("deleteMessage")
			require.Len(t, deletes, 1)
			assert.Equal(t, "1", deletes[0].form["message_id"])
		})
	}
}

func TestSplitText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"short"}, splitText("short", 10))
	assert.Equal(t, []string{"aaaa", "bbbb"}, splitText("aaaa\nbbbb", 6))
	assert.Equal(t, []string{"abcde", "fgh"}, splitText("abcdefgh", 5))
}

func TestAddressedToBot(t *testing.T) {
	t.Parallel()

	assert.True(t, addressedToBot("/nope", "deadline_bot"))
	assert.True(t, addressedToBot("/nope@Deadline_Bot arg", "deadline_bot"))
	assert.False(t, addressedToBot("/nope@other_bot", "deadline_bot"))
	assert.False(t, addressedToBot("hello", "deadline_bot"))
}

func TestRegisterAllCommandsCoversEveryKind(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	registered := RegisterAllCommands(env.deps)
	for k := command.Start; k <= command.Image; k++ {
		h, ok := registered["/"+k.String()]
		require.True(t, ok, k.String())
		assert.NotNil(t, h.Handler)
		assert.Equal(t, k.Mutating(), len(h.Middleware) == 1, k.String())
	}
}
