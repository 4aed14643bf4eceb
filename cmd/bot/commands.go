package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/deadlinebot/internal/ai"
	"github.com/edgard/deadlinebot/internal/bot"
	"github.com/edgard/deadlinebot/internal/bot/handlers"
	"github.com/edgard/deadlinebot/internal/bot/tasks"
	"github.com/edgard/deadlinebot/internal/config"
	"github.com/edgard/deadlinebot/internal/database"
	"github.com/edgard/deadlinebot/internal/deadlines"
	"github.com/edgard/deadlinebot/internal/httpserver"
	"github.com/edgard/deadlinebot/internal/logger"
	"github.com/edgard/deadlinebot/internal/sanitize"
	"github.com/edgard/deadlinebot/internal/telegram"
	"github.com/edgard/deadlinebot/internal/timezone"
)

// setup loads the configuration and builds the logger.
func setup(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return nil, nil, err
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)
	return cfg, log, nil
}

func openDB(cfg *config.Config, log *slog.Logger) (*sqlx.DB, error) {
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return nil, err
	}
	return db, nil
}

func taskDeps(cfg *config.Config, log *slog.Logger, store database.Store, notifier tasks.Notifier) tasks.TaskDeps {
	return tasks.TaskDeps{
		Logger:     log,
		Store:      store,
		Normalizer: timezone.NewNormalizer(cfg.Deadlines.UTCOffsetHours),
		Notifier:   notifier,
		Config:     cfg,
	}
}

// serve builds every component and runs the bot until ctx is cancelled.
func serve(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}

	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	normalizer := timezone.NewNormalizer(cfg.Deadlines.UTCOffsetHours)
	svc := deadlines.NewService(store, normalizer, deadlines.Config{
		WindowDays: cfg.Deadlines.WindowDays,
		AuthorIDs:  cfg.Telegram.AuthorIDs,
		TimePassed: cfg.Messages.TimePassed,
	}, log)

	aiClient, err := ai.NewClient(ctx, cfg.AI, log)
	if err != nil {
		log.Error("Failed to initialize AI client", "error", err)
		return err
	}

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Deadlines: svc,
		AIClient:  aiClient,
		Limiter:   handlers.NewRateLimiter(cfg.AI.RateLimitPerMinute, cfg.AI.RateLimitBurst),
		Sanitizer: sanitize.NewTelegramPolicy(),
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewDefaultHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return err
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return fmt.Errorf("%w: get bot info: %w", telegram.ErrTransport, err)
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return err
	}
	if err := telegram.SetCommands(ctx, tg, cmdHandlers); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	notifier := telegram.NewNotifier(tg, cfg.Telegram.SendTimeout, log)
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(taskDeps(cfg, log, store, notifier)))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	var httpServer bot.Runner
	if cfg.HTTP.Addr != "" {
		httpServer = httpserver.New(cfg.HTTP.Addr, store, log)
	}

	app := bot.NewBot(log, cfg, tg, sched, notifier, httpServer)

	log.Info("Starting bot")
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return runErr
	}

	log.Info("Bot stopped gracefully")
	return nil
}

// migrateDB applies pending migrations; NewDB runs them on open.
func migrateDB(_ context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}

	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	database.CloseDB(db)

	log.Info("Database is up to date", "path", cfg.Database.Path)
	return nil
}

// remindOnce runs a single reminder firing, outside the schedule.
func remindOnce(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}

	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return err
	}

	notifier := telegram.NewNotifier(tg, cfg.Telegram.SendTimeout, log)
	task := tasks.NewDeadlineReminderTask(taskDeps(cfg, log, store, notifier))
	if err := task(ctx); err != nil {
		log.Error("Reminder firing failed", "error", err)
		return err
	}
	return nil
}
