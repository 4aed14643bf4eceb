// Package bot implements lifecycle management and component orchestration
// for the deadline bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/deadlinebot/internal/bot/tasks"
	"github.com/edgard/deadlinebot/internal/config"
)

// Poller receives updates until its context is cancelled. *bot.Bot
// satisfies it.
type Poller interface {
	Start(ctx context.Context)
}

// Runner is a component that runs until its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	poller    Poller
	scheduler *Scheduler
	notifier  tasks.Notifier
	http      Runner
}

// NewBot creates a new instance of the bot. httpServer may be nil when the
// status surface is disabled.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	poller Poller,
	scheduler *Scheduler,
	notifier tasks.Notifier,
	httpServer Runner,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		poller:    poller,
		scheduler: scheduler,
		notifier:  notifier,
		http:      httpServer,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener")

		b.poller.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	if b.http != nil {
		g.Go(func() error {
			return b.http.Run(gCtx)
		})
	}

	b.announceStartup(gCtx)

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}

// announceStartup tells the reminder chat that the bot is online. Failure is
// only logged.
func (b *Bot) announceStartup(ctx context.Context) {
	if b.notifier == nil || b.cfg.Messages.Startup == "" {
		return
	}
	if err := b.notifier.Notify(ctx, b.cfg.Telegram.ReminderChatID, b.cfg.Messages.Startup); err != nil {
		b.logger.WarnContext(ctx, "Failed to send startup message", "error", err)
	}
}
