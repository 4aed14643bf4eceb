// Package tasks implements the scheduled tasks of the deadline bot along with
// their dependencies and registration.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/deadlinebot/internal/config"
	"github.com/edgard/deadlinebot/internal/database"
	"github.com/edgard/deadlinebot/internal/timezone"
)

// Notifier delivers a text message to an audience (a Telegram chat id).
type Notifier interface {
	Notify(ctx context.Context, audience int64, text string) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger     *slog.Logger
	Store      database.Store
	Normalizer *timezone.Normalizer
	Notifier   Notifier
	Config     *config.Config
}
