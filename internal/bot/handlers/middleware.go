// Package handlers contains Telegram bot command handlers, along with their
// registration logic and middleware.
package handlers

import (
	"context"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"
)

// AuthorsOnly creates a middleware that lets only configured authors through.
// Anyone else gets the not-authorized message and the handler is skipped.
func AuthorsOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}

			userID := update.Message.From.ID
			if !deps.Deadlines.IsAuthor(userID) {
				log := deps.Logger.With("middleware", "AuthorsOnly")
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", update.Message.Chat.ID)
				reply(ctx, bot, log, update.Message, deps.Config.Messages.NotAuthorized)
				return
			}

			next(ctx, bot, update)
		}
	}
}

// AllowedGroupsOnly creates a middleware that lets through only messages from
// allow-listed group chats.
func AllowedGroupsOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil {
				return
			}

			chatID := update.Message.Chat.ID
			if !deps.Config.IsAllowedGroup(chatID) {
				log := deps.Logger.With("middleware", "AllowedGroupsOnly")
				log.WarnContext(ctx, "Command used outside allowed groups", "chat_id", chatID)
				reply(ctx, bot, log, update.Message, deps.Config.Messages.GroupNotAllowed)
				return
			}

			next(ctx, bot, update)
		}
	}
}

// RateLimit creates a middleware that throttles each user with the shared
// deps.Limiter. A nil limiter disables throttling.
func RateLimit(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if deps.Limiter == nil || update.Message == nil || update.Message.From == nil {
				next(ctx, bot, update)
				return
			}

			userID := update.Message.From.ID
			if !deps.Limiter.Allow(userID) {
				log := deps.Logger.With("middleware", "RateLimit")
				log.InfoContext(ctx, "Rate limit exceeded", "user_id", userID)
				reply(ctx, bot, log, update.Message, deps.Config.Messages.RateLimited)
				return
			}

			next(ctx, bot, update)
		}
	}
}

// RateLimiter keeps one token bucket per user.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[int64]*rate.Limiter
	every  rate.Limit
	burst  int
}

// NewRateLimiter allows perMinute requests per user with the given burst.
func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	return &RateLimiter{
		limits: make(map[int64]*rate.Limiter),
		every:  rate.Limit(perMinute / time.Minute.Seconds()),
		burst:  burst,
	}
}

func (rl *RateLimiter) getLimiter(userID int64) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[userID]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rl.every, rl.burst)
	rl.limits[userID] = limiter
	return limiter
}

// Allow reports whether userID may make a request now.
func (rl *RateLimiter) Allow(userID int64) bool {
	return rl.getLimiter(userID).Allow()
}
