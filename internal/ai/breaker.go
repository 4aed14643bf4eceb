package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned without calling the backend while the circuit
// breaker is open.
var ErrUnavailable = errors.New("ai backend temporarily unavailable")

// BreakerConfig controls when the breaker opens and how long it stays open.
type BreakerConfig struct {
	MaxFailures int
	Cooldown    time.Duration
}

// breakerClient guards a Client with a circuit breaker so a failing backend
// is not hammered by every chat command.
type breakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// WithCircuitBreaker wraps next. Empty answers and cancelled requests do not
// count as backend failures.
func WithCircuitBreaker(next Client, cfg BreakerConfig, log *slog.Logger) Client {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	log = log.With("component", "ai_breaker")

	settings := gobreaker.Settings{
		Name:        "ai",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrEmptyResponse) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &breakerClient{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (c *breakerClient) execute(fn func() (any, error)) (any, error) {
	res, err := c.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return res, err
}

func (c *breakerClient) Complete(ctx context.Context, prompt string) (string, error) {
	res, err := c.execute(func() (any, error) { return c.next.Complete(ctx, prompt) })
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (c *breakerClient) Translate(ctx context.Context, targetLang, text string) (string, error) {
	res, err := c.execute(func() (any, error) { return c.next.Translate(ctx, targetLang, text) })
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (c *breakerClient) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	res, err := c.execute(func() (any, error) { return c.next.GenerateImage(ctx, prompt) })
	if err != nil {
		return nil, err
	}
	return res.(*Image), nil
}
