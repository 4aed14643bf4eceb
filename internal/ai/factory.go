package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgard/deadlinebot/internal/config"
)

// NewClient selects the backend named by cfg.Provider and guards it with a
// circuit breaker.
func NewClient(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (Client, error) {
	client, err := newBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return WithCircuitBreaker(client, BreakerConfig{
		MaxFailures: cfg.BreakerMaxFailures,
		Cooldown:    cfg.BreakerCooldown,
	}, log), nil
}

func newBackend(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (Client, error) {
	if log == nil {
		log = slog.Default()
	}
	log.Info("Initializing AI client", "provider", cfg.Provider)

	switch cfg.Provider {
	case "openai":
		client, err := NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			TextModel:   cfg.TextModel,
			ImageModel:  cfg.ImageModel,
			Instruction: cfg.Instruction,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return client, nil
	case "gemini":
		client, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			TextModel:   cfg.TextModel,
			ImageModel:  cfg.ImageModel,
			Instruction: cfg.Instruction,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown AI provider specified: %s", cfg.Provider)
	}
}
