// Package ai provides the LLM capability gateway: text completion,
// translation and image generation behind one interface, with OpenAI and
// Gemini implementations.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when the backend answers without usable content.
var ErrEmptyResponse = errors.New("ai backend returned an empty response")

// Client defines the LLM operations used by the command handlers.
type Client interface {
	// Complete answers a free-form prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// Translate renders text in targetLang.
	Translate(ctx context.Context, targetLang, text string) (string, error)

	// GenerateImage draws an image for prompt.
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// Image is a generated picture. Exactly one of URL or Data is set.
type Image struct {
	URL      string
	Data     []byte
	MIMEType string
}

const translateInstruction = "Translate the user's text into %s. Reply with the translation only, without quotes or commentary."

func translatePrompt(targetLang string) string {
	return fmt.Sprintf(translateInstruction, targetLang)
}

const (
	defaultMaxRetries = 2
	defaultRetryDelay = 2 * time.Second
)

// withRetries calls fn until it succeeds, returns a non-retriable error or
// runs out of attempts. Waiting between attempts honours ctx.
func withRetries(ctx context.Context, log *slog.Logger, maxRetries int, delay time.Duration, retriable func(error) bool, fn func() error) error {
	var err error
	for i := 0; i <= maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !retriable(err) {
			return err
		}
		if i == maxRetries {
			log.ErrorContext(ctx, "AI call failed after max retries", "attempts", i+1, "error", err)
			return fmt.Errorf("failed after %d retries: %w", maxRetries, err)
		}

		log.WarnContext(ctx, "AI call failed with retriable error, retrying", "attempt", i+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func cleanText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyResponse
	}
	return s, nil
}
