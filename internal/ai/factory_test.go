package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/deadlinebot/internal/config"
	"github.com/edgard/deadlinebot/internal/logger"
)

func TestNewClientSelectsProvider(t *testing.T) {
	t.Parallel()

	cfg := config.AIConfig{
		Provider:           "openai",
		APIKey:             "test",
		TextModel:          "gpt-4o-mini",
		ImageModel:         "dall-e-3",
		Timeout:            time.Second,
		BreakerMaxFailures: 3,
		BreakerCooldown:    time.Minute,
	}

	client, err := NewClient(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	breaker, ok := client.(*breakerClient)
	require.True(t, ok)
	assert.IsType(t, &openAIClient{}, breaker.next)

	cfg.Provider = "llama"
	_, err = NewClient(context.Background(), cfg, logger.Discard())
	assert.ErrorContains(t, err, "unknown AI provider")
}
