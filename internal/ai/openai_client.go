package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	ImageModel  string
	Instruction string
	Temperature float32
	Timeout     time.Duration
}

type openAIClient struct {
	client     *openai.Client
	cfg        OpenAIConfig
	log        *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIClient creates a Client backed by the OpenAI API or any
// compatible endpoint given in BaseURL.
func NewOpenAIClient(cfg OpenAIConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	logger := log.With("component", "openai_client")
	logger.Info("OpenAI client initialized successfully", "text_model", cfg.TextModel, "image_model", cfg.ImageModel)

	return &openAIClient{
		client:     openai.NewClientWithConfig(clientConfig),
		cfg:        cfg,
		log:        logger,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}, nil
}

func openAIRetriable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode == http.StatusInternalServerError ||
			apiErr.HTTPStatusCode == http.StatusServiceUnavailable
	}
	return false
}

func (c *openAIClient) chat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.TextModel,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
	}

	var resp openai.ChatCompletionResponse
	err := withRetries(ctx, c.log, c.maxRetries, c.retryDelay, openAIRetriable, func() error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		c.log.ErrorContext(ctx, "OpenAI chat completion failed", "error", err)
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.log.WarnContext(ctx, "OpenAI response has no choices")
		return "", ErrEmptyResponse
	}
	return cleanText(resp.Choices[0].Message.Content)
}

// Complete answers prompt with the configured instruction as system message.
func (c *openAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.log.DebugContext(ctx, "Generating completion", "prompt_len", len(prompt))
	return c.chat(ctx, c.cfg.Instruction, prompt)
}

// Translate renders text in targetLang.
func (c *openAIClient) Translate(ctx context.Context, targetLang, text string) (string, error) {
	c.log.DebugContext(ctx, "Translating text", "target_lang", targetLang, "text_len", len(text))
	return c.chat(ctx, translatePrompt(targetLang), text)
}

// GenerateImage asks the image model for one picture and returns its URL, or
// the decoded bytes when the endpoint answers with base64.
func (c *openAIClient) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.cfg.ImageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}

	var resp openai.ImageResponse
	err := withRetries(ctx, c.log, c.maxRetries, c.retryDelay, openAIRetriable, func() error {
		var callErr error
		resp, callErr = c.client.CreateImage(ctx, req)
		return callErr
	})
	if err != nil {
		c.log.ErrorContext(ctx, "OpenAI image generation failed", "error", err)
		return nil, fmt.Errorf("openai image generation failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	img := resp.Data[0]
	switch {
	case img.URL != "":
		return &Image{URL: img.URL}, nil
	case img.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}
		return &Image{Data: data, MIMEType: "image/png"}, nil
	default:
		return nil, ErrEmptyResponse
	}
}
