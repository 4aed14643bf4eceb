package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey      string
	TextModel   string
	ImageModel  string
	Instruction string
	Temperature float32
	Timeout     time.Duration
}

type geminiClient struct {
	genaiClient   *genai.Client
	cfg           GeminiConfig
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	maxRetries    int
	retryDelay    time.Duration
}

// NewGeminiClient creates a Client backed by the Gemini API.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	baseCfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if cfg.Instruction != "" {
		baseCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.Instruction}}}
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "text_model", cfg.TextModel, "image_model", cfg.ImageModel)

	return &geminiClient{
		genaiClient:   gi,
		cfg:           cfg,
		log:           logger,
		contentConfig: baseCfg,
		maxRetries:    defaultMaxRetries,
		retryDelay:    defaultRetryDelay,
	}, nil
}

func geminiRetriable(err error) bool {
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == 500 || apiErrPtr.Code == 503
	}
	// The SDK returns APIError by value from some call paths.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 500 || apiErr.Code == 503
	}
	return false
}

func (c *geminiClient) generate(ctx context.Context, cfg *genai.GenerateContentConfig, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var resp *genai.GenerateContentResponse
	err := withRetries(ctx, c.log, c.maxRetries, c.retryDelay, geminiRetriable, func() error {
		var callErr error
		resp, callErr = c.genaiClient.Models.GenerateContent(ctx, c.cfg.TextModel, contents, cfg)
		return callErr
	})
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini content generation failed", "error", err)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.WarnContext(ctx, "Gemini request blocked", "reason", reason)
		return "", fmt.Errorf("blocked by safety filter: %s: %w", reason, ErrEmptyResponse)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		c.log.WarnContext(ctx, "Gemini response missing candidates or content")
		return "", ErrEmptyResponse
	}

	return cleanText(resp.Text())
}

// Complete answers prompt using the configured system instruction.
func (c *geminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.log.DebugContext(ctx, "Generating completion", "prompt_len", len(prompt))
	return c.generate(ctx, c.contentConfig, prompt)
}

// Translate renders text in targetLang.
func (c *geminiClient) Translate(ctx context.Context, targetLang, text string) (string, error) {
	c.log.DebugContext(ctx, "Translating text", "target_lang", targetLang, "text_len", len(text))

	copyCfg := *c.contentConfig
	copyCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: translatePrompt(targetLang)}}}
	return c.generate(ctx, &copyCfg, text)
}

// GenerateImage asks the Imagen model for one picture.
func (c *geminiClient) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var resp *genai.GenerateImagesResponse
	err := withRetries(ctx, c.log, c.maxRetries, c.retryDelay, geminiRetriable, func() error {
		var callErr error
		resp, callErr = c.genaiClient.Models.GenerateImages(ctx, c.cfg.ImageModel, prompt, &genai.GenerateImagesConfig{
			NumberOfImages: 1,
		})
		return callErr
	})
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini image generation failed", "error", err)
		return nil, fmt.Errorf("gemini image generation failed: %w", err)
	}

	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, ErrEmptyResponse
	}

	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &Image{Data: img.ImageBytes, MIMEType: mimeType}, nil
}
