package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/sproutwell/sproutwell-api/internal/config"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/generation"
)

// retryBaseDelay is the base for exponential backoff between API attempts.
const retryBaseDelay = 2 * time.Second

// ContentGenerator implements generation.ContentGenerator using Google's
// Gemini API.
type ContentGenerator struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
	model  string
}

// NewContentGenerator creates a Gemini-backed worksheet content generator.
func NewContentGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*ContentGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &ContentGenerator{
		logger: logger.With("component", "gemini_content_generator"),
		config: cfg,
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// GenerateWorksheet produces structured worksheet content for the request.
// Transient API failures are retried with exponential backoff and jitter;
// safety blocks and malformed responses fail immediately.
func (g *ContentGenerator) GenerateWorksheet(
	ctx context.Context,
	req *domain.GenerationRequest,
	scores []*domain.DomainScore,
) (*generation.GeneratedWorksheet, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request cannot be nil", generation.ErrGenerationFailed)
	}

	prompt, err := renderContentPrompt(req, scores)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	g.logger.DebugContext(ctx, "content prompt rendered",
		"prompt_length", len(prompt),
		"data_source", string(req.DataSource))

	schema, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return parseWorksheetSchema(schema)
}

// callWithRetry calls the Gemini API with exponential backoff on transient
// errors. Permanent errors (safety blocks, unparseable responses) return
// immediately.
func (g *ContentGenerator) callWithRetry(ctx context.Context, prompt string) (*worksheetSchema, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptNum := attempt + 1
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1,
			"model", g.model)

		schema, transient, err := g.generateOnce(ctx, prompt)
		if err == nil {
			g.logger.InfoContext(ctx, "Gemini API call successful", "attempt", attemptNum)
			return schema, nil
		}
		lastErr = err

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		if !transient {
			return nil, err
		}
		if attempt >= maxRetries {
			break
		}

		// delay = base * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(retryBaseDelay) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		g.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attemptNum,
			"delay", delay.String())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w: exceeded maximum attempts (%d): %v",
		generation.ErrTransientFailure, maxRetries+1, lastErr)
}

// generateOnce performs a single API call. The second return value reports
// whether a failure is worth retrying.
func (g *ContentGenerator) generateOnce(ctx context.Context, prompt string) (*worksheetSchema, bool, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		// Network and server-side failures are assumed transient.
		return nil, true, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, false, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, false, fmt.Errorf("%w: worksheet prompt rejected by safety filters",
			generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return nil, false, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, false, fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}

	var schema worksheetSchema
	if err := json.Unmarshal([]byte(text), &schema); err != nil {
		return nil, false, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}

	return &schema, false, nil
}

// parseWorksheetSchema validates the model's envelope and converts it to the
// generation result type.
func parseWorksheetSchema(schema *worksheetSchema) (*generation.GeneratedWorksheet, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: response is nil", generation.ErrInvalidResponse)
	}
	if strings.TrimSpace(schema.Title) == "" {
		return nil, fmt.Errorf("%w: missing worksheet title", generation.ErrInvalidResponse)
	}
	if len(schema.Content) == 0 || string(schema.Content) == "null" {
		return nil, fmt.Errorf("%w: missing worksheet content", generation.ErrInvalidResponse)
	}
	if schema.AgeRangeMinMonths < 0 || schema.AgeRangeMaxMonths < schema.AgeRangeMinMonths {
		return nil, fmt.Errorf("%w: invalid age range %d-%d months",
			generation.ErrInvalidResponse, schema.AgeRangeMinMonths, schema.AgeRangeMaxMonths)
	}

	prompts := make([]string, 0, len(schema.ImagePrompts))
	for _, p := range schema.ImagePrompts {
		if strings.TrimSpace(p) != "" {
			prompts = append(prompts, p)
		}
	}

	return &generation.GeneratedWorksheet{
		Title:        schema.Title,
		Content:      schema.Content,
		AgeRangeMin:  schema.AgeRangeMinMonths,
		AgeRangeMax:  schema.AgeRangeMaxMonths,
		ImagePrompts: prompts,
	}, nil
}

// Ensure ContentGenerator implements the generation interface.
var _ generation.ContentGenerator = (*ContentGenerator)(nil)
