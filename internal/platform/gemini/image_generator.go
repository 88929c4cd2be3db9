package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/sproutwell/sproutwell-api/internal/config"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/generation"
)

// ImageGenerator implements generation.ImageGenerator using Google's Imagen
// models through the genai SDK. Produced images are returned as data URLs;
// durable asset storage is a deployment concern handled behind the CDN
// upload pipeline, not here.
type ImageGenerator struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// NewImageGenerator creates a Gemini-backed illustration generator.
func NewImageGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*ImageGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ImageModelName == "" {
		return nil, fmt.Errorf("%w: image model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &ImageGenerator{
		logger: logger.With("component", "gemini_image_generator"),
		client: client,
		model:  cfg.ImageModelName,
	}, nil
}

// GenerateImage renders one illustration from the prompt, styled for the
// requested color mode.
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string, colorMode domain.ColorMode) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: image prompt cannot be empty", generation.ErrGenerationFailed)
	}

	styled := prompt + imagePromptSuffix(colorMode)

	g.logger.DebugContext(ctx, "generating illustration",
		"model", g.model,
		"prompt_length", len(styled))

	resp, err := g.client.Models.GenerateImages(ctx, g.model, styled, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return "", fmt.Errorf("%w: no image generated", generation.ErrInvalidResponse)
	}

	img := resp.GeneratedImages[0].Image
	if len(img.ImageBytes) == 0 {
		return "", fmt.Errorf("%w: empty image data", generation.ErrInvalidResponse)
	}

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	url := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.ImageBytes)

	g.logger.DebugContext(ctx, "illustration generated",
		"mime_type", mimeType,
		"bytes", len(img.ImageBytes))

	return url, nil
}

// Ensure ImageGenerator implements the generation interface.
var _ generation.ImageGenerator = (*ImageGenerator)(nil)
