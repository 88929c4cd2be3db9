package generation

import (
	"context"
	"encoding/json"

	"github.com/sproutwell/sproutwell-api/internal/domain"
)

// GeneratedWorksheet is the content production result handed back to the
// lifecycle layer. Content is the structured worksheet document; ImagePrompts
// describe the illustrations to produce in a second pass.
type GeneratedWorksheet struct {
	Title        string
	Content      json.RawMessage
	AgeRangeMin  int // months
	AgeRangeMax  int // months
	ImagePrompts []string
}

// ContentGenerator defines the interface for producing worksheet content.
// This interface is the boundary between the application core and external
// AI/LLM services, following the hexagonal architecture pattern.
type ContentGenerator interface {
	// GenerateWorksheet produces structured worksheet content from an
	// accepted generation request. Screening scores are supplied when the
	// request draws on screening data, so weak domains can shape the
	// content; nil otherwise.
	GenerateWorksheet(
		ctx context.Context,
		req *domain.GenerationRequest,
		scores []*domain.DomainScore,
	) (*GeneratedWorksheet, error)
}

// ImageGenerator defines the interface for producing worksheet illustrations.
type ImageGenerator interface {
	// GenerateImage renders one illustration from the given prompt and
	// returns the stored asset URL.
	GenerateImage(ctx context.Context, prompt string, colorMode domain.ColorMode) (string, error)
}
