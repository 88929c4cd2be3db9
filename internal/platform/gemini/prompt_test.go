package gemini

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/generation"
)

func sampleRequest() *domain.GenerationRequest {
	return &domain.GenerationRequest{
		DataSource:    domain.DataSourceManual,
		Type:          domain.WorksheetTypeActivity,
		TargetDomains: []domain.DevelopmentalDomain{domain.DomainFineMotor, domain.DomainCognitive},
		Difficulty:    domain.DifficultyDeveloping,
		Interests:     []string{"dinosaurs"},
		ImageCount:    2,
		Manual: &domain.ManualInput{
			ChildAgeMonths: 48,
			Concerns:       []string{"difficulty with scissor grip"},
		},
	}
}

func TestRenderContentPrompt(t *testing.T) {
	t.Parallel()

	prompt, err := renderContentPrompt(sampleRequest(), nil)
	require.NoError(t, err)

	assert.Contains(t, prompt, "ACTIVITY")
	assert.Contains(t, prompt, "FINE_MOTOR, COGNITIVE")
	assert.Contains(t, prompt, "DEVELOPING")
	assert.Contains(t, prompt, "48 months")
	assert.Contains(t, prompt, "difficulty with scissor grip")
	assert.Contains(t, prompt, "dinosaurs")
	assert.NotContains(t, prompt, "IEP goals")
	assert.NotContains(t, prompt, "session notes")
}

func TestRenderContentPromptIncludesWeakDomains(t *testing.T) {
	t.Parallel()

	scores := []*domain.DomainScore{
		{Domain: domain.DomainFineMotor, Score: 45},
		{Domain: domain.DomainCognitive, Score: 85},
	}

	prompt, err := renderContentPrompt(sampleRequest(), scores)
	require.NoError(t, err)

	assert.Contains(t, prompt, "prioritize them: FINE_MOTOR")
	assert.NotContains(t, prompt, "prioritize them: FINE_MOTOR, COGNITIVE")
}

func TestRenderContentPromptIEPGoals(t *testing.T) {
	t.Parallel()

	req := sampleRequest()
	req.DataSource = domain.DataSourceIEPGoals
	req.Manual = nil
	req.IEPGoals = &domain.IEPGoalsInput{
		Goals: []string{"will cut along a straight line", "will stack 6 blocks"},
	}

	prompt, err := renderContentPrompt(req, nil)
	require.NoError(t, err)

	assert.Contains(t, prompt, "will cut along a straight line")
	assert.Contains(t, prompt, "will stack 6 blocks")
}

func TestImagePromptSuffix(t *testing.T) {
	t.Parallel()

	assert.Contains(t, imagePromptSuffix(domain.ColorModeBlackWhite), "black and white")
	assert.Contains(t, imagePromptSuffix(domain.ColorModeFullColor), "full-color")
	assert.Contains(t, imagePromptSuffix(""), "full-color")
}

func TestParseWorksheetSchema(t *testing.T) {
	t.Parallel()

	valid := &worksheetSchema{
		Title:             "Dino Scissor Safari",
		Content:           json.RawMessage(`{"sections":[{"heading":"Warm up"}]}`),
		AgeRangeMinMonths: 42,
		AgeRangeMaxMonths: 54,
		ImagePrompts:      []string{"a friendly t-rex outline", "", "fern leaves to cut"},
	}

	result, err := parseWorksheetSchema(valid)
	require.NoError(t, err)
	assert.Equal(t, "Dino Scissor Safari", result.Title)
	assert.Equal(t, 42, result.AgeRangeMin)
	assert.Equal(t, 54, result.AgeRangeMax)
	assert.Equal(t, []string{"a friendly t-rex outline", "fern leaves to cut"}, result.ImagePrompts)
}

func TestParseWorksheetSchemaRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		schema *worksheetSchema
	}{
		{name: "nil schema", schema: nil},
		{
			name: "missing title",
			schema: &worksheetSchema{
				Content:           json.RawMessage(`{}`),
				AgeRangeMinMonths: 36,
				AgeRangeMaxMonths: 48,
			},
		},
		{
			name: "missing content",
			schema: &worksheetSchema{
				Title:             "Untitled",
				AgeRangeMinMonths: 36,
				AgeRangeMaxMonths: 48,
			},
		},
		{
			name: "null content",
			schema: &worksheetSchema{
				Title:             "Untitled",
				Content:           json.RawMessage(`null`),
				AgeRangeMinMonths: 36,
				AgeRangeMaxMonths: 48,
			},
		},
		{
			name: "inverted age range",
			schema: &worksheetSchema{
				Title:             "Untitled",
				Content:           json.RawMessage(`{}`),
				AgeRangeMinMonths: 48,
				AgeRangeMaxMonths: 36,
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseWorksheetSchema(tc.schema)
			require.Error(t, err)
			assert.ErrorIs(t, err, generation.ErrInvalidResponse)
		})
	}
}
