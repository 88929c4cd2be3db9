package gemini

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/sproutwell/sproutwell-api/internal/domain"
)

// contentPromptTemplate instructs the model to produce one printable
// therapy worksheet as a strict JSON envelope. The inner content document
// is free-form; the envelope fields are parsed by this package.
const contentPromptTemplate = `You are a pediatric therapy content designer. Create one printable
worksheet for a young child, designed for use at home with a caregiver.

Worksheet type: {{.WorksheetType}}{{if .SubType}} ({{.SubType}}){{end}}
Target developmental domains: {{join .TargetDomains ", "}}
Difficulty tier: {{.Difficulty}}
{{- if .ChildAgeMonths}}
Child age: {{.ChildAgeMonths}} months
{{- end}}
{{- if .Concerns}}
Caregiver concerns: {{join .Concerns "; "}}
{{- end}}
{{- if .WeakDomains}}
Screening flagged these domains as weak, prioritize them: {{join .WeakDomains ", "}}
{{- end}}
{{- if .IEPGoals}}
IEP goals to address:
{{- range .IEPGoals}}
- {{.}}
{{- end}}
{{- end}}
{{- if .SessionNotes}}
Therapist session notes:
{{.SessionNotes}}
{{- end}}
{{- if .Interests}}
Child interests to weave in: {{join .Interests ", "}}
{{- end}}
{{- if .DurationMinutes}}
Target activity duration: {{.DurationMinutes}} minutes
{{- end}}
{{- if .ColorMode}}
Color mode: {{.ColorMode}}
{{- end}}
{{- if .SpecialInstructions}}
Special instructions: {{.SpecialInstructions}}
{{- end}}

Respond with a single JSON object and nothing else, using exactly this shape:
{
  "title": "short child-friendly title",
  "content": { ... the worksheet document: sections, instructions, activities ... },
  "age_range_min_months": <int>,
  "age_range_max_months": <int>,
  "image_prompts": [{{if .ImageCount}}{{.ImageCount}} illustration prompts, one string each{{else}}up to 2 illustration prompts{{end}}]
}

Keep language simple and encouraging. Activities must be safe with common
household materials. Every activity must serve at least one target domain.`

var promptFuncs = template.FuncMap{
	"join": strings.Join,
}

var contentPrompt = template.Must(
	template.New("worksheet").Funcs(promptFuncs).Parse(contentPromptTemplate),
)

// buildPromptData flattens a generation request plus optional screening
// scores into template inputs.
func buildPromptData(req *domain.GenerationRequest, scores []*domain.DomainScore) promptData {
	data := promptData{
		DataSource:          string(req.DataSource),
		WorksheetType:       string(req.Type),
		SubType:             req.SubType,
		Difficulty:          string(req.Difficulty),
		Interests:           req.Interests,
		DurationMinutes:     req.DurationMinutes,
		ColorMode:           string(req.ColorMode),
		SpecialInstructions: req.SpecialInstructions,
		ImageCount:          req.ImageCount,
	}

	for _, d := range req.TargetDomains {
		data.TargetDomains = append(data.TargetDomains, string(d))
	}

	if req.Manual != nil {
		data.ChildAgeMonths = req.Manual.ChildAgeMonths
		data.Concerns = req.Manual.Concerns
	}
	if req.IEPGoals != nil {
		data.IEPGoals = req.IEPGoals.Goals
	}
	if req.SessionNotes != nil {
		data.SessionNotes = req.SessionNotes.Notes
	}

	for _, s := range scores {
		if s.Score < domain.WeakDomainThreshold {
			data.WeakDomains = append(data.WeakDomains, string(s.Domain))
		}
	}

	return data
}

// renderContentPrompt produces the final prompt string for a request.
func renderContentPrompt(req *domain.GenerationRequest, scores []*domain.DomainScore) (string, error) {
	var buf bytes.Buffer
	if err := contentPrompt.Execute(&buf, buildPromptData(req, scores)); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// imagePromptSuffix returns the style guidance appended to every
// illustration prompt.
func imagePromptSuffix(colorMode domain.ColorMode) string {
	if colorMode == domain.ColorModeBlackWhite {
		return " Simple black and white line art, high contrast, printable coloring-page style, no text."
	}
	return " Friendly full-color children's book illustration style, soft shapes, no text."
}
