package gemini

import "encoding/json"

// worksheetSchema is the structure the content model is instructed to
// return. The content document itself stays opaque JSON; only the envelope
// fields are interpreted here.
type worksheetSchema struct {
	Title             string          `json:"title"`
	Content           json.RawMessage `json:"content"`
	AgeRangeMinMonths int             `json:"age_range_min_months"`
	AgeRangeMaxMonths int             `json:"age_range_max_months"`
	ImagePrompts      []string        `json:"image_prompts"`
}

// promptData carries the template inputs for the content prompt.
type promptData struct {
	DataSource          string
	WorksheetType       string
	SubType             string
	TargetDomains       []string
	Difficulty          string
	Interests           []string
	DurationMinutes     int
	ColorMode           string
	SpecialInstructions string
	ImageCount          int
	ChildAgeMonths      int
	Concerns            []string
	IEPGoals            []string
	SessionNotes        string
	WeakDomains         []string
}
