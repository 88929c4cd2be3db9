package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestGenerationRequestValidate(t *testing.T) {
	t.Parallel()

	screeningID := uuid.New()
	reportID := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*GenerationRequest)
		wantErr bool
	}{
		{"valid manual request", func(r *GenerationRequest) {}, false},
		{"manual without age", func(r *GenerationRequest) {
			r.Manual = &ManualInput{}
		}, true},
		{"manual without payload", func(r *GenerationRequest) {
			r.Manual = nil
		}, true},
		{"screening with reference", func(r *GenerationRequest) {
			r.DataSource = DataSourceScreening
			r.ScreeningID = &screeningID
		}, false},
		{"screening without reference", func(r *GenerationRequest) {
			r.DataSource = DataSourceScreening
		}, true},
		{"uploaded report with reference", func(r *GenerationRequest) {
			r.DataSource = DataSourceUploadedReport
			r.ReportID = &reportID
		}, false},
		{"uploaded report without reference", func(r *GenerationRequest) {
			r.DataSource = DataSourceUploadedReport
		}, true},
		{"iep goals with goals", func(r *GenerationRequest) {
			r.DataSource = DataSourceIEPGoals
			r.IEPGoals = &IEPGoalsInput{Goals: []string{"cut along a straight line"}}
		}, false},
		{"iep goals empty", func(r *GenerationRequest) {
			r.DataSource = DataSourceIEPGoals
			r.IEPGoals = &IEPGoalsInput{}
		}, true},
		{"session notes with text", func(r *GenerationRequest) {
			r.DataSource = DataSourceSessionNotes
			r.SessionNotes = &SessionNotesInput{Notes: "worked on turn taking"}
		}, false},
		{"session notes blank", func(r *GenerationRequest) {
			r.DataSource = DataSourceSessionNotes
			r.SessionNotes = &SessionNotesInput{Notes: "   "}
		}, true},
		{"unknown data source", func(r *GenerationRequest) {
			r.DataSource = "TAROT"
		}, true},
		{"negative image count", func(r *GenerationRequest) {
			r.ImageCount = -1
		}, true},
		{"negative duration", func(r *GenerationRequest) {
			r.DurationMinutes = -10
		}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := validGenerationRequest()
			tc.mutate(req)
			err := req.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("Expected validation error, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}
