package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestUUID() uuid.UUID {
	return uuid.New()
}

func validGenerationRequest() *GenerationRequest {
	return &GenerationRequest{
		Type:          WorksheetTypeActivity,
		TargetDomains: []DevelopmentalDomain{DomainFineMotor, DomainCognitive},
		Difficulty:    DifficultyDeveloping,
		DataSource:    DataSourceManual,
		Manual: &ManualInput{
			ChildAgeMonths: 48,
			Concerns:       []string{"difficulty with scissor grip"},
		},
	}
}

func TestNewWorksheet(t *testing.T) {
	t.Parallel()

	ownerID := newTestUUID()
	ws, err := NewWorksheet(ownerID, validGenerationRequest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if ws.ID == uuid.Nil {
		t.Error("Expected a generated worksheet ID")
	}
	if ws.OwnerID != ownerID {
		t.Errorf("Expected owner %s, got %s", ownerID, ws.OwnerID)
	}
	if ws.Status != WorksheetStatusGenerating {
		t.Errorf("Expected generating status, got %s", ws.Status)
	}
	if ws.Visibility {
		t.Error("Expected new worksheet to be private")
	}
	if ws.Version != 1 {
		t.Errorf("Expected version 1, got %d", ws.Version)
	}
	if ws.ColorMode != ColorModeFullColor {
		t.Errorf("Expected full color default, got %s", ws.ColorMode)
	}
}

func TestNewWorksheetRejectsBadRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*GenerationRequest)
	}{
		{"unknown type", func(r *GenerationRequest) { r.Type = "COLORING_BOOK" }},
		{"unknown difficulty", func(r *GenerationRequest) { r.Difficulty = "IMPOSSIBLE" }},
		{"no domains", func(r *GenerationRequest) { r.TargetDomains = nil }},
		{"unknown domain", func(r *GenerationRequest) {
			r.TargetDomains = []DevelopmentalDomain{"TELEKINESIS"}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := validGenerationRequest()
			tc.mutate(req)
			if _, err := NewWorksheet(newTestUUID(), req); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestCloneRequiresPublished(t *testing.T) {
	t.Parallel()

	ws := newDraftWorksheet(t)
	if _, err := ws.Clone(newTestUUID()); !errors.Is(err, ErrStateConflict) {
		t.Errorf("Expected state conflict cloning a draft, got %v", err)
	}
}

func TestCloneResetsAggregatesAndLinksSource(t *testing.T) {
	t.Parallel()

	src := newDraftWorksheet(t)
	if err := src.Publish(time.Now()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	src.AverageRating = 4.8
	src.ReviewCount = 12
	src.CloneCount = 3

	newOwner := newTestUUID()
	clone, err := src.Clone(newOwner)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if clone.ID == src.ID {
		t.Error("Expected clone to have its own ID")
	}
	if clone.OwnerID != newOwner {
		t.Errorf("Expected clone owner %s, got %s", newOwner, clone.OwnerID)
	}
	if clone.Status != WorksheetStatusDraft {
		t.Errorf("Expected clone to be a draft, got %s", clone.Status)
	}
	if clone.Visibility {
		t.Error("Expected clone to be private")
	}
	if clone.ClonedFromID == nil || *clone.ClonedFromID != src.ID {
		t.Error("Expected clone to reference the source worksheet")
	}
	if clone.AverageRating != 0 || clone.ReviewCount != 0 || clone.CloneCount != 0 {
		t.Error("Expected clone aggregates reset to zero")
	}
	if clone.Version != 1 {
		t.Errorf("Expected clone version 1, got %d", clone.Version)
	}

	// Content is copied, not shared.
	if len(src.Content) > 0 {
		clone.Content[0] = '!'
		if src.Content[0] == '!' {
			t.Error("Expected clone content to be an independent copy")
		}
	}
}

func TestNewVersion(t *testing.T) {
	t.Parallel()

	ws := newDraftWorksheet(t)
	if err := ws.Publish(time.Now()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	v2, err := ws.NewVersion()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if v2.Version != ws.Version+1 {
		t.Errorf("Expected version %d, got %d", ws.Version+1, v2.Version)
	}
	if v2.ParentVersionID == nil || *v2.ParentVersionID != ws.ID {
		t.Error("Expected new version to reference its parent")
	}
	if v2.Status != WorksheetStatusDraft {
		t.Errorf("Expected new version to start as draft, got %s", v2.Status)
	}
}

func TestNewVersionRejectsGenerating(t *testing.T) {
	t.Parallel()

	ws, err := NewWorksheet(newTestUUID(), validGenerationRequest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := ws.NewVersion(); !errors.Is(err, ErrStateConflict) {
		t.Errorf("Expected state conflict versioning a generating worksheet, got %v", err)
	}
}

func TestWorksheetValidateAgeRange(t *testing.T) {
	t.Parallel()

	ws := newDraftWorksheet(t)
	ws.AgeRangeMin = 60
	ws.AgeRangeMax = 36
	if err := ws.Validate(); err == nil {
		t.Error("Expected validation error for inverted age range, got nil")
	}
}
