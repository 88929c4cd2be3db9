package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImageStatus is the generation sub-status of a worksheet image. It is
// independent of the parent worksheet's status: a worksheet may reach draft
// with some images failed.
type ImageStatus string

// Possible image status values.
const (
	ImageStatusPending    ImageStatus = "pending"
	ImageStatusGenerating ImageStatus = "generating"
	ImageStatusCompleted  ImageStatus = "completed"
	ImageStatusFailed     ImageStatus = "failed"
)

// Image-specific validation errors.
var (
	ErrImageIDEmpty         = errors.New("image ID cannot be empty")
	ErrImageWorksheetEmpty  = errors.New("image worksheet ID cannot be empty")
	ErrImagePromptEmpty     = errors.New("image prompt cannot be empty")
	ErrInvalidImageStatus   = errors.New("invalid image status")
	ErrImageURLMissing      = errors.New("completed image must have a URL")
	ErrImageAlreadyTerminal = errors.New("image generation already finished")
)

// WorksheetImage is an illustration owned exclusively by one worksheet.
type WorksheetImage struct {
	ID          uuid.UUID   `json:"id"`
	WorksheetID uuid.UUID   `json:"worksheet_id"`
	Slot        int         `json:"slot"`
	Prompt      string      `json:"prompt"`
	Status      ImageStatus `json:"status"`
	URL         string      `json:"url,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewWorksheetImage creates a pending image slot for a worksheet.
func NewWorksheetImage(worksheetID uuid.UUID, slot int, prompt string) (*WorksheetImage, error) {
	if worksheetID == uuid.Nil {
		return nil, ErrImageWorksheetEmpty
	}
	if prompt == "" {
		return nil, ErrImagePromptEmpty
	}
	now := time.Now().UTC()
	return &WorksheetImage{
		ID:          uuid.New(),
		WorksheetID: worksheetID,
		Slot:        slot,
		Prompt:      prompt,
		Status:      ImageStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Validate checks if the WorksheetImage has valid data.
func (i *WorksheetImage) Validate() error {
	if i.ID == uuid.Nil {
		return ErrImageIDEmpty
	}
	if i.WorksheetID == uuid.Nil {
		return ErrImageWorksheetEmpty
	}
	if i.Prompt == "" {
		return ErrImagePromptEmpty
	}
	switch i.Status {
	case ImageStatusPending, ImageStatusGenerating, ImageStatusCompleted, ImageStatusFailed:
	default:
		return ErrInvalidImageStatus
	}
	if i.Status == ImageStatusCompleted && i.URL == "" {
		return ErrImageURLMissing
	}
	return nil
}

// MarkGenerating moves a pending image into production.
func (i *WorksheetImage) MarkGenerating() error {
	if i.Status == ImageStatusCompleted || i.Status == ImageStatusFailed {
		return ErrImageAlreadyTerminal
	}
	i.Status = ImageStatusGenerating
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted records the produced image URL.
func (i *WorksheetImage) MarkCompleted(url string) error {
	if url == "" {
		return ErrImageURLMissing
	}
	i.Status = ImageStatusCompleted
	i.URL = url
	i.Error = ""
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Reset returns a terminal image to pending so its slot can be regenerated.
// An image still pending or generating is already on its way.
func (i *WorksheetImage) Reset() error {
	if i.Status == ImageStatusPending || i.Status == ImageStatusGenerating {
		return fmt.Errorf("%w: image generation already in progress", ErrStateConflict)
	}
	i.Status = ImageStatusPending
	i.URL = ""
	i.Error = ""
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed records a per-image failure. The parent worksheet still
// publishes; this is intentional partial-success behavior.
func (i *WorksheetImage) MarkFailed(reason string) {
	i.Status = ImageStatusFailed
	i.Error = reason
	i.UpdatedAt = time.Now().UTC()
}
