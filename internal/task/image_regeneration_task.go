package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/generation"
)

// imageRegenerationPayload is the serialized data stored in the task row.
// The color mode rides along so a recovered task does not need to re-read
// the parent worksheet.
type imageRegenerationPayload struct {
	WorksheetID uuid.UUID        `json:"worksheet_id"`
	Slot        int              `json:"slot"`
	ColorMode   domain.ColorMode `json:"color_mode"`
}

// ImageRegenerationTask re-renders one worksheet image slot. Unlike the
// batch pipeline, where a failed image never sinks the worksheet, here the
// single image is the whole job, so a generator failure fails the task.
type ImageRegenerationTask struct {
	id           uuid.UUID
	worksheetID  uuid.UUID
	slot         int
	colorMode    domain.ColorMode
	imageService ImageService
	imageGen     generation.ImageGenerator
	logger       *slog.Logger
	status       string
}

// NewImageRegenerationTask creates a new image regeneration task.
func NewImageRegenerationTask(
	worksheetID uuid.UUID,
	slot int,
	colorMode domain.ColorMode,
	imageService ImageService,
	imageGen generation.ImageGenerator,
	logger *slog.Logger,
) (*ImageRegenerationTask, error) {
	if imageService == nil {
		return nil, ErrNilImageService
	}
	if imageGen == nil {
		return nil, ErrNilImageGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if worksheetID == uuid.Nil {
		return nil, ErrEmptyWorksheetID
	}
	if slot < 0 {
		return nil, ErrInvalidImageSlot
	}
	if colorMode == "" {
		colorMode = domain.ColorModeFullColor
	}

	return &ImageRegenerationTask{
		id:           uuid.New(),
		worksheetID:  worksheetID,
		slot:         slot,
		colorMode:    colorMode,
		imageService: imageService,
		imageGen:     imageGen,
		logger: logger.With("task_type", TaskTypeImageRegeneration,
			"worksheet_id", worksheetID, "slot", slot),
		status: statusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *ImageRegenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *ImageRegenerationTask) Type() string {
	return TaskTypeImageRegeneration
}

// Payload returns the task data as a byte slice
func (t *ImageRegenerationTask) Payload() []byte {
	payload := imageRegenerationPayload{
		WorksheetID: t.worksheetID,
		Slot:        t.slot,
		ColorMode:   t.colorMode,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *ImageRegenerationTask) Status() TaskStatus {
	return TaskStatus(t.status)
}

// Execute re-renders the image slot. The slot was reset to pending by the
// service before the task was queued; a slot found already completed means
// another run landed the work first.
func (t *ImageRegenerationTask) Execute(ctx context.Context) error {
	t.status = statusProcessing
	t.logger.Info("starting image regeneration task")

	rows, err := t.imageService.ListImages(ctx, t.worksheetID)
	if err != nil {
		t.status = statusFailed
		return fmt.Errorf("failed to list image records: %w", err)
	}

	var img *domain.WorksheetImage
	for _, row := range rows {
		if row.Slot == t.slot {
			img = row
			break
		}
	}
	if img == nil {
		t.status = statusFailed
		return fmt.Errorf("image slot %d not found for worksheet %s", t.slot, t.worksheetID)
	}
	if img.Status == domain.ImageStatusCompleted {
		t.status = statusCompleted
		t.logger.Info("image already completed, nothing to do")
		return nil
	}

	if err := img.MarkGenerating(); err != nil {
		t.status = statusFailed
		return fmt.Errorf("failed to mark image generating: %w", err)
	}
	if err := t.imageService.UpdateImage(ctx, img); err != nil {
		t.status = statusFailed
		return fmt.Errorf("failed to update image record: %w", err)
	}

	url, err := t.imageGen.GenerateImage(ctx, img.Prompt, t.colorMode)
	if err != nil {
		img.MarkFailed(err.Error())
		if updateErr := t.imageService.UpdateImage(ctx, img); updateErr != nil {
			t.logger.Error("failed to record image failure", "error", updateErr)
		}
		t.status = statusFailed
		return fmt.Errorf("image generation failed: %w", err)
	}

	if err := img.MarkCompleted(url); err != nil {
		t.status = statusFailed
		return fmt.Errorf("failed to mark image completed: %w", err)
	}
	if err := t.imageService.UpdateImage(ctx, img); err != nil {
		t.status = statusFailed
		return fmt.Errorf("failed to record completed image: %w", err)
	}

	t.status = statusCompleted
	t.logger.Info("image regeneration task completed successfully")
	return nil
}

// ImageRegenerationTaskFactory builds regeneration tasks with their
// dependencies pre-wired.
type ImageRegenerationTaskFactory struct {
	imageService ImageService
	imageGen     generation.ImageGenerator
	logger       *slog.Logger
}

// NewImageRegenerationTaskFactory creates a factory for image regeneration
// tasks.
func NewImageRegenerationTaskFactory(
	imageService ImageService,
	imageGen generation.ImageGenerator,
	logger *slog.Logger,
) *ImageRegenerationTaskFactory {
	return &ImageRegenerationTaskFactory{
		imageService: imageService,
		imageGen:     imageGen,
		logger:       logger,
	}
}

// CreateTask builds a new regeneration task for the given slot.
func (f *ImageRegenerationTaskFactory) CreateTask(
	worksheetID uuid.UUID,
	slot int,
	colorMode domain.ColorMode,
) (*ImageRegenerationTask, error) {
	return NewImageRegenerationTask(
		worksheetID,
		slot,
		colorMode,
		f.imageService,
		f.imageGen,
		f.logger,
	)
}

// HydrateTask rebuilds a regeneration task from a persisted task row,
// preserving the stored task ID so status updates land on the same row.
func (f *ImageRegenerationTaskFactory) HydrateTask(
	taskID uuid.UUID,
	payload []byte,
) (*ImageRegenerationTask, error) {
	var p imageRegenerationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	t, err := f.CreateTask(p.WorksheetID, p.Slot, p.ColorMode)
	if err != nil {
		return nil, err
	}
	t.id = taskID
	return t, nil
}
