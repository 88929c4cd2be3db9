package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/generation"
)

// Status constants for WorksheetGenerationTask
// These match the TaskStatus values defined in task.go
const (
	statusPending    = "pending"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// Common errors
var (
	ErrNilWorksheetService = errors.New("worksheet service cannot be nil")
	ErrNilImageService     = errors.New("image service cannot be nil")
	ErrNilContentGenerator = errors.New("content generator cannot be nil")
	ErrNilImageGenerator   = errors.New("image generator cannot be nil")
	ErrNilScreeningReader  = errors.New("screening reader cannot be nil")
	ErrNilLogger           = errors.New("logger cannot be nil")
	ErrEmptyWorksheetID    = errors.New("worksheet ID cannot be empty")
	ErrNilRequest          = errors.New("generation request cannot be nil")
	ErrInvalidImageSlot    = errors.New("image slot cannot be negative")
)

// WorksheetService defines the lifecycle operations the generation task
// drives. The service owns the transactions behind each call.
type WorksheetService interface {
	// GetWorksheet retrieves a worksheet by its ID
	GetWorksheet(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error)

	// CompleteGeneration records produced content and moves the worksheet
	// from generating to draft.
	CompleteGeneration(ctx context.Context, id uuid.UUID, result *generation.GeneratedWorksheet) error

	// FailGeneration moves the worksheet to generation_failed with the
	// surfaced reason.
	FailGeneration(ctx context.Context, id uuid.UUID, reason string) error
}

// ImageService defines the image record operations the generation task uses.
type ImageService interface {
	// SaveImage persists a new image record
	SaveImage(ctx context.Context, img *domain.WorksheetImage) error

	// UpdateImage persists image status changes
	UpdateImage(ctx context.Context, img *domain.WorksheetImage) error

	// ListImages retrieves a worksheet's image records ordered by slot
	ListImages(ctx context.Context, worksheetID uuid.UUID) ([]*domain.WorksheetImage, error)
}

// ScreeningReader provides screening scores for requests that draw on
// screening data.
type ScreeningReader interface {
	GetScreeningScores(ctx context.Context, screeningID uuid.UUID) ([]*domain.DomainScore, error)
}

// worksheetGenerationPayload represents the serialized data stored in the
// task row. The full request rides along so recovered tasks can resume
// without re-reading request state that only lived in memory.
type worksheetGenerationPayload struct {
	WorksheetID uuid.UUID                 `json:"worksheet_id"`
	Request     *domain.GenerationRequest `json:"request"`
}

// WorksheetGenerationTask implements the Task interface for producing
// worksheet content and illustrations in the background.
type WorksheetGenerationTask struct {
	id               uuid.UUID
	worksheetID      uuid.UUID
	request          *domain.GenerationRequest
	worksheetService WorksheetService
	imageService     ImageService
	screenings       ScreeningReader
	contentGen       generation.ContentGenerator
	imageGen         generation.ImageGenerator
	maxAttempts      int
	logger           *slog.Logger
	status           string
}

// NewWorksheetGenerationTask creates a new worksheet generation task.
func NewWorksheetGenerationTask(
	worksheetID uuid.UUID,
	request *domain.GenerationRequest,
	worksheetService WorksheetService,
	imageService ImageService,
	screenings ScreeningReader,
	contentGen generation.ContentGenerator,
	imageGen generation.ImageGenerator,
	maxAttempts int,
	logger *slog.Logger,
) (*WorksheetGenerationTask, error) {
	if worksheetService == nil {
		return nil, ErrNilWorksheetService
	}
	if imageService == nil {
		return nil, ErrNilImageService
	}
	if screenings == nil {
		return nil, ErrNilScreeningReader
	}
	if contentGen == nil {
		return nil, ErrNilContentGenerator
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
	if request == nil {
		return nil, ErrNilRequest
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &WorksheetGenerationTask{
		id:               uuid.New(),
		worksheetID:      worksheetID,
		request:          request,
		worksheetService: worksheetService,
		imageService:     imageService,
		screenings:       screenings,
		contentGen:       contentGen,
		imageGen:         imageGen,
		maxAttempts:      maxAttempts,
		logger:           logger.With("task_type", TaskTypeWorksheetGeneration, "worksheet_id", worksheetID),
		status:           statusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *WorksheetGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *WorksheetGenerationTask) Type() string {
	return TaskTypeWorksheetGeneration
}

// Payload returns the task data as a byte slice
func (t *WorksheetGenerationTask) Payload() []byte {
	payload := worksheetGenerationPayload{
		WorksheetID: t.worksheetID,
		Request:     t.request,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *WorksheetGenerationTask) Status() TaskStatus {
	return TaskStatus(t.status)
}

// Execute runs the full generation pipeline: fetch the worksheet, produce
// content with bounded retries, produce illustrations, and land the
// worksheet in draft. Every failure path moves the worksheet to
// generation_failed so pollers never watch a zombie.
func (t *WorksheetGenerationTask) Execute(ctx context.Context) error {
	t.status = statusProcessing
	t.logger.Info("starting worksheet generation task")

	if err := ctx.Err(); err != nil {
		return t.fail(ctx, fmt.Errorf("task cancelled by context: %w", err))
	}

	// 1. Retrieve the worksheet and confirm it still wants content.
	ws, err := t.worksheetService.GetWorksheet(ctx, t.worksheetID)
	if err != nil {
		t.status = statusFailed
		t.logger.Error("failed to retrieve worksheet", "error", err)
		return fmt.Errorf("failed to retrieve worksheet: %w", err)
	}
	if ws.Status != domain.WorksheetStatusGenerating {
		// Requeued after a crash that landed past the finish line.
		t.status = statusCompleted
		t.logger.Info("worksheet already left generating state, nothing to do",
			"status", string(ws.Status))
		return nil
	}

	// 2. Load screening scores when the request draws on screening data.
	var scores []*domain.DomainScore
	if t.request.DataSource == domain.DataSourceScreening && t.request.ScreeningID != nil {
		scores, err = t.screenings.GetScreeningScores(ctx, *t.request.ScreeningID)
		if err != nil {
			return t.fail(ctx, fmt.Errorf("failed to load screening scores: %w", err))
		}
	}

	// 3. Produce content with bounded retries on transient failures.
	result, err := t.generateContent(ctx, scores)
	if err != nil {
		return t.fail(ctx, err)
	}

	t.logger.Info("worksheet content generated",
		"title", result.Title,
		"image_prompts", len(result.ImagePrompts))

	// 4. Produce illustrations. Individual image failures are recorded but
	// never sink the worksheet; the document is usable without them.
	t.generateImages(ctx, result)

	// 5. Land the worksheet in draft.
	if err := t.worksheetService.CompleteGeneration(ctx, t.worksheetID, result); err != nil {
		return t.fail(ctx, fmt.Errorf("failed to record generated content: %w", err))
	}

	t.status = statusCompleted
	t.logger.Info("worksheet generation task completed successfully")
	return nil
}

// generateContent retries transient generator failures up to maxAttempts.
// Permanent failures (blocked content, malformed responses) abort at once.
func (t *WorksheetGenerationTask) generateContent(
	ctx context.Context,
	scores []*domain.DomainScore,
) (*generation.GeneratedWorksheet, error) {
	var lastErr error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation timed out: %w", err)
		}

		result, err := t.contentGen.GenerateWorksheet(ctx, t.request, scores)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errors.Is(err, generation.ErrTransientFailure) {
			t.logger.Error("permanent content generation failure",
				"error", err, "attempt", attempt)
			return nil, err
		}

		t.logger.Warn("transient content generation failure, retrying",
			"error", err,
			"attempt", attempt,
			"max_attempts", t.maxAttempts)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("generation timed out: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return nil, fmt.Errorf("content generation exhausted %d attempts: %w", t.maxAttempts, lastErr)
}

// generateImages renders each prompted illustration and records the outcome
// per image. Pending slots created with the worksheet are claimed by slot
// number; extra prompts get fresh rows.
func (t *WorksheetGenerationTask) generateImages(ctx context.Context, result *generation.GeneratedWorksheet) {
	prompts := result.ImagePrompts
	if t.request.ImageCount > 0 && len(prompts) > t.request.ImageCount {
		prompts = prompts[:t.request.ImageCount]
	}

	colorMode := t.request.ColorMode
	if colorMode == "" {
		colorMode = domain.ColorModeFullColor
	}

	existing := make(map[int]*domain.WorksheetImage)
	if rows, err := t.imageService.ListImages(ctx, t.worksheetID); err != nil {
		t.logger.Error("failed to list pending image slots", "error", err)
	} else {
		for _, row := range rows {
			existing[row.Slot] = row
		}
	}

	for slot, prompt := range prompts {
		img, ok := existing[slot]
		if ok {
			img.Prompt = prompt
		} else {
			created, err := domain.NewWorksheetImage(t.worksheetID, slot, prompt)
			if err != nil {
				t.logger.Error("failed to build image record", "error", err, "slot", slot)
				continue
			}
			if err := t.imageService.SaveImage(ctx, created); err != nil {
				t.logger.Error("failed to save image record", "error", err, "slot", slot)
				continue
			}
			img = created
		}

		if err := img.MarkGenerating(); err != nil {
			t.logger.Error("failed to mark image generating", "error", err, "slot", slot)
			continue
		}
		if err := t.imageService.UpdateImage(ctx, img); err != nil {
			t.logger.Error("failed to update image record", "error", err, "slot", slot)
		}

		url, err := t.imageGen.GenerateImage(ctx, prompt, colorMode)
		if err != nil {
			t.logger.Warn("image generation failed, continuing without it",
				"error", err, "slot", slot)
			img.MarkFailed(err.Error())
			if updateErr := t.imageService.UpdateImage(ctx, img); updateErr != nil {
				t.logger.Error("failed to record image failure", "error", updateErr, "slot", slot)
			}
			continue
		}

		if err := img.MarkCompleted(url); err != nil {
			t.logger.Error("failed to mark image completed", "error", err, "slot", slot)
			continue
		}
		if err := t.imageService.UpdateImage(ctx, img); err != nil {
			t.logger.Error("failed to record completed image", "error", err, "slot", slot)
		}
	}
}

// fail lands the worksheet in generation_failed and returns the original
// error for the task row. The status write uses a fresh context so a
// deadline that killed generation cannot also block the failure record.
func (t *WorksheetGenerationTask) fail(ctx context.Context, cause error) error {
	t.status = statusFailed
	t.logger.Error("worksheet generation failed", "error", cause)

	failCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		failCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if err := t.worksheetService.FailGeneration(failCtx, t.worksheetID, cause.Error()); err != nil {
		t.logger.Error("failed to record generation failure", "error", err)
	}
	return cause
}
