package task

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/generation"
)

// WorksheetGenerationTaskFactory builds generation tasks with their
// dependencies pre-wired, so event handlers only need the payload.
type WorksheetGenerationTaskFactory struct {
	worksheetService WorksheetService
	imageService     ImageService
	screenings       ScreeningReader
	contentGen       generation.ContentGenerator
	imageGen         generation.ImageGenerator
	maxAttempts      int
	logger           *slog.Logger
}

// NewWorksheetGenerationTaskFactory creates a factory for worksheet
// generation tasks.
func NewWorksheetGenerationTaskFactory(
	worksheetService WorksheetService,
	imageService ImageService,
	screenings ScreeningReader,
	contentGen generation.ContentGenerator,
	imageGen generation.ImageGenerator,
	maxAttempts int,
	logger *slog.Logger,
) *WorksheetGenerationTaskFactory {
	return &WorksheetGenerationTaskFactory{
		worksheetService: worksheetService,
		imageService:     imageService,
		screenings:       screenings,
		contentGen:       contentGen,
		imageGen:         imageGen,
		maxAttempts:      maxAttempts,
		logger:           logger,
	}
}

// CreateTask builds a new generation task for the given worksheet and
// request.
func (f *WorksheetGenerationTaskFactory) CreateTask(
	worksheetID uuid.UUID,
	request *domain.GenerationRequest,
) (*WorksheetGenerationTask, error) {
	return NewWorksheetGenerationTask(
		worksheetID,
		request,
		f.worksheetService,
		f.imageService,
		f.screenings,
		f.contentGen,
		f.imageGen,
		f.maxAttempts,
		f.logger,
	)
}

// HydrateTask rebuilds a generation task from a persisted task row,
// preserving the stored task ID so status updates land on the same row.
func (f *WorksheetGenerationTaskFactory) HydrateTask(
	taskID uuid.UUID,
	payload []byte,
) (*WorksheetGenerationTask, error) {
	var p worksheetGenerationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	t, err := f.CreateTask(p.WorksheetID, p.Request)
	if err != nil {
		return nil, err
	}
	t.id = taskID
	return t, nil
}
