package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/events"
	"github.com/sproutwell/sproutwell-api/internal/generation"
	"github.com/sproutwell/sproutwell-api/internal/store"
	"github.com/sproutwell/sproutwell-api/internal/task"
)

// WorksheetRepository is the persistence surface the worksheet service needs:
// the store interface plus the raw connection for service-owned transactions.
type WorksheetRepository interface {
	store.WorksheetStore

	// DB returns the underlying database connection
	DB() *sql.DB
}

// DocumentLinker builds the rendered-document URLs reported by the status
// poll. PDF rendering itself lives outside this service.
type DocumentLinker interface {
	// PDFURL returns the download URL for the worksheet's rendered PDF.
	PDFURL(worksheetID uuid.UUID) string

	// PreviewURL returns the URL for the worksheet's preview image.
	PreviewURL(worksheetID uuid.UUID) string
}

// GenerationStatus is the status-poll result for an in-flight or finished
// worksheet generation.
type GenerationStatus struct {
	WorksheetID uuid.UUID              `json:"worksheet_id"`
	Status      domain.WorksheetStatus `json:"status"`
	PDFURL      string                 `json:"pdf_url,omitempty"`
	PreviewURL  string                 `json:"preview_url,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// CommunityPage is one page of community browse results.
type CommunityPage struct {
	Worksheets []*domain.Worksheet `json:"worksheets"`
	Total      int                 `json:"total"`
}

// WorksheetService coordinates the worksheet lifecycle: generation kickoff,
// status polling, publish/unpublish/archive, cloning, and versioning.
type WorksheetService interface {
	// Generate validates the request, creates the worksheet in the
	// generating state with its pending image slots, and emits the
	// background task event.
	Generate(ctx context.Context, ownerID uuid.UUID, req *domain.GenerationRequest) (*domain.Worksheet, error)

	// GetWorksheet retrieves a worksheet by its ID.
	GetWorksheet(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error)

	// GetGenerationStatus reports generation progress. Document URLs are
	// populated only once the worksheet has content.
	GetGenerationStatus(ctx context.Context, id uuid.UUID) (*GenerationStatus, error)

	// Publish makes the actor's draft worksheet publicly discoverable.
	Publish(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error)

	// Unpublish withdraws the actor's published worksheet back to draft.
	Unpublish(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error)

	// Archive retires the actor's worksheet.
	Archive(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error)

	// Clone copies a published worksheet into the actor's library and bumps
	// the source clone counter in the same transaction.
	Clone(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error)

	// CreateVersion produces the next version of the actor's worksheet.
	CreateVersion(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error)

	// ListVersions retrieves the full version tree containing the worksheet.
	ListVersions(ctx context.Context, id uuid.UUID) ([]*domain.Worksheet, error)

	// ListImages retrieves the worksheet's image records ordered by slot.
	ListImages(ctx context.Context, id uuid.UUID) ([]*domain.WorksheetImage, error)

	// RegenerateImage resets a finished image slot on the actor's worksheet
	// and emits the background task event that re-renders it.
	RegenerateImage(ctx context.Context, actorID, id uuid.UUID, slot int) (*domain.WorksheetImage, error)

	// ListOwned retrieves the owner's worksheets matching the filter.
	ListOwned(ctx context.Context, ownerID uuid.UUID, filter store.WorksheetFilter) ([]*domain.Worksheet, error)

	// BrowseCommunity lists published, visible worksheets for discovery.
	BrowseCommunity(ctx context.Context, filter store.WorksheetFilter) (*CommunityPage, error)

	// CompleteGeneration records produced content and moves the worksheet to
	// draft. Called by the background generation task.
	CompleteGeneration(ctx context.Context, id uuid.UUID, result *generation.GeneratedWorksheet) error

	// FailGeneration records a terminal generation failure. Called by the
	// background generation task.
	FailGeneration(ctx context.Context, id uuid.UUID, reason string) error
}

// worksheetServiceImpl implements the WorksheetService interface
type worksheetServiceImpl struct {
	worksheets   WorksheetRepository
	images       store.ImageStore
	eventEmitter events.EventEmitter
	links        DocumentLinker
	logger       *slog.Logger
}

// NewWorksheetService creates a new WorksheetService.
// It returns an error if any of the required dependencies are nil.
func NewWorksheetService(
	worksheets WorksheetRepository,
	images store.ImageStore,
	eventEmitter events.EventEmitter,
	links DocumentLinker,
	logger *slog.Logger,
) (WorksheetService, error) {
	if worksheets == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "worksheets cannot be nil"}
	}
	if images == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "images cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}
	if links == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "links cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &worksheetServiceImpl{
		worksheets:   worksheets,
		images:       images,
		eventEmitter: eventEmitter,
		links:        links,
		logger:       logger.With("component", "worksheet_service"),
	}, nil
}

// Generate creates the worksheet and its pending image slots in one
// transaction, then emits the task-request event that starts the background
// job.
func (s *worksheetServiceImpl) Generate(
	ctx context.Context,
	ownerID uuid.UUID,
	req *domain.GenerationRequest,
) (*domain.Worksheet, error) {
	ws, err := domain.NewWorksheet(ownerID, req)
	if err != nil {
		s.logger.Error("failed to build worksheet from request",
			"error", err,
			"owner_id", ownerID)
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.worksheets.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txWorksheets := s.worksheets.WithTx(tx)
		if err := txWorksheets.Create(ctx, ws); err != nil {
			return NewServiceError("generate_worksheet", "failed to save worksheet", err)
		}

		txImages := s.images.WithTx(tx)
		for slot := 0; slot < req.ImageCount; slot++ {
			img, err := domain.NewWorksheetImage(ws.ID, slot, fmt.Sprintf("illustration %d", slot+1))
			if err != nil {
				return NewServiceError("generate_worksheet", "failed to build image slot", err)
			}
			if err := txImages.Create(ctx, img); err != nil {
				return NewServiceError("generate_worksheet", "failed to save image slot", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("worksheet created in generating state",
		"worksheet_id", ws.ID,
		"owner_id", ownerID,
		"type", string(ws.Type))

	payload := struct {
		WorksheetID uuid.UUID                 `json:"worksheet_id"`
		Request     *domain.GenerationRequest `json:"request"`
	}{
		WorksheetID: ws.ID,
		Request:     req,
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeWorksheetGeneration, payload)
	if err != nil {
		return nil, NewServiceError("generate_worksheet", "failed to create event", err)
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit generation event",
			"error", err,
			"worksheet_id", ws.ID,
			"event_id", event.ID)
		return nil, NewServiceError("generate_worksheet", "failed to emit event", err)
	}

	s.logger.Info("generation event emitted",
		"worksheet_id", ws.ID,
		"event_id", event.ID)

	return ws, nil
}

// GetWorksheet retrieves a worksheet by its ID.
func (s *worksheetServiceImpl) GetWorksheet(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
	ws, err := s.worksheets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrWorksheetNotFound) {
			return nil, ErrWorksheetNotFound
		}
		return nil, NewServiceError("get_worksheet", "failed to retrieve worksheet", err)
	}
	return ws, nil
}

// GetGenerationStatus reports generation progress for the status poll.
func (s *worksheetServiceImpl) GetGenerationStatus(ctx context.Context, id uuid.UUID) (*GenerationStatus, error) {
	ws, err := s.GetWorksheet(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &GenerationStatus{
		WorksheetID: ws.ID,
		Status:      ws.Status,
		Error:       ws.GenerationError,
	}

	// Document URLs exist once content does.
	if ws.Status != domain.WorksheetStatusGenerating &&
		ws.Status != domain.WorksheetStatusGenerationFailed {
		status.PDFURL = s.links.PDFURL(ws.ID)
		status.PreviewURL = s.links.PreviewURL(ws.ID)
	}

	return status, nil
}

// Publish makes the actor's draft worksheet publicly discoverable.
func (s *worksheetServiceImpl) Publish(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
	return s.updateOwned(ctx, "publish_worksheet", actorID, id, func(ws *domain.Worksheet) error {
		return ws.Publish(time.Now())
	})
}

// Unpublish withdraws the actor's published worksheet back to draft.
func (s *worksheetServiceImpl) Unpublish(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
	return s.updateOwned(ctx, "unpublish_worksheet", actorID, id, func(ws *domain.Worksheet) error {
		return ws.Unpublish()
	})
}

// Archive retires the actor's worksheet.
func (s *worksheetServiceImpl) Archive(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
	return s.updateOwned(ctx, "archive_worksheet", actorID, id, func(ws *domain.Worksheet) error {
		return ws.Archive()
	})
}

// updateOwned loads the worksheet, enforces ownership, applies the mutation,
// and saves, all inside one transaction.
func (s *worksheetServiceImpl) updateOwned(
	ctx context.Context,
	operation string,
	actorID, id uuid.UUID,
	mutate func(ws *domain.Worksheet) error,
) (*domain.Worksheet, error) {
	var result *domain.Worksheet
	err := store.RunInTransaction(ctx, s.worksheets.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.worksheets.WithTx(tx)

		ws, err := txRepo.GetByID(ctx, id)
		if err != nil {
			return NewServiceError(operation, "failed to retrieve worksheet", err)
		}
		if ws.OwnerID != actorID {
			return ErrForbidden
		}

		if err := mutate(ws); err != nil {
			return err
		}

		if err := txRepo.Update(ctx, ws); err != nil {
			return NewServiceError(operation, "failed to save worksheet", err)
		}

		result = ws
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("worksheet updated",
		"operation", operation,
		"worksheet_id", id,
		"status", string(result.Status))

	return result, nil
}

// Clone copies a published worksheet into the actor's library. The source
// clone counter moves in the same transaction so the pair can never drift.
func (s *worksheetServiceImpl) Clone(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
	var clone *domain.Worksheet
	err := store.RunInTransaction(ctx, s.worksheets.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.worksheets.WithTx(tx)

		source, err := txRepo.GetByID(ctx, id)
		if err != nil {
			return NewServiceError("clone_worksheet", "failed to retrieve source worksheet", err)
		}

		c, err := source.Clone(actorID)
		if err != nil {
			return err
		}

		if err := txRepo.Create(ctx, c); err != nil {
			return NewServiceError("clone_worksheet", "failed to save clone", err)
		}
		if err := txRepo.IncrementCloneCount(ctx, id); err != nil {
			return NewServiceError("clone_worksheet", "failed to increment clone count", err)
		}

		clone = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("worksheet cloned",
		"source_id", id,
		"clone_id", clone.ID,
		"owner_id", actorID)

	return clone, nil
}

// CreateVersion produces the next version of the actor's worksheet.
func (s *worksheetServiceImpl) CreateVersion(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
	var next *domain.Worksheet
	err := store.RunInTransaction(ctx, s.worksheets.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.worksheets.WithTx(tx)

		parent, err := txRepo.GetByID(ctx, id)
		if err != nil {
			return NewServiceError("create_version", "failed to retrieve worksheet", err)
		}
		if parent.OwnerID != actorID {
			return ErrForbidden
		}

		n, err := parent.NewVersion()
		if err != nil {
			return err
		}

		if err := txRepo.Create(ctx, n); err != nil {
			return NewServiceError("create_version", "failed to save new version", err)
		}

		next = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("worksheet version created",
		"parent_id", id,
		"version_id", next.ID,
		"version", next.Version)

	return next, nil
}

// ListVersions retrieves the full version tree containing the worksheet.
func (s *worksheetServiceImpl) ListVersions(ctx context.Context, id uuid.UUID) ([]*domain.Worksheet, error) {
	versions, err := s.worksheets.ListVersions(ctx, id)
	if err != nil {
		return nil, NewServiceError("list_versions", "failed to list versions", err)
	}
	return versions, nil
}

// ListImages retrieves the worksheet's image records ordered by slot.
func (s *worksheetServiceImpl) ListImages(ctx context.Context, id uuid.UUID) ([]*domain.WorksheetImage, error) {
	images, err := s.images.ListByWorksheet(ctx, id)
	if err != nil {
		return nil, NewServiceError("list_images", "failed to list image records", err)
	}
	return images, nil
}

// RegenerateImage resets a finished image slot back to pending and queues the
// re-render. The worksheet must have left the generating state; a slot still
// pending or generating is rejected with a state conflict.
func (s *worksheetServiceImpl) RegenerateImage(
	ctx context.Context,
	actorID, id uuid.UUID,
	slot int,
) (*domain.WorksheetImage, error) {
	var img *domain.WorksheetImage
	var colorMode domain.ColorMode

	err := store.RunInTransaction(ctx, s.worksheets.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.worksheets.WithTx(tx)

		ws, err := txRepo.GetByID(ctx, id)
		if err != nil {
			return NewServiceError("regenerate_image", "failed to retrieve worksheet", err)
		}
		if ws.OwnerID != actorID {
			return ErrForbidden
		}
		if ws.Status == domain.WorksheetStatusGenerating {
			return fmt.Errorf("%w: worksheet is still generating", domain.ErrStateConflict)
		}
		if ws.Status == domain.WorksheetStatusArchived {
			return fmt.Errorf("%w: worksheet is archived", domain.ErrStateConflict)
		}
		colorMode = ws.ColorMode

		txImages := s.images.WithTx(tx)
		rows, err := txImages.ListByWorksheet(ctx, id)
		if err != nil {
			return NewServiceError("regenerate_image", "failed to list image records", err)
		}
		for _, row := range rows {
			if row.Slot == slot {
				img = row
				break
			}
		}
		if img == nil {
			return ErrImageNotFound
		}

		if err := img.Reset(); err != nil {
			return err
		}
		if err := txImages.Update(ctx, img); err != nil {
			return NewServiceError("regenerate_image", "failed to save image record", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := struct {
		WorksheetID uuid.UUID        `json:"worksheet_id"`
		Slot        int              `json:"slot"`
		ColorMode   domain.ColorMode `json:"color_mode"`
	}{
		WorksheetID: id,
		Slot:        slot,
		ColorMode:   colorMode,
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeImageRegeneration, payload)
	if err != nil {
		return nil, NewServiceError("regenerate_image", "failed to create event", err)
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit regeneration event",
			"error", err,
			"worksheet_id", id,
			"slot", slot,
			"event_id", event.ID)
		return nil, NewServiceError("regenerate_image", "failed to emit event", err)
	}

	s.logger.Info("image regeneration enqueued",
		"worksheet_id", id,
		"slot", slot,
		"event_id", event.ID)

	return img, nil
}

// ListOwned retrieves the owner's worksheets matching the filter.
func (s *worksheetServiceImpl) ListOwned(
	ctx context.Context,
	ownerID uuid.UUID,
	filter store.WorksheetFilter,
) ([]*domain.Worksheet, error) {
	worksheets, err := s.worksheets.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, NewServiceError("list_owned", "failed to list worksheets", err)
	}
	return worksheets, nil
}

// BrowseCommunity lists published, visible worksheets for discovery.
func (s *worksheetServiceImpl) BrowseCommunity(
	ctx context.Context,
	filter store.WorksheetFilter,
) (*CommunityPage, error) {
	worksheets, total, err := s.worksheets.ListPublished(ctx, filter)
	if err != nil {
		return nil, NewServiceError("browse_community", "failed to browse community", err)
	}
	return &CommunityPage{Worksheets: worksheets, Total: total}, nil
}

// CompleteGeneration records produced content and moves the worksheet to
// draft.
func (s *worksheetServiceImpl) CompleteGeneration(
	ctx context.Context,
	id uuid.UUID,
	result *generation.GeneratedWorksheet,
) error {
	if result == nil {
		return NewServiceError("complete_generation", "result cannot be nil", errors.New("nil generation result"))
	}

	return store.RunInTransaction(ctx, s.worksheets.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.worksheets.WithTx(tx)

		ws, err := txRepo.GetByID(ctx, id)
		if err != nil {
			return NewServiceError("complete_generation", "failed to retrieve worksheet", err)
		}

		if err := ws.MarkDraft(result.Content); err != nil {
			return err
		}
		if result.Title != "" {
			ws.Title = result.Title
		}
		if result.AgeRangeMax > 0 {
			ws.AgeRangeMin = result.AgeRangeMin
			ws.AgeRangeMax = result.AgeRangeMax
		}

		if err := txRepo.Update(ctx, ws); err != nil {
			return NewServiceError("complete_generation", "failed to save worksheet", err)
		}

		s.logger.Info("worksheet generation completed",
			"worksheet_id", id,
			"title", ws.Title)
		return nil
	})
}

// FailGeneration records a terminal generation failure.
func (s *worksheetServiceImpl) FailGeneration(ctx context.Context, id uuid.UUID, reason string) error {
	return store.RunInTransaction(ctx, s.worksheets.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.worksheets.WithTx(tx)

		ws, err := txRepo.GetByID(ctx, id)
		if err != nil {
			return NewServiceError("fail_generation", "failed to retrieve worksheet", err)
		}

		if err := ws.MarkGenerationFailed(reason); err != nil {
			return err
		}

		if err := txRepo.Update(ctx, ws); err != nil {
			return NewServiceError("fail_generation", "failed to save worksheet", err)
		}

		s.logger.Warn("worksheet generation failed",
			"worksheet_id", id,
			"reason", reason)
		return nil
	})
}
