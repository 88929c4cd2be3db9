package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// ImageService exposes worksheet image records to the generation task and
// the API. It is a thin layer over the store; image state transitions live
// on the domain type.
type ImageService struct {
	images store.ImageStore
	logger *slog.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(images store.ImageStore, logger *slog.Logger) (*ImageService, error) {
	if images == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "images cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageService{
		images: images,
		logger: logger.With("component", "image_service"),
	}, nil
}

// SaveImage persists a new image record.
func (s *ImageService) SaveImage(ctx context.Context, img *domain.WorksheetImage) error {
	if err := s.images.Create(ctx, img); err != nil {
		return NewServiceError("save_image", "failed to save image record", err)
	}
	return nil
}

// UpdateImage persists image status changes.
func (s *ImageService) UpdateImage(ctx context.Context, img *domain.WorksheetImage) error {
	if err := s.images.Update(ctx, img); err != nil {
		return NewServiceError("update_image", "failed to update image record", err)
	}
	return nil
}

// ListImages retrieves a worksheet's image records ordered by slot.
func (s *ImageService) ListImages(ctx context.Context, worksheetID uuid.UUID) ([]*domain.WorksheetImage, error) {
	images, err := s.images.ListByWorksheet(ctx, worksheetID)
	if err != nil {
		return nil, NewServiceError("list_images", "failed to list image records", err)
	}
	return images, nil
}
