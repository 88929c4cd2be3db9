package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// FlagRepository is the persistence surface the moderation service needs:
// the store interface plus the raw connection for service-owned
// transactions.
type FlagRepository interface {
	store.FlagStore

	// DB returns the underlying database connection
	DB() *sql.DB
}

// ModerationService coordinates content flags and their resolution.
// Submitting a flag never touches the worksheet; only a moderator's
// resolution moves worksheet state.
type ModerationService interface {
	// SubmitFlag reports a published worksheet. Flagging an unpublished
	// worksheet is a state conflict. The worksheet stays published and
	// visible until a moderator acts.
	SubmitFlag(ctx context.Context, reporterID, worksheetID uuid.UUID, reason domain.FlagReason, details string) (*domain.Flag, error)

	// GetFlag retrieves a flag by its ID.
	GetFlag(ctx context.Context, id uuid.UUID) (*domain.Flag, error)

	// ResolveFlag closes a pending flag with the moderator's decision. An
	// actioned resolution pulls the worksheet from the community; resolving
	// the last pending flag against a flagged worksheet without action
	// restores it.
	ResolveFlag(ctx context.Context, moderatorID, flagID uuid.UUID, status domain.FlagStatus, resolution string) (*domain.Flag, error)

	// ListPendingFlags retrieves the moderation queue, oldest first.
	ListPendingFlags(ctx context.Context, limit, offset int) ([]*domain.Flag, error)

	// ListWorksheetFlags retrieves all flags against a worksheet.
	ListWorksheetFlags(ctx context.Context, worksheetID uuid.UUID) ([]*domain.Flag, error)
}

// moderationServiceImpl implements the ModerationService interface
type moderationServiceImpl struct {
	flags      FlagRepository
	worksheets store.WorksheetStore
	logger     *slog.Logger
	timeFunc   func() time.Time // Injectable for testing
}

// NewModerationService creates a new ModerationService.
func NewModerationService(
	flags FlagRepository,
	worksheets store.WorksheetStore,
	logger *slog.Logger,
) (ModerationService, error) {
	if flags == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "flags cannot be nil"}
	}
	if worksheets == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "worksheets cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &moderationServiceImpl{
		flags:      flags,
		worksheets: worksheets,
		logger:     logger.With("component", "moderation_service"),
		timeFunc:   time.Now,
	}, nil
}

// SubmitFlag reports a published worksheet.
func (s *moderationServiceImpl) SubmitFlag(
	ctx context.Context,
	reporterID, worksheetID uuid.UUID,
	reason domain.FlagReason,
	details string,
) (*domain.Flag, error) {
	ws, err := s.worksheets.GetByID(ctx, worksheetID)
	if err != nil {
		return nil, NewServiceError("submit_flag", "failed to retrieve worksheet", err)
	}
	if ws.Status != domain.WorksheetStatusPublished && ws.Status != domain.WorksheetStatusFlagged {
		return nil, fmt.Errorf("%w: only published worksheets can be flagged (worksheet is %s)",
			domain.ErrStateConflict, ws.Status)
	}

	flag, err := domain.NewFlag(worksheetID, reporterID, reason, details)
	if err != nil {
		return nil, err
	}

	if err := s.flags.Create(ctx, flag); err != nil {
		return nil, NewServiceError("submit_flag", "failed to save flag", err)
	}

	s.logger.Info("flag submitted",
		"flag_id", flag.ID,
		"worksheet_id", worksheetID,
		"reason", string(reason))

	return flag, nil
}

// GetFlag retrieves a flag by its ID.
func (s *moderationServiceImpl) GetFlag(ctx context.Context, id uuid.UUID) (*domain.Flag, error) {
	flag, err := s.flags.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_flag", "failed to retrieve flag", err)
	}
	return flag, nil
}

// ResolveFlag closes a pending flag and applies the worksheet-side effect of
// the decision in the same transaction.
func (s *moderationServiceImpl) ResolveFlag(
	ctx context.Context,
	moderatorID, flagID uuid.UUID,
	status domain.FlagStatus,
	resolution string,
) (*domain.Flag, error) {
	var result *domain.Flag
	err := store.RunInTransaction(ctx, s.flags.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txFlags := s.flags.WithTx(tx)
		txWorksheets := s.worksheets.WithTx(tx)

		flag, err := txFlags.GetByID(ctx, flagID)
		if err != nil {
			return NewServiceError("resolve_flag", "failed to retrieve flag", err)
		}

		if err := flag.Resolve(moderatorID, status, resolution, s.timeFunc()); err != nil {
			return err
		}
		if err := txFlags.Update(ctx, flag); err != nil {
			return NewServiceError("resolve_flag", "failed to save flag", err)
		}

		ws, err := txWorksheets.GetByID(ctx, flag.WorksheetID)
		if err != nil {
			return NewServiceError("resolve_flag", "failed to retrieve worksheet", err)
		}

		switch {
		case status == domain.FlagStatusActioned:
			// Already-flagged worksheets stay flagged; the decision still
			// closes this flag.
			if ws.Status != domain.WorksheetStatusFlagged {
				if err := ws.MarkFlagged(); err != nil {
					return err
				}
				if err := txWorksheets.Update(ctx, ws); err != nil {
					return NewServiceError("resolve_flag", "failed to save worksheet", err)
				}
			}
		case ws.Status == domain.WorksheetStatusFlagged:
			// Restore only once every pending flag has been cleared.
			pending, err := txFlags.CountPendingByWorksheet(ctx, flag.WorksheetID)
			if err != nil {
				return NewServiceError("resolve_flag", "failed to count pending flags", err)
			}
			if pending == 0 {
				if err := ws.Restore(); err != nil {
					return err
				}
				if err := txWorksheets.Update(ctx, ws); err != nil {
					return NewServiceError("resolve_flag", "failed to save worksheet", err)
				}
			}
		}

		result = flag
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("flag resolved",
		"flag_id", flagID,
		"worksheet_id", result.WorksheetID,
		"status", string(status),
		"moderator_id", moderatorID)

	return result, nil
}

// ListPendingFlags retrieves the moderation queue, oldest first.
func (s *moderationServiceImpl) ListPendingFlags(ctx context.Context, limit, offset int) ([]*domain.Flag, error) {
	flags, err := s.flags.ListByStatus(ctx, domain.FlagStatusPending, limit, offset)
	if err != nil {
		return nil, NewServiceError("list_pending_flags", "failed to list flags", err)
	}
	return flags, nil
}

// ListWorksheetFlags retrieves all flags against a worksheet.
func (s *moderationServiceImpl) ListWorksheetFlags(ctx context.Context, worksheetID uuid.UUID) ([]*domain.Flag, error) {
	flags, err := s.flags.ListByWorksheet(ctx, worksheetID)
	if err != nil {
		return nil, NewServiceError("list_worksheet_flags", "failed to list flags", err)
	}
	return flags, nil
}
