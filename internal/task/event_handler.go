package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sproutwell/sproutwell-api/internal/events"
)

// TaskFactoryEventHandler implements the events.EventHandler interface.
// It turns worksheet generation request events into concrete tasks and
// hands them to the runner. The event layer keeps the worksheet service
// from depending on this package directly.
type TaskFactoryEventHandler struct {
	factory *WorksheetGenerationTaskFactory
	runner  *TaskRunner
	logger  *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given
// task factory to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(
	factory *WorksheetGenerationTaskFactory,
	runner *TaskRunner,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent processes worksheet generation request events. Events of any
// other type are ignored so additional handlers can share the emitter.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeWorksheetGeneration {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload worksheetGenerationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := h.factory.CreateTask(payload.WorksheetID, payload.Request)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"worksheet_id", payload.WorksheetID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"worksheet_id", payload.WorksheetID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("worksheet generation task submitted",
		"task_id", task.ID(),
		"worksheet_id", payload.WorksheetID,
		"event_id", event.ID)
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)

// ImageRegenerationEventHandler turns image regeneration request events into
// tasks. It shares the emitter with the generation handler; each handler
// ignores the other's event types.
type ImageRegenerationEventHandler struct {
	factory *ImageRegenerationTaskFactory
	runner  *TaskRunner
	logger  *slog.Logger
}

// NewImageRegenerationEventHandler creates an event handler for image
// regeneration requests.
func NewImageRegenerationEventHandler(
	factory *ImageRegenerationTaskFactory,
	runner *TaskRunner,
	logger *slog.Logger,
) *ImageRegenerationEventHandler {
	return &ImageRegenerationEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "image_regeneration_event_handler"),
	}
}

// HandleEvent processes image regeneration request events.
func (h *ImageRegenerationEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeImageRegeneration {
		return nil
	}

	var payload imageRegenerationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := h.factory.CreateTask(payload.WorksheetID, payload.Slot, payload.ColorMode)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"worksheet_id", payload.WorksheetID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"worksheet_id", payload.WorksheetID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("image regeneration task submitted",
		"task_id", task.ID(),
		"worksheet_id", payload.WorksheetID,
		"slot", payload.Slot,
		"event_id", event.ID)
	return nil
}

// Ensure ImageRegenerationEventHandler implements events.EventHandler
var _ events.EventHandler = (*ImageRegenerationEventHandler)(nil)
