package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sproutwell/sproutwell-api/internal/config"
	"github.com/sproutwell/sproutwell-api/internal/events"
	"github.com/sproutwell/sproutwell-api/internal/platform/gemini"
	"github.com/sproutwell/sproutwell-api/internal/platform/postgres"
	"github.com/sproutwell/sproutwell-api/internal/service"
	"github.com/sproutwell/sproutwell-api/internal/service/auth"
	"github.com/sproutwell/sproutwell-api/internal/store"
	"github.com/sproutwell/sproutwell-api/internal/task"
)

// documentLinker derives stable document URLs for generated worksheets. The
// documents themselves are rendered on demand by the document pipeline.
type documentLinker struct {
	basePath string
}

func (l *documentLinker) PDFURL(worksheetID uuid.UUID) string {
	return l.basePath + "/" + worksheetID.String() + ".pdf"
}

func (l *documentLinker) PreviewURL(worksheetID uuid.UUID) string {
	return l.basePath + "/" + worksheetID.String() + ".png"
}

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	worksheetStore  store.WorksheetStore
	imageStore      store.ImageStore
	assignmentStore store.AssignmentStore
	completionStore store.CompletionStore
	reviewStore     store.ReviewStore
	flagStore       store.FlagStore
	screeningStore  store.ScreeningStore
	taskStore       *postgres.PostgresTaskStore

	// Services
	jwtService        auth.JWTService
	worksheetService  service.WorksheetService
	imageService      *service.ImageService
	assignmentService service.AssignmentService
	reviewService     service.ReviewService
	moderationService service.ModerationService
	analyticsService  service.AnalyticsService

	// Generation pipeline
	contentGenerator *gemini.ContentGenerator
	imageGenerator   *gemini.ImageGenerator

	// Event system and task handling
	eventEmitter events.EventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies
// initialized. Configuration, logging, and the database connection must be
// established by the caller first.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Stores
	worksheetStore := postgres.NewPostgresWorksheetStore(db, logger)
	assignmentStore := postgres.NewPostgresAssignmentStore(db, logger)
	reviewStore := postgres.NewPostgresReviewStore(db, logger)
	flagStore := postgres.NewPostgresFlagStore(db, logger)
	app.worksheetStore = worksheetStore
	app.imageStore = postgres.NewPostgresImageStore(db, logger)
	app.assignmentStore = assignmentStore
	app.completionStore = postgres.NewPostgresCompletionStore(db, logger)
	app.reviewStore = reviewStore
	app.flagStore = flagStore
	app.screeningStore = postgres.NewPostgresScreeningStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	// Generation pipeline
	app.contentGenerator, err = gemini.NewContentGenerator(
		ctx, logger.With("component", "content_generator"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content generator: %w", err)
	}
	app.imageGenerator, err = gemini.NewImageGenerator(
		ctx, logger.With("component", "image_generator"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image generator: %w", err)
	}
	logger.Info("Gemini generators initialized",
		"model", cfg.LLM.ModelName,
		"image_model", cfg.LLM.ImageModelName)

	// Event emitter and task runner
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		QueueSize:        cfg.Task.QueueSize,
		WorkerCount:      cfg.Task.WorkerCount,
		StuckTaskAge:     time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
		ExecutionTimeout: time.Duration(cfg.Task.GenerationTimeoutSecs) * time.Second,
	}, logger)

	// Services
	links := &documentLinker{basePath: "/documents"}
	app.worksheetService, err = service.NewWorksheetService(
		worksheetStore, app.imageStore, app.eventEmitter, links, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create worksheet service: %w", err)
	}

	app.imageService, err = service.NewImageService(app.imageStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create image service: %w", err)
	}

	app.assignmentService, err = service.NewAssignmentService(
		assignmentStore, app.completionStore, app.worksheetStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment service: %w", err)
	}

	app.reviewService, err = service.NewReviewService(reviewStore, app.worksheetStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create review service: %w", err)
	}

	app.moderationService, err = service.NewModerationService(flagStore, app.worksheetStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create moderation service: %w", err)
	}

	app.analyticsService, err = service.NewAnalyticsService(
		app.completionStore, app.screeningStore, app.worksheetStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics service: %w", err)
	}

	// Task factory and event wiring. The analytics service doubles as the
	// screening reader for screening-driven generation requests.
	factory := task.NewWorksheetGenerationTaskFactory(
		app.worksheetService,
		app.imageService,
		app.analyticsService,
		app.contentGenerator,
		app.imageGenerator,
		cfg.Task.MaxGenerationAttempts,
		logger,
	)

	imageFactory := task.NewImageRegenerationTaskFactory(
		app.imageService,
		app.imageGenerator,
		logger,
	)

	app.taskStore.SetResolver(func(id uuid.UUID, taskType string, payload []byte) (task.Task, error) {
		switch taskType {
		case task.TaskTypeWorksheetGeneration:
			return factory.HydrateTask(id, payload)
		case task.TaskTypeImageRegeneration:
			return imageFactory.HydrateTask(id, payload)
		default:
			return nil, fmt.Errorf("unknown task type %q", taskType)
		}
	})

	handler := task.NewTaskFactoryEventHandler(factory, app.taskRunner, logger)
	imageHandler := task.NewImageRegenerationEventHandler(imageFactory, app.taskRunner, logger)
	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(handler)
		emitter.RegisterHandler(imageHandler)
	} else {
		return nil, fmt.Errorf("unexpected event emitter type, cannot register task handler")
	}

	// Start the runner after the resolver is in place so recovered rows can
	// be hydrated.
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
