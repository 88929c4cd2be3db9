package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sproutwell/sproutwell-api/internal/api"
	apiMiddleware "github.com/sproutwell/sproutwell-api/internal/api/middleware"
	"github.com/sproutwell/sproutwell-api/internal/service/auth"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	worksheetHandler := api.NewWorksheetHandler(app.worksheetService, app.logger)
	assignmentHandler := api.NewAssignmentHandler(app.assignmentService, app.logger)
	reviewHandler := api.NewReviewHandler(app.reviewService, app.logger)
	flagHandler := api.NewFlagHandler(app.moderationService, app.logger)
	analyticsHandler := api.NewAnalyticsHandler(app.analyticsService, app.logger)

	creators := authMiddleware.RequireRole(auth.RoleTherapist, auth.RoleAdmin)
	caregivers := authMiddleware.RequireRole(auth.RoleCaregiver, auth.RoleAdmin)
	admins := authMiddleware.RequireRole(auth.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		// Worksheet lifecycle
		r.With(creators).Post("/worksheets/generate", worksheetHandler.Generate)
		r.Get("/worksheets", worksheetHandler.Browse)
		r.Get("/worksheets/{id}", worksheetHandler.Get)
		r.Get("/worksheets/{id}/status", worksheetHandler.GetStatus)
		r.Get("/worksheets/{id}/images", worksheetHandler.ListImages)
		r.Post("/worksheets/{id}/images/{slot}/regenerate", worksheetHandler.RegenerateImage)
		r.Post("/worksheets/{id}/publish", worksheetHandler.Publish)
		r.Post("/worksheets/{id}/unpublish", worksheetHandler.Unpublish)
		r.Post("/worksheets/{id}/archive", worksheetHandler.Archive)
		r.Post("/worksheets/{id}/clone", worksheetHandler.Clone)
		r.With(creators).Post("/worksheets/{id}/versions", worksheetHandler.CreateVersion)
		r.Get("/worksheets/{id}/versions", worksheetHandler.ListVersions)
		r.Get("/worksheets/{id}/effectiveness", analyticsHandler.Effectiveness)

		// Assignments and completions
		r.With(creators).Post("/assignments", assignmentHandler.Create)
		r.Get("/assignments", assignmentHandler.List)
		r.Get("/assignments/{id}", assignmentHandler.Get)
		r.Patch("/assignments/{id}", assignmentHandler.UpdateStatus)
		r.With(caregivers).Post("/completions", assignmentHandler.RecordCompletion)

		// Community reviews
		r.Post("/worksheets/{id}/reviews", reviewHandler.Create)
		r.Get("/worksheets/{id}/reviews", reviewHandler.List)
		r.Delete("/reviews/{id}", reviewHandler.Delete)
		r.Post("/reviews/{id}/helpful", reviewHandler.MarkHelpful)

		// Moderation
		r.Post("/worksheets/{id}/flags", flagHandler.Submit)
		r.With(admins).Get("/worksheets/{id}/flags", flagHandler.ListForWorksheet)
		r.With(admins).Get("/flags", flagHandler.ListPending)
		r.With(admins).Post("/flags/{id}/resolve", flagHandler.Resolve)

		// Analytics
		r.Get("/children/{childID}/completions", assignmentHandler.ListCompletions)
		r.Get("/children/{childID}/completion-stats", analyticsHandler.CompletionStats)
		r.Get("/children/{childID}/progress", analyticsHandler.Progress)
		r.Get("/children/{childID}/journey", analyticsHandler.Journey)
		r.Get("/children/{childID}/recommendations", analyticsHandler.Recommendations)
		r.Get("/children/{childID}/suggested-difficulty", analyticsHandler.SuggestedDifficulty)
		r.Get("/screenings/{id}/scores", analyticsHandler.Screening)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
