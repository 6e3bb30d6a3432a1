package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prepforge/practice-api/internal/api"
	apiMiddleware "github.com/prepforge/practice-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	practiceHandler := api.NewPracticeHandler(app.practiceService, app.logger)
	recommendationHandler := api.NewRecommendationHandler(app.recommendService, app.logger)
	distractorHandler := api.NewDistractorHandler(app.distractorService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Practice session lifecycle
			r.Post("/practice/sessions", practiceHandler.StartSession)
			r.Get("/practice/sessions/{id}", practiceHandler.GetSession)
			r.Get("/practice/sessions/{id}/questions/{index}", practiceHandler.GetQuestion)
			r.Patch("/practice/sessions/{id}/progress", practiceHandler.SaveProgress)
			r.Post("/practice/sessions/{id}/pause", practiceHandler.PauseSession)
			r.Post("/practice/sessions/{id}/resume", practiceHandler.ResumeSession)
			r.Post("/practice/sessions/{id}/complete", practiceHandler.CompleteSession)

			// Adaptive difficulty recommendation
			r.Get("/practice/recommendation", recommendationHandler.GetRecommendation)

			// MCQ option sets
			r.Post("/questions/{id}/options", distractorHandler.GenerateOptions)
			r.Get("/questions/{id}/options", distractorHandler.GetOptions)
			r.Post("/questions/{id}/options/{letter}/feedback", distractorHandler.RecordFeedback)
		})
	})

	// Health check endpoint (public)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
