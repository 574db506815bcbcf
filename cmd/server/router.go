package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskr/internal/api"
	apiMiddleware "github.com/phrazzld/taskr/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	taskHandler := api.NewTaskHandler(app.taskService, app.statusService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.authorizer)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		// Runs after authentication so requests are limited per owner.
		if app.rateLimiter != nil {
			r.Use(app.rateLimiter.Handler)
		}
		taskHandler.RegisterRoutes(r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
