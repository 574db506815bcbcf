package api

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the task routes on r. Authentication and rate
// limiting are applied by the caller.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.CreateTask)
		r.Get("/", h.ListTasks)
		r.Get("/{id}", h.GetTask)
		r.Put("/{id}", h.UpdateTask)
		r.Delete("/{id}", h.DeleteTask)
		r.Patch("/{id}/status", h.UpdateTaskStatus)
		r.Get("/{id}/attachment", h.GetAttachmentURL)
	})
}
