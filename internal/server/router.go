package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/idilsaglam/todolist/internal/auth"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(st Store, authSvc *auth.Service, bus EventBus, web http.Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{store: st, events: bus}

	// API routes (auth required when a key is configured)
	r.Group(func(r chi.Router) {
		r.Use(authSvc.Middleware)

		r.Get("/api/todos", h.getTodos)
		r.Post("/api/todos", h.createTodo)
		r.Post("/api/todos/sort", h.sortTodos)
		r.Get("/api/todos/{id}", h.getTodo)
		r.Patch("/api/todos/{id}", h.patchTodo)
		r.Delete("/api/todos/{id}", h.deleteTodo)

		// SSE
		r.Get("/api/subscribe", h.subscribeEvents)
	})

	// Embedded single-page UI
	if web != nil {
		r.Handle("/*", web)
	}

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, api-key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
