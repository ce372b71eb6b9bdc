// Package server is the HTTP front end: a REST surface over the store, an
// SSE feed of collection snapshots and an embedded single-page UI.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/idilsaglam/todolist/internal/model"
)

// Store is the slice of the todo store the handlers need.
type Store interface {
	Todos() []model.Todo
	Add(title string) (model.Todo, error)
	Edit(id int, title string) error
	Delete(id int) error
	Sort(ascending bool) error
	Reload() error
}

// EventBus is the interface for subscribing to collection snapshots.
type EventBus interface {
	Subscribe(id string) <-chan []model.Todo
	Unsubscribe(id string)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	store  Store
	events EventBus
}

func (h *Handlers) getTodos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"todos": h.store.Todos()})
}

func (h *Handlers) createTodo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	// An absent body adds an empty entry, same as the a-gesture in the TUI.
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errBadRequest("invalid JSON: "+err.Error()))
			return
		}
	}
	td, err := h.store.Add(req.Title)
	if err != nil {
		writeError(w, fromStoreError(err))
		return
	}
	writeJSON(w, http.StatusCreated, td)
}

func (h *Handlers) getTodo(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	for _, td := range h.store.Todos() {
		if td.ID == id {
			writeJSON(w, http.StatusOK, td)
			return
		}
	}
	writeError(w, errNotFound("todo not found"))
}

func (h *Handlers) patchTodo(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if err := h.store.Edit(id, req.Title); err != nil {
		writeError(w, fromStoreError(err))
		return
	}
	for _, td := range h.store.Todos() {
		if td.ID == id {
			writeJSON(w, http.StatusOK, td)
			return
		}
	}
	writeError(w, errNotFound("todo not found"))
}

func (h *Handlers) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.Delete(id); err != nil {
		writeError(w, fromStoreError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) sortTodos(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Ascending bool `json:"ascending"`
	}{Ascending: true}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errBadRequest("invalid JSON: "+err.Error()))
			return
		}
	}
	if err := h.store.Sort(req.Ascending); err != nil {
		writeError(w, fromStoreError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"todos": h.store.Todos()})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(errInternal(err.Error()))
}

// intParam reads an integer path parameter by name.
func intParam(r *http.Request, name string) (int, error) {
	s := chi.URLParam(r, name)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}
