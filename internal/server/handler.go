// Package server is a development implementation of the task REST service,
// backed by sqlite. The client works against it or any backend exposing the
// same routes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"taskboard/internal/storage"
	"taskboard/internal/task"
)

type Handler struct {
	store *storage.Store
	log   *logrus.Logger
	newID func() string
	now   func() time.Time
}

func NewHandler(store *storage.Store, log *logrus.Logger) *Handler {
	return &Handler{store: store, log: log, newID: uuid.NewString, now: time.Now}
}

// Router wires the task and category routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", h.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}", h.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}", h.PatchTask).Methods(http.MethodPatch)
	r.HandleFunc("/tasks/{id}", h.DeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	r.HandleFunc("/categories", h.CreateCategory).Methods(http.MethodPost)
	return r
}

// Seed inserts the given categories when none exist yet.
func (h *Handler) Seed(ctx context.Context, names []string) error {
	cats, err := h.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(cats) > 0 {
		return nil
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := h.store.InsertCategory(ctx, task.Category{ID: task.ID(h.newID()), Name: name}); err != nil {
			return err
		}
	}
	h.log.WithField("categories", len(names)).Info("seeded default categories")
	return nil
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks(r.Context())
	if err != nil {
		h.internalError(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := task.ID(mux.Vars(r)["id"])
	t, err := h.store.GetTask(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(w, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var t task.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	if t.Priority != "" && !t.Priority.Valid() {
		http.Error(w, "unknown priority", http.StatusBadRequest)
		return
	}
	if t.ID.Empty() {
		t.ID = task.ID(h.newID())
	}
	if t.CreatedAt == "" {
		t.CreatedAt = task.Timestamp(h.now())
	}

	exists, err := h.store.Exists(r.Context(), "tasks", t.ID)
	if err != nil {
		h.internalError(w, "create task", err)
		return
	}
	if exists {
		http.Error(w, "task id already exists", http.StatusConflict)
		return
	}
	if err := h.store.InsertTask(r.Context(), t); err != nil {
		h.internalError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) PatchTask(w http.ResponseWriter, r *http.Request) {
	id := task.ID(mux.Vars(r)["id"])
	var p task.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := p.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := h.store.PatchTask(r.Context(), id, p)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(w, "patch task", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := task.ID(mux.Vars(r)["id"])
	err := h.store.DeleteTask(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(w, "delete task", err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		h.internalError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var c task.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if c.ID.Empty() {
		c.ID = task.ID(h.newID())
	}
	exists, err := h.store.Exists(r.Context(), "categories", c.ID)
	if err != nil {
		h.internalError(w, "create category", err)
		return
	}
	if exists {
		http.Error(w, "category id already exists", http.StatusConflict)
		return
	}
	if err := h.store.InsertCategory(r.Context(), c); err != nil {
		h.internalError(w, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.log.WithField("op", op).WithError(err).Error("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
