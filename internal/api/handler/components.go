package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearth-labs/hearth/internal/api/models"
	"github.com/hearth-labs/hearth/internal/api/response"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

// ComponentsHandler serves the component queries.
type ComponentsHandler struct {
	supervisor Supervisor
}

// NewComponentsHandler creates a ComponentsHandler.
func NewComponentsHandler(sup Supervisor) *ComponentsHandler {
	return &ComponentsHandler{supervisor: sup}
}

// List handles GET /v1/components.
func (h *ComponentsHandler) List(w http.ResponseWriter, r *http.Request) {
	components := h.supervisor.Components()
	if components == nil {
		components = []supervisor.Record{}
	}
	response.JSON(w, r, http.StatusOK, models.ComponentList{
		Status:     h.supervisor.Status(),
		Components: components,
	})
}

// Get handles GET /v1/components/{name}.
func (h *ComponentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	record, err := h.supervisor.ComponentStatus(name)
	if errors.Is(err, supervisor.ErrComponentNotFound) {
		response.NotFound(w, r, "component "+name+" not found")
		return
	}
	if err != nil {
		response.InternalError(w, r, "could not read component status")
		return
	}
	response.JSON(w, r, http.StatusOK, record)
}
