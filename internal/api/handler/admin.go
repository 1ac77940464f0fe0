package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/api/middleware"
	"github.com/hearth-labs/hearth/internal/api/models"
	"github.com/hearth-labs/hearth/internal/api/response"
	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

// AdminHandler serves the operator endpoints that change supervisor state.
type AdminHandler struct {
	supervisor Supervisor
	monitor    Monitor
	logger     zerolog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(sup Supervisor, mon Monitor, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{supervisor: sup, monitor: mon, logger: logger}
}

// Recover handles POST /v1/admin/components/{name}/recover.
func (h *AdminHandler) Recover(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	log := h.auditLog(r).With().Str("component", name).Logger()

	err := h.supervisor.Recover(r.Context(), name)

	var recErr *supervisor.RecoveryError
	switch {
	case err == nil:
		log.Info().Msg("manual recovery succeeded")
	case errors.Is(err, supervisor.ErrComponentNotFound):
		response.NotFound(w, r, "component "+name+" not found")
		return
	case errors.Is(err, supervisor.ErrRecoveryInProgress), errors.Is(err, supervisor.ErrNotRunning):
		response.Conflict(w, r, err.Error())
		return
	case errors.As(err, &recErr):
		log.Warn().Err(err).Msg("manual recovery failed")
		response.ServiceUnavailable(w, r, err.Error())
		return
	default:
		log.Error().Err(err).Msg("manual recovery failed")
		response.InternalError(w, r, "recovery failed")
		return
	}

	record, err := h.supervisor.ComponentStatus(name)
	if err != nil {
		response.NoContent(w, r)
		return
	}
	response.JSON(w, r, http.StatusOK, record)
}

// SetMaintenance handles PUT /v1/admin/maintenance.
func (h *AdminHandler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	var req models.MaintenanceRequest
	if !response.DecodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); errs != nil {
		response.BadRequest(w, r, "invalid maintenance request", errs)
		return
	}

	if err := h.supervisor.SetMaintenanceMode(r.Context(), *req.Enabled); err != nil {
		if errors.Is(err, supervisor.ErrNotRunning) {
			response.Conflict(w, r, err.Error())
			return
		}
		h.auditLog(r).Error().Err(err).Msg("setting maintenance mode")
		response.InternalError(w, r, "could not change maintenance mode")
		return
	}

	h.auditLog(r).Info().Bool("enabled", *req.Enabled).Msg("maintenance mode changed")
	response.JSON(w, r, http.StatusOK, models.MaintenanceResponse{Enabled: h.supervisor.MaintenanceMode()})
}

// GetThresholds handles GET /v1/admin/thresholds.
func (h *AdminHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.monitor.Thresholds())
}

// PatchThresholds handles PATCH /v1/admin/thresholds.
func (h *AdminHandler) PatchThresholds(w http.ResponseWriter, r *http.Request) {
	var patch alerting.ThresholdsPatch
	if !response.DecodeJSON(w, r, &patch) {
		return
	}

	th, err := h.monitor.UpdateThresholds(patch)
	if err != nil {
		if errors.Is(err, alerting.ErrInvalidThresholds) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		response.InternalError(w, r, "could not update thresholds")
		return
	}

	h.auditLog(r).Info().Msg("thresholds updated")
	response.JSON(w, r, http.StatusOK, th)
}

// GetConfiguration handles GET /v1/admin/configuration.
func (h *AdminHandler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.supervisor.Configuration())
}

// PatchConfiguration handles PATCH /v1/admin/configuration. A rejected
// update leaves the previous configuration in force.
func (h *AdminHandler) PatchConfiguration(w http.ResponseWriter, r *http.Request) {
	var patch config.RuntimePatch
	if !response.DecodeJSON(w, r, &patch) {
		return
	}

	old := h.supervisor.Configuration()
	next, err := h.supervisor.UpdateConfiguration(r.Context(), patch)
	if err != nil {
		switch {
		case errors.Is(err, config.ErrInvalidRuntime):
			response.BadRequest(w, r, err.Error(), nil)
		case errors.As(err, new(*supervisor.ConfigurationApplyError)):
			h.auditLog(r).Warn().Err(err).Msg("configuration update rolled back")
			response.ConfigurationRejected(w, r, err.Error())
		default:
			response.InternalError(w, r, "could not update configuration")
		}
		return
	}

	h.auditLog(r).Info().
		Strs("reconfigured_components", config.ChangedSettings(old, next)).
		Msg("configuration updated")
	response.JSON(w, r, http.StatusOK, next)
}

func (h *AdminHandler) auditLog(r *http.Request) *zerolog.Logger {
	log := h.logger.With().
		Str("operator", middleware.GetOperator(r.Context())).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Logger()
	return &log
}
