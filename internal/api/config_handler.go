package api

import (
	"log/slog"
	"net/http"

	"github.com/vipplay/contentgen/internal/api/shared"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/service"
)

// ConfigHandler serves the superadmin configuration export/import endpoints.
type ConfigHandler struct {
	config *service.ConfigService
	logger *slog.Logger
}

// NewConfigHandler creates a ConfigHandler.
func NewConfigHandler(config *service.ConfigService, logger *slog.Logger) *ConfigHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigHandler{
		config: config,
		logger: logger.With("component", "config_handler"),
	}
}

// Export handles GET /admin/config/export.
func (h *ConfigHandler) Export(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.config.Export(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, bundle)
}

// Import handles POST /admin/config/import. The bundle is applied atomically;
// a single invalid entry rejects the whole request.
func (h *ConfigHandler) Import(w http.ResponseWriter, r *http.Request) {
	var bundle domain.ConfigBundle
	if err := shared.DecodeJSON(r, &bundle); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.config.Import(r.Context(), &bundle)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}
