package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/domain/repository"
	"github.com/coursestream/mediahub/internal/usecase"
)

// SettingsResponse mirrors the storage settings record. Secrets are included
// because the consumer is the admin settings form.
type SettingsResponse struct {
	ActiveProvider         string `json:"active_provider"`
	SignedURLExpirySeconds int    `json:"signed_url_expiry_seconds"`
	MaxFileSizeMB          int    `json:"max_file_size_mb"`
	AutoCompress           bool   `json:"auto_compress"`
	GatewayEndpoint        string `json:"gateway_endpoint,omitempty"`
	GatewayPublicBaseURL   string `json:"gateway_public_base_url,omitempty"`
	CDNStorageZoneURL      string `json:"cdn_storage_zone_url,omitempty"`
	CDNAccessKey           string `json:"cdn_access_key,omitempty"`
	CDNPullZoneURL         string `json:"cdn_pull_zone_url,omitempty"`
	CDNSecurityKey         string `json:"cdn_security_key,omitempty"`
	UpdatedAt              string `json:"updated_at"`
}

type SaveSettingsRequest struct {
	ActiveProvider         string `json:"active_provider"`
	SignedURLExpirySeconds int    `json:"signed_url_expiry_seconds"`
	MaxFileSizeMB          int    `json:"max_file_size_mb"`
	AutoCompress           bool   `json:"auto_compress"`
	GatewayEndpoint        string `json:"gateway_endpoint"`
	GatewayPublicBaseURL   string `json:"gateway_public_base_url"`
	CDNStorageZoneURL      string `json:"cdn_storage_zone_url"`
	CDNAccessKey           string `json:"cdn_access_key"`
	CDNPullZoneURL         string `json:"cdn_pull_zone_url"`
	CDNSecurityKey         string `json:"cdn_security_key"`
}

// SettingsHandler handles storage settings HTTP requests.
type SettingsHandler struct {
	svc usecase.StorageService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(svc usecase.StorageService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// Get handles GET /v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.GetSettings(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			Error(w, http.StatusNotFound, "settings_not_found", "Storage settings have not been configured")
			return
		}
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	JSON(w, http.StatusOK, toSettingsResponse(settings))
}

// Save handles PUT /v1/settings
func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	settings := &model.StorageSettings{
		ActiveProvider:         model.Provider(req.ActiveProvider),
		SignedURLExpirySeconds: req.SignedURLExpirySeconds,
		MaxFileSizeMB:          req.MaxFileSizeMB,
		AutoCompress:           req.AutoCompress,
		GatewayEndpoint:        req.GatewayEndpoint,
		GatewayPublicBaseURL:   req.GatewayPublicBaseURL,
		CDNStorageZoneURL:      req.CDNStorageZoneURL,
		CDNAccessKey:           req.CDNAccessKey,
		CDNPullZoneURL:         req.CDNPullZoneURL,
		CDNSecurityKey:         req.CDNSecurityKey,
		UpdatedAt:              time.Now(),
	}

	if err := h.svc.SaveSettings(r.Context(), settings); err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidActiveProvider),
			errors.Is(err, model.ErrInvalidExpiry),
			errors.Is(err, model.ErrInvalidMaxFileSize):
			Error(w, http.StatusBadRequest, "invalid_settings", err.Error())
		default:
			Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		}
		return
	}

	JSON(w, http.StatusOK, toSettingsResponse(settings))
}

func toSettingsResponse(s *model.StorageSettings) SettingsResponse {
	return SettingsResponse{
		ActiveProvider:         s.ActiveProvider.String(),
		SignedURLExpirySeconds: s.SignedURLExpirySeconds,
		MaxFileSizeMB:          s.MaxFileSizeMB,
		AutoCompress:           s.AutoCompress,
		GatewayEndpoint:        s.GatewayEndpoint,
		GatewayPublicBaseURL:   s.GatewayPublicBaseURL,
		CDNStorageZoneURL:      s.CDNStorageZoneURL,
		CDNAccessKey:           s.CDNAccessKey,
		CDNPullZoneURL:         s.CDNPullZoneURL,
		CDNSecurityKey:         s.CDNSecurityKey,
		UpdatedAt:              s.UpdatedAt.Format(time.RFC3339),
	}
}
