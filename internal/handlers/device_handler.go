package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pixeldeck/pixeldeck/internal/rotation"
)

// DeviceHandler handles HTTP requests for display operations
type DeviceHandler struct {
	manager *rotation.Manager
	logger  *zap.Logger
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(manager *rotation.Manager, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		manager: manager,
		logger:  logger,
	}
}

// RegisterRoutes registers the display operation routes
func (h *DeviceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/pages/reload", h.handlePagesReload)
	mux.HandleFunc("/devices/", h.handleDevice)
}

// handleHealth handles GET /health - returns service health status
func (h *DeviceHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"service": "pixeldeck",
		"version": "1.0.0",
	})
}

// handlePagesReload handles POST /pages/reload - drops cached page lists on
// every device
func (h *DeviceHandler) handlePagesReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.manager.ReloadPages(""); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, "Page lists reloaded")
}

// handleDevice routes /devices/{id}/{action...}:
//   - POST /devices/{id}/render       - render an inline page definition
//   - POST /devices/{id}/render-named - render a stored page by name
//   - POST /devices/{id}/message      - show a temporary override page
//   - POST /devices/{id}/rotation/start|stop|next
//   - POST /devices/{id}/rotation/config - partial rotation config update
func (h *DeviceHandler) handleDevice(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/devices/")
	pathParts := strings.Split(path, "/")

	if len(pathParts) < 2 || pathParts[0] == "" {
		http.Error(w, "Device ID and action required", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deviceID := pathParts[0]
	action := strings.Join(pathParts[1:], "/")

	switch action {
	case "render":
		h.handleRender(w, r, deviceID)
	case "render-named":
		h.handleRenderNamed(w, r, deviceID)
	case "message":
		h.handleMessage(w, r, deviceID)
	case "rotation/start":
		h.handleRotationStart(w, r, deviceID)
	case "rotation/stop":
		h.handleRotationStop(w, deviceID)
	case "rotation/next":
		h.handleRotationNext(w, r, deviceID)
	case "rotation/config":
		h.handleRotationConfig(w, r, deviceID)
	default:
		http.Error(w, "Endpoint not found", http.StatusNotFound)
	}
}

// RenderRequest represents the request body for inline page rendering
type RenderRequest struct {
	Page          map[string]any `json:"page"`
	Variables     map[string]any `json:"variables,omitempty"`
	AllowlistMode string         `json:"allowlist_mode,omitempty"`
}

func (h *DeviceHandler) handleRender(w http.ResponseWriter, r *http.Request, deviceID string) {
	var request RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if request.Page == nil {
		http.Error(w, "page is required", http.StatusBadRequest)
		return
	}
	mode, err := parseAllowlistMode(request.AllowlistMode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.manager.Render(r.Context(), deviceID, request.Page, request.Variables, mode); err != nil {
		h.logger.Warn("Render request failed",
			zap.String("device_id", deviceID),
			zap.Error(err))
		h.writeError(w, err)
		return
	}
	h.writeOK(w, "Page rendered")
}

// RenderNamedRequest represents the request body for stored page rendering
type RenderNamedRequest struct {
	Name          string         `json:"name"`
	Variables     map[string]any `json:"variables,omitempty"`
	AllowlistMode string         `json:"allowlist_mode,omitempty"`
}

func (h *DeviceHandler) handleRenderNamed(w http.ResponseWriter, r *http.Request, deviceID string) {
	var request RenderNamedRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if request.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	mode, err := parseAllowlistMode(request.AllowlistMode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.manager.RenderNamed(r.Context(), deviceID, request.Name, request.Variables, mode); err != nil {
		h.logger.Warn("Named render request failed",
			zap.String("device_id", deviceID),
			zap.String("page", request.Name),
			zap.Error(err))
		h.writeError(w, err)
		return
	}
	h.writeOK(w, "Page rendered")
}

// MessageRequest represents the request body for a temporary override page
type MessageRequest struct {
	Page          map[string]any `json:"page"`
	Duration      int            `json:"duration"` // seconds
	Variables     map[string]any `json:"variables,omitempty"`
	AllowlistMode string         `json:"allowlist_mode,omitempty"`
}

func (h *DeviceHandler) handleMessage(w http.ResponseWriter, r *http.Request, deviceID string) {
	var request MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if request.Page == nil {
		http.Error(w, "page is required", http.StatusBadRequest)
		return
	}
	if request.Duration < 1 {
		http.Error(w, "duration must be >= 1", http.StatusBadRequest)
		return
	}
	mode, err := parseAllowlistMode(request.AllowlistMode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	duration := time.Duration(request.Duration) * time.Second
	if err := h.manager.ShowMessage(r.Context(), deviceID, request.Page, duration, request.Variables, mode); err != nil {
		h.logger.Warn("Message request failed",
			zap.String("device_id", deviceID),
			zap.Error(err))
		h.writeError(w, err)
		return
	}
	h.writeOK(w, "Message shown")
}

func (h *DeviceHandler) handleRotationStart(w http.ResponseWriter, r *http.Request, deviceID string) {
	if err := h.manager.StartRotation(r.Context(), deviceID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, "Rotation started")
}

func (h *DeviceHandler) handleRotationStop(w http.ResponseWriter, deviceID string) {
	if err := h.manager.StopRotation(deviceID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, "Rotation stopped")
}

func (h *DeviceHandler) handleRotationNext(w http.ResponseWriter, r *http.Request, deviceID string) {
	if err := h.manager.NextPage(r.Context(), deviceID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, "Advanced to next page")
}

// RotationConfigRequest represents a partial rotation config update; absent
// fields are left unchanged
type RotationConfigRequest struct {
	Enabled         *bool   `json:"enabled,omitempty"`
	DefaultDuration *int    `json:"default_duration,omitempty"`
	PagesPath       *string `json:"pages_yaml_path,omitempty"`
	AllowlistMode   *string `json:"allowlist_mode,omitempty"`
}

func (h *DeviceHandler) handleRotationConfig(w http.ResponseWriter, r *http.Request, deviceID string) {
	var request RotationConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	update, err := configUpdateFromRequest(request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.manager.SetConfig(r.Context(), deviceID, update); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, "Rotation config updated")
}

func (h *DeviceHandler) writeOK(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "success",
		"message": message,
	})
}

func (h *DeviceHandler) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "error",
		"error":  err.Error(),
	})
}
