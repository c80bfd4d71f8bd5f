package models

import "time"

// Command types accepted over the message bus.
const (
	CommandRender        = "render"
	CommandRenderNamed   = "render_named"
	CommandShowMessage   = "show_message"
	CommandRotationStart = "rotation_start"
	CommandRotationStop  = "rotation_stop"
	CommandRotationNext  = "rotation_next"
	CommandReloadPages   = "reload_pages"
	CommandSetConfig     = "set_config"
)

// Command represents a display operation requested over the message bus.
// Target selects one device by ID; an empty target addresses all devices.
type Command struct {
	Type          string         `json:"type"`
	UUID          string         `json:"uuid,omitempty"`
	Target        string         `json:"target,omitempty"`
	Page          map[string]any `json:"page,omitempty"`
	PageName      string         `json:"page_name,omitempty"`
	Duration      int            `json:"duration,omitempty"` // seconds, show_message only
	Variables     map[string]any `json:"variables,omitempty"`
	AllowlistMode string         `json:"allowlist_mode,omitempty"`
	Config        *ConfigPatch   `json:"config,omitempty"` // set_config only
}

// ConfigPatch carries a partial rotation-config update; nil fields are
// left unchanged.
type ConfigPatch struct {
	Enabled         *bool   `json:"enabled,omitempty"`
	DefaultDuration *int    `json:"default_duration,omitempty"`
	PagesPath       *string `json:"pages_yaml_path,omitempty"`
	AllowlistMode   *string `json:"allowlist_mode,omitempty"`
}

// Outcome represents the result of a command
type Outcome struct {
	Type        string    `json:"type"`
	UUID        string    `json:"uuid,omitempty"`
	Target      string    `json:"target,omitempty"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}
