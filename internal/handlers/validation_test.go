package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/pixeldeck/pixeldeck/internal/images"
	"github.com/pixeldeck/pixeldeck/internal/render"
	"github.com/pixeldeck/pixeldeck/internal/rotation"
)

func TestParseAllowlistMode(t *testing.T) {
	tests := []struct {
		in      string
		want    images.AllowlistMode
		wantErr bool
	}{
		{"", images.AllowlistStrict, false},
		{"strict", images.AllowlistStrict, false},
		{"permissive", images.AllowlistPermissive, false},
		{"open", "", true},
		{"Strict", "", true},
	}
	for _, tt := range tests {
		got, err := parseAllowlistMode(tt.in)
		if tt.wantErr != (err != nil) {
			t.Errorf("parseAllowlistMode(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAllowlistMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfigUpdateFromRequest(t *testing.T) {
	t.Run("rejects bad duration", func(t *testing.T) {
		zero := 0
		_, err := configUpdateFromRequest(RotationConfigRequest{DefaultDuration: &zero})
		if err == nil {
			t.Error("duration 0 should be rejected")
		}
	})

	t.Run("rejects bad mode", func(t *testing.T) {
		mode := "open"
		_, err := configUpdateFromRequest(RotationConfigRequest{AllowlistMode: &mode})
		if err == nil {
			t.Error("unknown mode should be rejected")
		}
	})

	t.Run("converts fields", func(t *testing.T) {
		enabled := true
		duration := 30
		mode := "permissive"
		update, err := configUpdateFromRequest(RotationConfigRequest{
			Enabled:         &enabled,
			DefaultDuration: &duration,
			AllowlistMode:   &mode,
		})
		if err != nil {
			t.Fatalf("configUpdateFromRequest: %v", err)
		}
		if update.Enabled == nil || !*update.Enabled {
			t.Error("Enabled not carried over")
		}
		if update.DefaultDuration == nil || *update.DefaultDuration != 30 {
			t.Error("DefaultDuration not carried over")
		}
		if update.AllowlistMode == nil || *update.AllowlistMode != images.AllowlistPermissive {
			t.Error("AllowlistMode not converted")
		}
		if update.PagesPath != nil {
			t.Error("absent PagesPath should stay nil")
		}
	})
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &render.ValidationError{Reason: "schema"}, http.StatusBadRequest},
		{"wrapped validation", &render.ComponentError{Err: errors.New("x")}, http.StatusInternalServerError},
		{"target", &rotation.TargetResolutionError{Target: "desk"}, http.StatusNotFound},
		{"nothing rendered", &render.NothingRenderedError{}, http.StatusUnprocessableEntity},
		{"push", &render.PushError{Err: errors.New("down")}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("statusForError = %d, want %d", got, tt.want)
			}
		})
	}
}
