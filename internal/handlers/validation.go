package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pixeldeck/pixeldeck/internal/images"
	"github.com/pixeldeck/pixeldeck/internal/render"
	"github.com/pixeldeck/pixeldeck/internal/rotation"
)

// parseAllowlistMode maps a request's allowlist_mode field to the resolver
// mode. Absent means strict.
func parseAllowlistMode(s string) (images.AllowlistMode, error) {
	switch s {
	case "", "strict":
		return images.AllowlistStrict, nil
	case "permissive":
		return images.AllowlistPermissive, nil
	default:
		return "", fmt.Errorf("allowlist_mode must be strict or permissive, got %q", s)
	}
}

// configUpdateFromRequest validates and converts a partial rotation config
// request into a typed update.
func configUpdateFromRequest(req RotationConfigRequest) (rotation.ConfigUpdate, error) {
	update := rotation.ConfigUpdate{
		Enabled:         req.Enabled,
		DefaultDuration: req.DefaultDuration,
		PagesPath:       req.PagesPath,
	}
	if req.DefaultDuration != nil && *req.DefaultDuration < 1 {
		return rotation.ConfigUpdate{}, fmt.Errorf("default_duration must be >= 1, got %d", *req.DefaultDuration)
	}
	if req.AllowlistMode != nil {
		mode, err := parseAllowlistMode(*req.AllowlistMode)
		if err != nil {
			return rotation.ConfigUpdate{}, err
		}
		update.AllowlistMode = &mode
	}
	return update, nil
}

// statusForError maps the renderer and rotation error taxonomy onto HTTP
// status codes.
func statusForError(err error) int {
	var (
		validation *render.ValidationError
		nothing    *render.NothingRenderedError
		push       *render.PushError
		target     *rotation.TargetResolutionError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &target):
		return http.StatusNotFound
	case errors.As(err, &nothing):
		return http.StatusUnprocessableEntity
	case errors.As(err, &push):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
