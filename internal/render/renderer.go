// Package render resolves page definitions into draw calls against a
// display surface: template expansion, schema validation, z-ordered widget
// dispatch with per-component fault isolation, and the final buffer push.
package render

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pixeldeck/pixeldeck/internal/bounds"
	"github.com/pixeldeck/pixeldeck/internal/colors"
	"github.com/pixeldeck/pixeldeck/internal/icons"
	"github.com/pixeldeck/pixeldeck/internal/images"
	"github.com/pixeldeck/pixeldeck/internal/state"
	"github.com/pixeldeck/pixeldeck/internal/surface"
	"github.com/pixeldeck/pixeldeck/internal/templates"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

// Renderer resolves one page definition per call against a single surface.
// It holds no mutable state of its own; serialization of concurrent render
// requests is the rotation queue's job.
type Renderer struct {
	surface surface.Surface
	eval    templates.Evaluator
	store   *pages.Store
	state   state.Store
	images  *images.Resolver
	icons   *icons.Rasterizer
	logger  *zap.Logger
}

// New creates a renderer.
func New(
	surf surface.Surface,
	eval templates.Evaluator,
	store *pages.Store,
	stateStore state.Store,
	imageResolver *images.Resolver,
	iconRasterizer *icons.Rasterizer,
	logger *zap.Logger,
) *Renderer {
	return &Renderer{
		surface: surf,
		eval:    eval,
		store:   store,
		state:   stateStore,
		images:  imageResolver,
		icons:   iconRasterizer,
		logger:  logger,
	}
}

// RenderNamed loads a stored page by name and renders it.
func (r *Renderer) RenderNamed(ctx context.Context, name string, vars map[string]any, mode images.AllowlistMode) error {
	doc, err := r.store.LoadNamed(name)
	if err != nil {
		return &ValidationError{Reason: "named page lookup", Err: err}
	}
	return r.Render(ctx, doc, vars, mode)
}

// Render resolves and draws one page document. vars are the
// caller-supplied variables; they win over page-declared defaults.
func (r *Renderer) Render(ctx context.Context, doc map[string]any, vars map[string]any, mode images.AllowlistMode) error {
	page, merged, err := r.resolvePage(doc, vars)
	if err != nil {
		return err
	}

	if page.Kind == pages.PageTemplate {
		page, merged, err = r.resolveTemplatePage(page, vars)
		if err != nil {
			return err
		}
	}

	switch page.Kind {
	case pages.PageChannel:
		return r.switchChannel(ctx, page)
	case pages.PageComponents:
		return r.renderComponents(ctx, page, merged, mode)
	case pages.PageTemplate:
		// A template page resolving to another template page never leaves
		// resolveTemplatePage; reaching here is a bug.
		return &ValidationError{Reason: "unresolved template page"}
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown page kind %q", page.Kind)}
	}
}

// resolvePage merges variable scopes, expands templates over the raw page
// structure and validates the result against the page schema.
func (r *Renderer) resolvePage(doc map[string]any, vars map[string]any) (*pages.Page, map[string]any, error) {
	pageVars, _ := doc["variables"].(map[string]any)
	merged := mergeVars(pageVars, vars)
	merged = templates.ResolveVariables(r.eval, merged, r.logger)

	resolved, err := templates.ResolveStructure(r.eval, doc, merged)
	if err != nil {
		return nil, nil, &ValidationError{Reason: "template resolution", Err: err}
	}

	page, err := pages.DecodePage(resolved.(map[string]any))
	if err != nil {
		return nil, nil, &ValidationError{Reason: "schema", Err: err}
	}
	return page, merged, nil
}

// resolveTemplatePage follows a template page's indirection to its stored
// definition. Scope precedence: stored defaults < template_vars < caller
// variables. A stored page that is itself a template page is an error.
func (r *Renderer) resolveTemplatePage(page *pages.Page, callerVars map[string]any) (*pages.Page, map[string]any, error) {
	stored, err := r.store.LoadNamed(page.TemplateName)
	if err != nil {
		return nil, nil, &ValidationError{Reason: fmt.Sprintf("template page %q", page.TemplateName), Err: err}
	}

	storedVars, _ := stored["variables"].(map[string]any)
	merged := mergeVars(storedVars, page.TemplateVars, callerVars)
	merged = templates.ResolveVariables(r.eval, merged, r.logger)

	resolved, err := templates.ResolveStructure(r.eval, stored, merged)
	if err != nil {
		return nil, nil, &ValidationError{Reason: fmt.Sprintf("template page %q resolution", page.TemplateName), Err: err}
	}

	inner, err := pages.DecodePage(resolved.(map[string]any))
	if err != nil {
		return nil, nil, &ValidationError{Reason: fmt.Sprintf("template page %q schema", page.TemplateName), Err: err}
	}
	if inner.Kind == pages.PageTemplate {
		return nil, nil, &ValidationError{Reason: fmt.Sprintf("template page %q resolves to another template page", page.TemplateName)}
	}
	return inner, merged, nil
}

// switchChannel signals the display to enter a built-in mode. No buffer
// work happens for channel pages.
func (r *Renderer) switchChannel(ctx context.Context, page *pages.Page) error {
	if err := r.surface.SetChannel(ctx, page.ChannelName); err != nil {
		return &PushError{Err: err}
	}
	if page.SubPage != nil {
		if err := r.surface.SetSubpage(ctx, *page.SubPage); err != nil {
			return &PushError{Err: err}
		}
	}
	r.logger.Debug("Switched display channel", zap.String("channel", page.ChannelName))
	return nil
}

func (r *Renderer) renderComponents(ctx context.Context, page *pages.Page, vars map[string]any, mode images.AllowlistMode) error {
	background := false
	if !page.Background.IsZero() {
		c, err := colors.Resolve(r.eval, page.Background, vars)
		if err != nil {
			// A bad background degrades to a clear, not a failed page.
			r.logger.Warn("Background color failed, clearing instead", zap.Error(err))
			r.surface.Clear()
		} else {
			r.surface.Fill(c)
			background = true
		}
	} else {
		r.surface.Clear()
	}

	var componentErrs []error
	rendered := 0
	for _, comp := range pages.RenderOrder(page.Components) {
		base := comp.Common()

		enabled, err := r.resolveBool(base.Enabled, vars)
		if err != nil {
			componentErrs = r.recordComponentErr(componentErrs, comp, err)
			continue
		}
		if !enabled {
			r.logger.Debug("Component disabled",
				zap.Int("index", base.Index),
				zap.String("type", string(comp.Kind())))
			continue
		}

		if !bounds.InBounds(comp, r.surface.Size()) {
			r.logger.Debug("Component out of bounds, skipping",
				zap.Int("index", base.Index),
				zap.String("type", string(comp.Kind())))
			continue
		}

		if err := r.renderComponentSafe(ctx, comp, vars, mode); err != nil {
			componentErrs = r.recordComponentErr(componentErrs, comp, err)
			continue
		}
		rendered++
	}

	if !background && rendered == 0 {
		var last error
		if n := len(componentErrs); n > 0 {
			last = componentErrs[n-1]
		}
		return &NothingRenderedError{Last: last}
	}

	if err := r.surface.Push(ctx); err != nil {
		return &PushError{Err: err}
	}
	return nil
}

// recordComponentErr logs and accumulates one widget failure. One bad
// widget must never abort the page.
func (r *Renderer) recordComponentErr(acc []error, comp pages.Component, err error) []error {
	cerr := &ComponentError{Index: comp.Common().Index, Kind: comp.Kind(), Err: err}
	r.logger.Warn("Component render failed",
		zap.Int("index", cerr.Index),
		zap.String("type", string(cerr.Kind)),
		zap.Error(err))
	return append(acc, cerr)
}

// renderComponentSafe contains panics from widget code so one bad widget
// cannot take down the render worker.
func (r *Renderer) renderComponentSafe(ctx context.Context, comp pages.Component, vars map[string]any, mode images.AllowlistMode) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.renderComponent(ctx, comp, vars, mode)
}

func (r *Renderer) renderComponent(ctx context.Context, comp pages.Component, vars map[string]any, mode images.AllowlistMode) error {
	switch t := comp.(type) {
	case *pages.Text:
		return r.renderText(ctx, t, vars)
	case *pages.Rectangle:
		return r.renderRectangle(t, vars)
	case *pages.Image:
		return r.renderImage(ctx, t, vars, mode)
	case *pages.ProgressBar:
		return r.renderProgressBar(ctx, t, vars)
	case *pages.Graph:
		return r.renderGraph(ctx, t, vars)
	case *pages.Icon:
		return r.renderIcon(ctx, t, vars)
	case *pages.Line:
		return r.renderLine(ctx, t, vars)
	case *pages.Circle:
		return r.renderCircle(ctx, t, vars)
	case *pages.Arc:
		return r.renderArc(ctx, t, vars)
	case *pages.Arrow:
		return r.renderArrow(ctx, t, vars)
	default:
		return fmt.Errorf("unhandled component type %q", comp.Kind())
	}
}

// mergeVars merges variable scopes left to right; later scopes win.
func mergeVars(scopes ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, scope := range scopes {
		for k, v := range scope {
			out[k] = v
		}
	}
	return out
}
