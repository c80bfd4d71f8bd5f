package rotation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pixeldeck/pixeldeck/internal/images"
	"github.com/pixeldeck/pixeldeck/internal/templates"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

// State is the controller's lifecycle phase.
type State int

const (
	// Stopped means no timers are pending.
	Stopped State = iota
	// Running means a page-advance timer is pending.
	Running
	// Overridden means a temporary message is on-screen with its own
	// expiry timer; the page-advance timer is suspended.
	Overridden
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Overridden:
		return "overridden"
	default:
		return "stopped"
	}
}

// Log throttles for the two degenerate list conditions.
const (
	emptyListLogInterval   = time.Hour
	allDisabledLogInterval = time.Minute
)

// PageRenderer is the rendering dependency. Satisfied by render.Renderer.
type PageRenderer interface {
	Render(ctx context.Context, doc map[string]any, vars map[string]any, mode images.AllowlistMode) error
}

// Controller cycles a device through its configured page list on one-shot
// timers. All mutation happens under mu; timer callbacks re-enter through
// tick and overrideExpired only.
type Controller struct {
	deviceID string
	configs  ConfigStore
	renderer PageRenderer
	eval     templates.Evaluator
	store    *pages.Store
	queue    *Queue
	logger   *zap.Logger

	mu sync.Mutex
	// gen increments on every externally driven transition (Start, Stop,
	// ShowMessage) so an in-flight tick can detect that its decision is
	// stale and must not re-arm the timer.
	gen           uint64
	state         State
	index         int
	resume        bool
	advanceTimer  *time.Timer
	overrideTimer *time.Timer

	lastEmptyLog    time.Time
	lastDisabledLog time.Time
}

func NewController(deviceID string, configs ConfigStore, renderer PageRenderer, eval templates.Evaluator, store *pages.Store, queue *Queue, logger *zap.Logger) *Controller {
	return &Controller{
		deviceID: deviceID,
		configs:  configs,
		renderer: renderer,
		eval:     eval,
		store:    store,
		queue:    queue,
		logger:   logger.With(zap.String("device_id", deviceID)),
		index:    -1,
	}
}

// State reports the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins rotation with an immediate tick. No-op if already running
// or if the persisted config has rotation disabled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Running {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	cfg, err := c.configs.Load(ctx, c.deviceID)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		c.logger.Info("Rotation is disabled, not starting")
		return nil
	}
	if cfg.PagesPath != "" {
		c.store.Reload()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Running {
		return nil
	}
	c.cancelTimersLocked()
	c.gen++
	c.resume = false
	c.state = Running
	c.scheduleLocked(0)
	c.logger.Info("Rotation started")
	return nil
}

// Stop cancels all pending timers and clears override tracking. An
// in-flight render runs to completion.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimersLocked()
	c.gen++
	c.resume = false
	if c.state != Stopped {
		c.logger.Info("Rotation stopped")
	}
	c.state = Stopped
}

// Next forces an immediate advance to the next enabled page, as if the
// page-advance timer had fired.
func (c *Controller) Next(ctx context.Context) {
	c.tick(ctx)
}

// ReloadPages drops the cached YAML page list so the next tick re-reads it.
func (c *Controller) ReloadPages() {
	c.store.Reload()
	c.logger.Info("Page list cache cleared")
}

// SetConfig applies a partial update to the persisted configuration.
// Disabling while running stops the controller.
func (c *Controller) SetConfig(ctx context.Context, update ConfigUpdate) error {
	cfg, err := c.configs.Load(ctx, c.deviceID)
	if err != nil {
		return err
	}
	if update.Enabled != nil {
		cfg.Enabled = *update.Enabled
	}
	if update.DefaultDuration != nil {
		if *update.DefaultDuration < 1 {
			return fmt.Errorf("default_duration must be >= 1, got %d", *update.DefaultDuration)
		}
		cfg.DefaultDuration = *update.DefaultDuration
	}
	if update.PagesPath != nil {
		cfg.PagesPath = *update.PagesPath
	}
	if update.AllowlistMode != nil {
		cfg.AllowlistMode = *update.AllowlistMode
	}
	if err := c.configs.Save(ctx, c.deviceID, cfg); err != nil {
		return err
	}
	if !cfg.Enabled {
		c.Stop()
	}
	return nil
}

// ShowMessage preempts rotation with a temporary page. The page renders
// immediately through the render queue; after duration the controller
// resumes rotation if it was running before the first of any stacked
// overrides. The last message wins: a newer call replaces a still-pending
// expiry.
func (c *Controller) ShowMessage(ctx context.Context, doc map[string]any, duration time.Duration, vars map[string]any, mode images.AllowlistMode) error {
	if duration <= 0 {
		return fmt.Errorf("message duration must be positive, got %s", duration)
	}

	c.mu.Lock()
	c.cancelTimersLocked()
	c.gen++
	// Stacked overrides keep the original pre-override state.
	c.resume = c.resume || c.state == Running
	c.state = Overridden
	c.overrideTimer = time.AfterFunc(duration, c.overrideExpired)
	c.mu.Unlock()

	c.logger.Info("Showing message", zap.Duration("duration", duration))
	return c.queue.SubmitWait(ctx, func(jobCtx context.Context) error {
		return c.renderer.Render(jobCtx, doc, vars, mode)
	})
}

// tick is the page-advance entry point, fired by the timer or by Next.
func (c *Controller) tick(ctx context.Context) {
	c.mu.Lock()
	if c.state == Overridden {
		c.mu.Unlock()
		return
	}
	gen := c.gen
	c.mu.Unlock()

	delay, run := c.runOnce(ctx)

	c.mu.Lock()
	if c.gen != gen || c.state == Overridden {
		// A Stop, Start or override landed while we were deciding; it owns
		// the state and the timers now.
		c.mu.Unlock()
		return
	}
	if delay < 0 {
		c.cancelTimersLocked()
		c.state = Stopped
		c.mu.Unlock()
		return
	}
	c.state = Running
	c.scheduleLocked(delay)
	c.mu.Unlock()

	if run != nil {
		run()
	}
}

// runOnce makes one scheduling decision: it re-derives the config, picks
// the next enabled page, and returns the delay until the next tick plus
// the render to enqueue. A negative delay means stop. It takes no locks,
// so decisions are directly testable.
func (c *Controller) runOnce(ctx context.Context) (time.Duration, func()) {
	cfg, err := c.configs.Load(ctx, c.deviceID)
	if err != nil {
		c.logger.Error("Failed to load rotation config", zap.Error(err))
		return time.Duration(defaultConfig().DefaultDuration) * time.Second, nil
	}
	if !cfg.Enabled {
		c.logger.Info("Rotation disabled, stopping")
		return -1, nil
	}
	fallback := time.Duration(cfg.DefaultDuration) * time.Second

	list, err := c.effectivePages(cfg)
	if err != nil {
		c.logger.Error("Failed to load page list", zap.Error(err))
		return fallback, nil
	}
	if len(list) == 0 {
		c.throttledWarn(&c.lastEmptyLog, emptyListLogInterval, "Rotation page list is empty")
		return fallback, nil
	}

	pick := c.nextEnabled(list, cfg)
	if pick < 0 {
		c.throttledWarn(&c.lastDisabledLog, allDisabledLogInterval, "All rotation pages are disabled")
		return fallback, nil
	}

	c.mu.Lock()
	c.index = pick
	c.mu.Unlock()

	doc := list[pick]
	delay := fallback
	if secs, ok := pageDuration(doc); ok {
		delay = time.Duration(secs) * time.Second
	}

	run := func() {
		c.queue.Submit(func(jobCtx context.Context) error {
			err := c.renderer.Render(jobCtx, doc, cfg.Variables, cfg.AllowlistMode)
			if err != nil {
				// Render failures never stop the scheduler.
				c.logger.Warn("Rotation render failed",
					zap.Int("page_index", pick),
					zap.Error(err))
			}
			return err
		})
	}
	return delay, run
}

// effectivePages returns the YAML-sourced list when a path is configured,
// else the inline list.
func (c *Controller) effectivePages(cfg Config) ([]map[string]any, error) {
	if cfg.PagesPath != "" {
		return c.store.LoadList(cfg.PagesPath)
	}
	return cfg.Pages, nil
}

// nextEnabled scans forward from just past the current index, wrapping,
// for the first page whose enabled condition holds. Returns -1 when every
// page is disabled.
func (c *Controller) nextEnabled(list []map[string]any, cfg Config) int {
	c.mu.Lock()
	start := c.index
	c.mu.Unlock()

	for step := 1; step <= len(list); step++ {
		i := (start + step) % len(list)
		if i < 0 {
			i += len(list)
		}
		if c.pageEnabled(list[i], cfg) {
			return i
		}
	}
	return -1
}

// pageEnabled evaluates a page's enabled condition with config-scoped and
// page-scoped variables merged. Absent means enabled; an evaluation
// failure means disabled.
func (c *Controller) pageEnabled(doc map[string]any, cfg Config) bool {
	raw, present := doc["enabled"]
	if !present || raw == nil {
		return true
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if !pages.HasTemplateSyntax(v) {
			return pages.Truthy(v)
		}
		vars := make(map[string]any, len(cfg.Variables))
		for k, val := range cfg.Variables {
			vars[k] = val
		}
		if pv, ok := doc["variables"].(map[string]any); ok {
			for k, val := range pv {
				vars[k] = val
			}
		}
		out, err := c.eval.Render(v, vars)
		if err != nil {
			c.logger.Debug("Enabled condition failed, treating as disabled",
				zap.String("template", v),
				zap.Error(err))
			return false
		}
		return templateTruthy(out)
	default:
		return false
	}
}

func templateTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return pages.Truthy(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return v != nil
	}
}

func pageDuration(doc map[string]any) (int, bool) {
	switch v := doc["duration"].(type) {
	case int:
		if v >= 1 {
			return v, true
		}
	case int64:
		if v >= 1 {
			return int(v), true
		}
	case float64:
		if v >= 1 {
			return int(v), true
		}
	}
	return 0, false
}

// overrideExpired fires when a message's display window ends.
func (c *Controller) overrideExpired() {
	c.mu.Lock()
	if c.state != Overridden {
		c.mu.Unlock()
		return
	}
	resume := c.resume
	c.resume = false
	if resume {
		c.state = Running
		c.scheduleLocked(0)
	} else {
		c.state = Stopped
	}
	c.mu.Unlock()

	c.logger.Info("Message expired", zap.Bool("resuming", resume))
}

// scheduleLocked arms the page-advance timer. Caller holds mu.
func (c *Controller) scheduleLocked(delay time.Duration) {
	if c.advanceTimer != nil {
		c.advanceTimer.Stop()
	}
	c.advanceTimer = time.AfterFunc(delay, func() {
		c.tick(context.Background())
	})
}

// cancelTimersLocked stops both pending timers. Fired callbacks that are
// already executing are not interrupted. Caller holds mu.
func (c *Controller) cancelTimersLocked() {
	if c.advanceTimer != nil {
		c.advanceTimer.Stop()
		c.advanceTimer = nil
	}
	if c.overrideTimer != nil {
		c.overrideTimer.Stop()
		c.overrideTimer = nil
	}
}

func (c *Controller) throttledWarn(last *time.Time, interval time.Duration, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(*last) < interval {
		return
	}
	*last = time.Now()
	c.logger.Warn(msg)
}
