package rotation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pixeldeck/pixeldeck/internal/images"
)

// TargetResolutionError reports that an operation named a device nobody
// registered, or that an all-devices operation found no devices.
type TargetResolutionError struct {
	Target string
}

func (e *TargetResolutionError) Error() string {
	if e.Target == "" {
		return "no devices registered"
	}
	return fmt.Sprintf("no device matches target %q", e.Target)
}

// NamedRenderer extends PageRenderer with named-page lookup. Satisfied by
// render.Renderer.
type NamedRenderer interface {
	PageRenderer
	RenderNamed(ctx context.Context, name string, vars map[string]any, mode images.AllowlistMode) error
}

// Device bundles one display's controller, queue and renderer.
type Device struct {
	ID         string
	Controller *Controller
	Queue      *Queue
	Renderer   NamedRenderer
}

// Manager routes host operations to registered devices. An empty target
// addresses every device; multi-target operations succeed when at least
// one device does, reporting the first failure alongside.
type Manager struct {
	mu      sync.RWMutex
	devices map[string]*Device
	logger  *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		devices: make(map[string]*Device),
		logger:  logger,
	}
}

// Register adds a device. Registering an existing ID replaces it; the old
// device's queue keeps draining independently.
func (m *Manager) Register(d *Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.ID] = d
	m.logger.Info("Device registered", zap.String("device_id", d.ID))
}

// Device returns one registered device.
func (m *Manager) Device(id string) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, &TargetResolutionError{Target: id}
	}
	return d, nil
}

// resolve returns the device matched by target, or all devices for an
// empty target, in stable ID order.
func (m *Manager) resolve(target string) ([]*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if target != "" {
		d, ok := m.devices[target]
		if !ok {
			return nil, &TargetResolutionError{Target: target}
		}
		return []*Device{d}, nil
	}
	if len(m.devices) == 0 {
		return nil, &TargetResolutionError{}
	}
	ids := make([]string, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Device, len(ids))
	for i, id := range ids {
		out[i] = m.devices[id]
	}
	return out, nil
}

// each runs op per resolved device. At least one success makes the whole
// operation a success; otherwise the first error comes back.
func (m *Manager) each(target string, op func(d *Device) error) error {
	devices, err := m.resolve(target)
	if err != nil {
		return err
	}
	var firstErr error
	succeeded := 0
	for _, d := range devices {
		if err := op(d); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			m.logger.Warn("Device operation failed",
				zap.String("device_id", d.ID),
				zap.Error(err))
			continue
		}
		succeeded++
	}
	if succeeded == 0 {
		return firstErr
	}
	if firstErr != nil {
		m.logger.Warn("Operation partially succeeded",
			zap.Int("ok", succeeded),
			zap.Int("total", len(devices)),
			zap.Error(firstErr))
	}
	return nil
}

// Render draws an inline page definition on the targeted devices through
// their render queues.
func (m *Manager) Render(ctx context.Context, target string, doc map[string]any, vars map[string]any, mode images.AllowlistMode) error {
	return m.each(target, func(d *Device) error {
		return d.Queue.SubmitWait(ctx, func(jobCtx context.Context) error {
			return d.Renderer.Render(jobCtx, doc, vars, mode)
		})
	})
}

// RenderNamed draws a stored page by name on the targeted devices.
func (m *Manager) RenderNamed(ctx context.Context, target, name string, vars map[string]any, mode images.AllowlistMode) error {
	return m.each(target, func(d *Device) error {
		return d.Queue.SubmitWait(ctx, func(jobCtx context.Context) error {
			return d.Renderer.RenderNamed(jobCtx, name, vars, mode)
		})
	})
}

// ShowMessage preempts rotation on the targeted devices with a temporary
// page.
func (m *Manager) ShowMessage(ctx context.Context, target string, doc map[string]any, duration time.Duration, vars map[string]any, mode images.AllowlistMode) error {
	return m.each(target, func(d *Device) error {
		return d.Controller.ShowMessage(ctx, doc, duration, vars, mode)
	})
}

// StartRotation starts page cycling on the targeted devices.
func (m *Manager) StartRotation(ctx context.Context, target string) error {
	return m.each(target, func(d *Device) error {
		return d.Controller.Start(ctx)
	})
}

// StopRotation halts page cycling on the targeted devices.
func (m *Manager) StopRotation(target string) error {
	return m.each(target, func(d *Device) error {
		d.Controller.Stop()
		return nil
	})
}

// NextPage forces an immediate advance on the targeted devices.
func (m *Manager) NextPage(ctx context.Context, target string) error {
	return m.each(target, func(d *Device) error {
		d.Controller.Next(ctx)
		return nil
	})
}

// ReloadPages drops cached YAML page lists on the targeted devices.
func (m *Manager) ReloadPages(target string) error {
	return m.each(target, func(d *Device) error {
		d.Controller.ReloadPages()
		return nil
	})
}

// SetConfig applies a partial rotation-config update on the targeted
// devices.
func (m *Manager) SetConfig(ctx context.Context, target string, update ConfigUpdate) error {
	return m.each(target, func(d *Device) error {
		return d.Controller.SetConfig(ctx, update)
	})
}

// Close drains every device queue.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		d.Controller.Stop()
		d.Queue.Close()
	}
}
