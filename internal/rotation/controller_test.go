package rotation

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pixeldeck/pixeldeck/internal/images"
	"github.com/pixeldeck/pixeldeck/internal/templates"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

type fakeRenderer struct {
	mu   sync.Mutex
	docs []map[string]any
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, doc map[string]any, _ map[string]any, _ images.AllowlistMode) error {
	f.mu.Lock()
	f.docs = append(f.docs, doc)
	f.mu.Unlock()
	return f.err
}

func (f *fakeRenderer) rendered() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.docs))
	copy(out, f.docs)
	return out
}

type controllerFixture struct {
	ctrl     *Controller
	configs  *MemoryConfigStore
	renderer *fakeRenderer
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	configs := NewMemoryConfigStore()
	renderer := &fakeRenderer{}
	queue := NewQueue(8, zap.NewNop())
	ctrl := NewController("bench", configs, renderer, templates.NewGoTemplate(), pages.NewStore(t.TempDir()), queue, zap.NewNop())
	t.Cleanup(func() {
		ctrl.Stop()
		queue.Close()
	})
	return &controllerFixture{ctrl: ctrl, configs: configs, renderer: renderer}
}

func (f *controllerFixture) saveConfig(t *testing.T, cfg Config) {
	t.Helper()
	if err := f.configs.Save(context.Background(), "bench", cfg); err != nil {
		t.Fatal(err)
	}
}

func page(extra map[string]any) map[string]any {
	doc := map[string]any{"components": []any{}}
	for k, v := range extra {
		doc[k] = v
	}
	return doc
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", c.State(), want)
}

func TestRunOnceDisabledConfigStops(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{Enabled: false, DefaultDuration: 15})

	delay, run := f.ctrl.runOnce(context.Background())
	if delay >= 0 {
		t.Errorf("delay = %s, want a stop signal", delay)
	}
	if run != nil {
		t.Error("disabled rotation should schedule no render")
	}
}

func TestRunOnceEmptyListUsesFallback(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{Enabled: true, DefaultDuration: 7})

	delay, run := f.ctrl.runOnce(context.Background())
	if delay != 7*time.Second {
		t.Errorf("delay = %s, want the 7s default", delay)
	}
	if run != nil {
		t.Error("empty list should schedule no render")
	}
}

func TestRunOnceSkipsDisabledPages(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{
		Enabled:         true,
		DefaultDuration: 15,
		Pages: []map[string]any{
			page(map[string]any{"name": "a", "enabled": false}),
			page(map[string]any{"name": "b", "duration": 5}),
		},
	})

	delay, run := f.ctrl.runOnce(context.Background())
	if delay != 5*time.Second {
		t.Errorf("delay = %s, want page b's 5s", delay)
	}
	if run == nil {
		t.Fatal("no render scheduled")
	}
	run()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(f.renderer.rendered()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	docs := f.renderer.rendered()
	if len(docs) != 1 || docs[0]["name"] != "b" {
		t.Fatalf("rendered %v, want page b", docs)
	}
}

func TestRunOnceAllDisabledUsesFallback(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{
		Enabled:         true,
		DefaultDuration: 9,
		Pages: []map[string]any{
			page(map[string]any{"enabled": false}),
			page(map[string]any{"enabled": "off"}),
		},
	})

	delay, run := f.ctrl.runOnce(context.Background())
	if delay != 9*time.Second {
		t.Errorf("delay = %s, want the 9s default", delay)
	}
	if run != nil {
		t.Error("all-disabled list should schedule no render")
	}
}

func TestRunOnceAdvancesAndWraps(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{
		Enabled:         true,
		DefaultDuration: 15,
		Pages: []map[string]any{
			page(map[string]any{"name": "a"}),
			page(map[string]any{"name": "b"}),
		},
	})

	for i, want := range []string{"a", "b", "a"} {
		_, run := f.ctrl.runOnce(context.Background())
		if run == nil {
			t.Fatalf("step %d: no render scheduled", i)
		}
		run()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && len(f.renderer.rendered()) <= i {
			time.Sleep(5 * time.Millisecond)
		}
		docs := f.renderer.rendered()
		if len(docs) != i+1 || docs[i]["name"] != want {
			t.Fatalf("step %d rendered %v, want %q", i, docs, want)
		}
	}
}

func TestRunOnceTemplatedEnabled(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{
		Enabled:         true,
		DefaultDuration: 15,
		Variables:       map[string]any{"show_b": "false"},
		Pages: []map[string]any{
			page(map[string]any{"name": "a", "enabled": "{{ .show_a }}", "variables": map[string]any{"show_a": "yes"}}),
			page(map[string]any{"name": "b", "enabled": "{{ .show_b }}"}),
			// An evaluation failure counts as disabled, not as an error.
			page(map[string]any{"name": "c", "enabled": "{{ .missing }}"}),
		},
	})

	for i := 0; i < 2; i++ {
		_, run := f.ctrl.runOnce(context.Background())
		if run == nil {
			t.Fatalf("step %d: no render scheduled", i)
		}
		run()
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(f.renderer.rendered()) < 2 {
		time.Sleep(5 * time.Millisecond)
	}
	docs := f.renderer.rendered()
	if len(docs) != 2 {
		t.Fatalf("rendered %d pages, want 2", len(docs))
	}
	// Only page a's condition holds, so rotation sticks to it.
	for i, doc := range docs {
		if doc["name"] != "a" {
			t.Errorf("render %d = %v, want page a", i, doc["name"])
		}
	}
}

func TestStartAndStop(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{
		Enabled:         true,
		DefaultDuration: 3600,
		Pages:           []map[string]any{page(map[string]any{"name": "a"})},
	})

	if err := f.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForState(t, f.ctrl, Running)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(f.renderer.rendered()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if len(f.renderer.rendered()) == 0 {
		t.Fatal("starting rotation rendered nothing")
	}

	f.ctrl.Stop()
	if got := f.ctrl.State(); got != Stopped {
		t.Errorf("state after Stop = %v", got)
	}
}

// gatedConfigStore blocks Load until released, so a test can hold a tick
// mid-decision while other calls race it.
type gatedConfigStore struct {
	inner   *MemoryConfigStore
	entered chan struct{}
	release chan struct{}
}

func (s *gatedConfigStore) Load(ctx context.Context, deviceID string) (Config, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.inner.Load(ctx, deviceID)
}

func (s *gatedConfigStore) Save(ctx context.Context, deviceID string, cfg Config) error {
	return s.inner.Save(ctx, deviceID, cfg)
}

func TestStopDuringTickStaysStopped(t *testing.T) {
	configs := NewMemoryConfigStore()
	gated := &gatedConfigStore{
		inner:   configs,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	queue := NewQueue(8, zap.NewNop())
	ctrl := NewController("bench", gated, &fakeRenderer{}, templates.NewGoTemplate(), pages.NewStore(t.TempDir()), queue, zap.NewNop())
	t.Cleanup(func() {
		ctrl.Stop()
		queue.Close()
	})

	if err := configs.Save(context.Background(), "bench", Config{
		Enabled:         true,
		DefaultDuration: 3600,
		Pages:           []map[string]any{page(map[string]any{"name": "a"})},
	}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		ctrl.Next(context.Background())
		close(done)
	}()
	<-gated.entered

	// A Stop that lands while the tick is still deciding must win.
	ctrl.Stop()
	close(gated.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not finish")
	}

	time.Sleep(50 * time.Millisecond)
	if got := ctrl.State(); got != Stopped {
		t.Fatalf("state after Stop during tick = %v, want Stopped", got)
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{Enabled: false, DefaultDuration: 15})

	if err := f.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := f.ctrl.State(); got != Stopped {
		t.Errorf("state = %v, want stopped", got)
	}
}

func TestShowMessageOverridesAndResumes(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{
		Enabled:         true,
		DefaultDuration: 3600,
		Pages:           []map[string]any{page(map[string]any{"name": "a"})},
	})

	if err := f.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForState(t, f.ctrl, Running)

	msg := page(map[string]any{"name": "msg"})
	if err := f.ctrl.ShowMessage(context.Background(), msg, time.Hour, nil, images.AllowlistStrict); err != nil {
		t.Fatalf("ShowMessage: %v", err)
	}
	if got := f.ctrl.State(); got != Overridden {
		t.Fatalf("state = %v, want overridden", got)
	}

	docs := f.renderer.rendered()
	if len(docs) == 0 || docs[len(docs)-1]["name"] != "msg" {
		t.Fatalf("message page not rendered, got %v", docs)
	}

	// Expiry hands control back to the rotation it preempted.
	f.ctrl.overrideExpired()
	waitForState(t, f.ctrl, Running)
}

func TestShowMessageFromStoppedStaysStopped(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{Enabled: false, DefaultDuration: 15})

	msg := page(map[string]any{"name": "msg"})
	if err := f.ctrl.ShowMessage(context.Background(), msg, time.Hour, nil, images.AllowlistStrict); err != nil {
		t.Fatalf("ShowMessage: %v", err)
	}
	if got := f.ctrl.State(); got != Overridden {
		t.Fatalf("state = %v, want overridden", got)
	}

	f.ctrl.overrideExpired()
	if got := f.ctrl.State(); got != Stopped {
		t.Errorf("state after expiry = %v, want stopped", got)
	}
}

func TestShowMessageStackedKeepsOriginalResume(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{
		Enabled:         true,
		DefaultDuration: 3600,
		Pages:           []map[string]any{page(map[string]any{"name": "a"})},
	})

	if err := f.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForState(t, f.ctrl, Running)

	for i := 0; i < 2; i++ {
		msg := page(map[string]any{"name": "msg"})
		if err := f.ctrl.ShowMessage(context.Background(), msg, time.Hour, nil, images.AllowlistStrict); err != nil {
			t.Fatalf("ShowMessage %d: %v", i, err)
		}
	}

	// The pre-override Running state survives the second, stacked message.
	f.ctrl.overrideExpired()
	waitForState(t, f.ctrl, Running)
}

func TestShowMessageRejectsNonpositiveDuration(t *testing.T) {
	f := newControllerFixture(t)
	if err := f.ctrl.ShowMessage(context.Background(), page(nil), 0, nil, images.AllowlistStrict); err == nil {
		t.Error("zero duration should be rejected")
	}
}

func TestSetConfig(t *testing.T) {
	f := newControllerFixture(t)
	f.saveConfig(t, Config{Enabled: true, DefaultDuration: 15})

	t.Run("rejects bad duration", func(t *testing.T) {
		bad := 0
		if err := f.ctrl.SetConfig(context.Background(), ConfigUpdate{DefaultDuration: &bad}); err == nil {
			t.Error("duration 0 should be rejected")
		}
	})

	t.Run("partial update persists", func(t *testing.T) {
		d := 30
		if err := f.ctrl.SetConfig(context.Background(), ConfigUpdate{DefaultDuration: &d}); err != nil {
			t.Fatalf("SetConfig: %v", err)
		}
		cfg, err := f.configs.Load(context.Background(), "bench")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.DefaultDuration != 30 || !cfg.Enabled {
			t.Errorf("config = %+v, want duration 30 and enabled untouched", cfg)
		}
	})

	t.Run("disabling stops a running controller", func(t *testing.T) {
		f.saveConfig(t, Config{
			Enabled:         true,
			DefaultDuration: 3600,
			Pages:           []map[string]any{page(nil)},
		})
		if err := f.ctrl.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		waitForState(t, f.ctrl, Running)

		off := false
		if err := f.ctrl.SetConfig(context.Background(), ConfigUpdate{Enabled: &off}); err != nil {
			t.Fatalf("SetConfig: %v", err)
		}
		if got := f.ctrl.State(); got != Stopped {
			t.Errorf("state = %v, want stopped", got)
		}
	})
}

func TestPageDuration(t *testing.T) {
	tests := []struct {
		name   string
		doc    map[string]any
		want   int
		wantOK bool
	}{
		{"int", map[string]any{"duration": 5}, 5, true},
		{"float", map[string]any{"duration": 5.0}, 5, true},
		{"absent", map[string]any{}, 0, false},
		{"zero", map[string]any{"duration": 0}, 0, false},
		{"negative", map[string]any{"duration": -3}, 0, false},
		{"string", map[string]any{"duration": "5"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pageDuration(tt.doc)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("pageDuration = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
