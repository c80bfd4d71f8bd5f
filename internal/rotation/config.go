package rotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/pixeldeck/pixeldeck/internal/images"
)

// Config is the persisted per-device rotation configuration. It is loaded
// fresh on every scheduling decision so external edits take effect on the
// next tick without a restart.
type Config struct {
	Enabled         bool                 `json:"enabled"`
	DefaultDuration int                  `json:"default_duration"`
	Pages           []map[string]any     `json:"pages,omitempty"`
	PagesPath       string               `json:"pages_yaml_path,omitempty"`
	AllowlistMode   images.AllowlistMode `json:"allowlist_mode"`
	Variables       map[string]any       `json:"variables,omitempty"`
}

// ConfigUpdate carries the fields of a set-config operation; nil fields are
// left unchanged.
type ConfigUpdate struct {
	Enabled         *bool
	DefaultDuration *int
	PagesPath       *string
	AllowlistMode   *images.AllowlistMode
}

func defaultConfig() Config {
	return Config{
		Enabled:         false,
		DefaultDuration: 15,
		AllowlistMode:   images.AllowlistStrict,
	}
}

func (c *Config) normalize() {
	if c.DefaultDuration < 1 {
		c.DefaultDuration = 15
	}
	if c.AllowlistMode != images.AllowlistPermissive {
		c.AllowlistMode = images.AllowlistStrict
	}
}

// ConfigStore persists rotation configuration per device.
type ConfigStore interface {
	Load(ctx context.Context, deviceID string) (Config, error)
	Save(ctx context.Context, deviceID string, cfg Config) error
}

// RedisConfigStore keeps one JSON document per device under
// "rotation:<device>". A missing key yields the defaults.
type RedisConfigStore struct {
	client *redis.Client
}

func NewRedisConfigStore(client *redis.Client) *RedisConfigStore {
	return &RedisConfigStore{client: client}
}

func (s *RedisConfigStore) Load(ctx context.Context, deviceID string) (Config, error) {
	raw, err := s.client.Get(ctx, "rotation:"+deviceID).Result()
	if errors.Is(err, redis.Nil) {
		return defaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to load rotation config: %w", err)
	}
	cfg := defaultConfig()
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse rotation config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (s *RedisConfigStore) Save(ctx context.Context, deviceID string, cfg Config) error {
	cfg.normalize()
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode rotation config: %w", err)
	}
	if err := s.client.Set(ctx, "rotation:"+deviceID, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save rotation config: %w", err)
	}
	return nil
}

// MemoryConfigStore is a map-backed ConfigStore for tests and single-node
// setups without Redis.
type MemoryConfigStore struct {
	mu   sync.Mutex
	cfgs map[string]Config
}

func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{cfgs: make(map[string]Config)}
}

func (s *MemoryConfigStore) Load(_ context.Context, deviceID string) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.cfgs[deviceID]
	if !ok {
		return defaultConfig(), nil
	}
	return cfg, nil
}

func (s *MemoryConfigStore) Save(_ context.Context, deviceID string, cfg Config) error {
	cfg.normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfgs[deviceID] = cfg
	return nil
}
