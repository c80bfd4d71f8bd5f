package state

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore reads entity state from Redis. Current values live under
// state:<id>; history is a sorted set under history:<id> whose members are
// "<unix_ms>:<value>" scored by timestamp, so range queries map directly
// onto ZRANGEBYSCORE.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store backed by an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// GetState implements Store.
func (s *RedisStore) GetState(ctx context.Context, id string) (string, error) {
	val, err := s.client.Get(ctx, "state:"+id).Result()
	if err == redis.Nil {
		return "", &NotFoundError{ID: id}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read state for %s: %w", id, err)
	}
	return val, nil
}

// GetHistory implements Store.
func (s *RedisStore) GetHistory(ctx context.Context, id string, start, end time.Time) ([]Sample, error) {
	members, err := s.client.ZRangeByScore(ctx, "history:"+id, &redis.ZRangeBy{
		Min: strconv.FormatInt(start.UnixMilli(), 10),
		Max: strconv.FormatInt(end.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", id, err)
	}

	samples := make([]Sample, 0, len(members))
	for _, m := range members {
		sample, err := parseSample(m)
		if err != nil {
			// Malformed members are skipped rather than failing the series.
			continue
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func parseSample(member string) (Sample, error) {
	ts, val, ok := strings.Cut(member, ":")
	if !ok {
		return Sample{}, fmt.Errorf("malformed history member %q", member)
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("malformed history timestamp %q", ts)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("malformed history value %q", val)
	}
	return Sample{At: time.UnixMilli(ms), Value: f}, nil
}
