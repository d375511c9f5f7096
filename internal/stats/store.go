// Package stats collects and analyzes per-block chain statistics used to
// pick a good submission delay.
package stats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const sampleKeyFmt = "chainstats:%s:samples"

// Sample is one finalized block's measurements.
type Sample struct {
	Block      uint64  `json:"block"`
	BlockTime  float64 `json:"block_time_sec"`
	Pending    int     `json:"pending_extrinsics"`
	Weight     uint64  `json:"block_weight"`
	ObservedAt int64   `json:"observed_at"`
}

// Store persists samples as a Redis list, one JSON entry per block,
// keyed by a network label so runs against different chains don't mix.
type Store struct {
	rdb *redis.Client
	key string
}

func NewStore(rdb *redis.Client, network string) *Store {
	return &Store{rdb: rdb, key: fmt.Sprintf(sampleKeyFmt, network)}
}

func (s *Store) Append(ctx context.Context, sample Sample) error {
	raw, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	if err := s.rdb.RPush(ctx, s.key, string(raw)).Err(); err != nil {
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

// All returns every stored sample in insertion order. Malformed entries
// are skipped.
func (s *Store) All(ctx context.Context) ([]Sample, error) {
	raws, err := s.rdb.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	samples := make([]Sample, 0, len(raws))
	for _, raw := range raws {
		var sm Sample
		if err := json.Unmarshal([]byte(raw), &sm); err != nil {
			continue
		}
		samples = append(samples, sm)
	}
	return samples, nil
}

func (s *Store) Len(ctx context.Context) (int64, error) {
	n, err := s.rdb.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
