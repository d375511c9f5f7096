package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ChainSource is the chain surface the collector needs.
type ChainSource interface {
	StreamFinalized(ctx context.Context, fn func(number uint64, hash string) error) error
	PendingExtrinsicCount(ctx context.Context) (int, error)
	BlockWeight(ctx context.Context, blockHash string) (uint64, error)
}

var errCollected = errors.New("collection complete")

// Collector records one Sample per finalized block.
type Collector struct {
	src   ChainSource
	store *Store
	log   *zap.Logger
}

func NewCollector(src ChainSource, store *Store, log *zap.Logger) *Collector {
	return &Collector{src: src, store: store, log: log}
}

// Run collects n samples. The first finalized head only establishes the
// timing baseline and is not recorded; blocks whose measurements fail
// are skipped, not counted.
func (c *Collector) Run(ctx context.Context, n int) error {
	var (
		prev  time.Time
		first = true
		count int
	)
	err := c.src.StreamFinalized(ctx, func(number uint64, hash string) error {
		now := time.Now()
		if first {
			first = false
			prev = now
			return nil
		}
		blockTime := now.Sub(prev)
		prev = now

		pending, err := c.src.PendingExtrinsicCount(ctx)
		if err != nil {
			c.log.Warn("pending extrinsics read failed, skipping block",
				zap.Uint64("block", number), zap.Error(err))
			return nil
		}
		weight, err := c.src.BlockWeight(ctx, hash)
		if err != nil {
			c.log.Warn("block weight read failed, skipping block",
				zap.Uint64("block", number), zap.Error(err))
			return nil
		}

		sample := Sample{
			Block:      number,
			BlockTime:  blockTime.Seconds(),
			Pending:    pending,
			Weight:     weight,
			ObservedAt: now.Unix(),
		}
		if err := c.store.Append(ctx, sample); err != nil {
			return fmt.Errorf("store sample for block %d: %w", number, err)
		}
		count++
		c.log.Info("collected block sample",
			zap.Uint64("block", number),
			zap.Int("collected", count),
			zap.Int("target", n))
		if count >= n {
			return errCollected
		}
		return nil
	})
	if errors.Is(err, errCollected) {
		return nil
	}
	return err
}
