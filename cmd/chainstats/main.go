// chainstats samples finalized blocks and reports block timing, pool
// depth, and how each correlates with block time, then suggests a
// submission delay.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/subtensor-tools/regsniper/internal/chain"
	"github.com/subtensor-tools/regsniper/internal/config"
	"github.com/subtensor-tools/regsniper/internal/stats"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("chainstats", pflag.ExitOnError)
	blocks := flags.Int("blocks", 100, "number of finalized blocks to sample")
	network := flags.String("network", "finney", "network label for stored samples")
	flags.String("chain-endpoint", "", "substrate websocket endpoint")
	flags.Parse(os.Args[1:]) //nolint:errcheck

	log, _ := zap.NewProduction()
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load(flags)
	if err != nil {
		log.Error("config load failed", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis ping failed", zap.Error(err))
		return 1
	}

	client, err := chain.New(chain.Config{Endpoint: cfg.Chain.Endpoint}, log)
	if err != nil {
		log.Error("chain connect failed", zap.Error(err))
		return 1
	}

	store := stats.NewStore(rdb, *network)
	collector := stats.NewCollector(client, store, log)

	log.Info("collecting block samples",
		zap.Int("blocks", *blocks),
		zap.String("network", *network))
	if err := collector.Run(ctx, *blocks); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("cancelled before collection completed")
			return 3
		}
		log.Error("collection failed", zap.Error(err))
		return 1
	}

	samples, err := store.All(ctx)
	if err != nil {
		log.Error("reading samples failed", zap.Error(err))
		return 1
	}

	report := stats.Analyze(samples)
	blockTime := time.Duration(report.AvgBlockTime * float64(time.Second))
	delay := stats.OptimalDelay(blockTime, report.AvgPending)

	log.Info("chain statistics",
		zap.Int("samples", report.Samples),
		zap.Float64("avg_block_time_sec", report.AvgBlockTime),
		zap.Float64("avg_pending", report.AvgPending),
		zap.Float64("pending_correlation", report.PendingCorrelation),
		zap.Float64("weight_correlation", report.WeightCorrelation),
		zap.Duration("suggested_submit_delay", delay))
	return 0
}
