// netreg registers a new subnet network, retrying once per estimated
// block until the chain accepts the extrinsic. Network registration slots
// are contested, so pacing by block time keeps every attempt inside a
// fresh block without spamming the pool.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/subtensor-tools/regsniper/internal/chain"
	"github.com/subtensor-tools/regsniper/internal/config"
	"github.com/subtensor-tools/regsniper/internal/keys"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("netreg", pflag.ExitOnError)
	flags.String("coldkey", "", "coldkey secret URI or mnemonic (pays the lock cost)")
	flags.String("chain-endpoint", "", "substrate websocket endpoint")
	flags.Parse(os.Args[1:]) //nolint:errcheck

	log, _ := zap.NewProduction()
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load(flags)
	if err != nil {
		log.Error("config load failed", zap.Error(err))
		return 1
	}
	if err := cfg.ValidateColdkey(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return 1
	}

	coldkey, err := keys.Coldkey(cfg.Wallet.Coldkey)
	if err != nil {
		log.Error("coldkey derivation failed", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := chain.New(chain.Config{
		Endpoint:  cfg.Chain.Endpoint,
		SignerPub: coldkey.PublicKey,
	}, log)
	if err != nil {
		log.Error("chain connect failed", zap.Error(err))
		return 1
	}

	go monitorPending(ctx, client, log)

	blockTime, err := client.EstimateBlockTime(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 3
		}
		log.Error("block time estimation failed", zap.Error(err))
		return 1
	}
	log.Info("estimated block time", zap.Duration("block_time", blockTime))

	limiter := rate.NewLimiter(rate.Every(blockTime), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			log.Info("cancelled before registration completed")
			return 3
		}
		receipt, err := client.SubmitNetworkRegistration(ctx, coldkey)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("cancelled before registration completed")
				return 3
			}
			log.Warn("registration attempt failed, retrying next block", zap.Error(err))
			continue
		}
		log.Info("network registered",
			zap.String("block", receipt.BlockHash),
			zap.String("extrinsic", receipt.ExtrinsicHash))
		return 0
	}
}

// monitorPending logs transaction pool depth so operators can see how
// contested the current slot is.
func monitorPending(ctx context.Context, client *chain.Client, log *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := client.PendingExtrinsicCount(ctx)
			if err != nil {
				log.Warn("pending extrinsics read failed", zap.Error(err))
				continue
			}
			log.Info("transaction pool", zap.Int("pending", n))
		}
	}
}
