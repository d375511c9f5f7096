package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/subtensor-tools/regsniper/internal/chain"
	"github.com/subtensor-tools/regsniper/internal/config"
	"github.com/subtensor-tools/regsniper/internal/engine"
	"github.com/subtensor-tools/regsniper/internal/keys"
	"github.com/subtensor-tools/regsniper/internal/notify"
	"github.com/subtensor-tools/regsniper/internal/status"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("regsniper", pflag.ExitOnError)
	flags.String("coldkey", "", "coldkey secret URI or mnemonic (pays the burn)")
	flags.String("hotkey", "", "hotkey SS58 address or secret URI to register")
	flags.Uint16("netuid", 0, "target subnet")
	flags.Uint64("max-cost", 0, "registration cost ceiling in RAO")
	flags.String("chain-endpoint", "", "substrate websocket endpoint")
	flags.Parse(os.Args[1:]) //nolint:errcheck

	log, _ := zap.NewProduction()
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load(flags)
	if err != nil {
		log.Error("config load failed", zap.Error(err))
		return 1
	}
	if err := cfg.ValidateRegistration(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return 1
	}

	coldkey, err := keys.Coldkey(cfg.Wallet.Coldkey)
	if err != nil {
		log.Error("coldkey derivation failed", zap.Error(err))
		return 1
	}
	hotkey, err := keys.HotkeyPub(cfg.Wallet.Hotkey)
	if err != nil {
		log.Error("hotkey parsing failed", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := chain.New(chain.Config{
		Endpoint:  cfg.Chain.Endpoint,
		Netuid:    cfg.Chain.Netuid,
		SignerPub: coldkey.PublicKey,
	}, log)
	if err != nil {
		log.Error("chain connect failed", zap.Error(err))
		return 1
	}

	params := engine.Params{
		Client: client,
		Signer: chain.NewSigner(client, coldkey),
		Request: engine.Request{
			Coldkey: coldkey.Address,
			Hotkey:  hotkey,
			Netuid:  cfg.Chain.Netuid,
		},
		Ceiling:        cfg.Chain.MaxCost,
		PollInterval:   cfg.Poll.Interval(),
		BackoffBase:    cfg.Poll.BackoffBase(),
		BackoffMax:     cfg.Poll.BackoffMax(),
		OverallTimeout: cfg.Poll.OverallTimeout(),
		Log:            log,
	}
	if hook := notify.New(cfg.Notify.WebhookURL, cfg.Chain.Netuid, log); hook != nil {
		params.Notifier = hook
	}
	eng := engine.New(params)

	status.Serve(ctx, cfg.Server.Port, status.Router(eng.Snapshot, cfg.Server.Token), log)

	log.Info("watching burn cost",
		zap.Uint16("netuid", cfg.Chain.Netuid),
		zap.Uint64("ceiling_rao", cfg.Chain.MaxCost),
		zap.String("ceiling_tao", chain.FormatTAO(cfg.Chain.MaxCost)),
		zap.String("hotkey", keys.Address(hotkey)),
		zap.String("endpoint", cfg.Chain.Endpoint))

	outcome := eng.Run(ctx)

	switch outcome.Kind {
	case engine.Registered:
		fields := []zap.Field{zap.String("block", outcome.Receipt.BlockHash)}
		// Signal handling is done; use a fresh context for the lookup.
		if uid, found, err := client.NeuronUID(context.Background(), hotkey); err == nil && found {
			fields = append(fields, zap.Uint16("uid", uid))
		}
		log.Info("hotkey registered", fields...)
	case engine.GaveUp:
		log.Warn("gave up", zap.String("reason", outcome.Reason))
	case engine.Cancelled:
		log.Info("cancelled", zap.String("reason", outcome.Reason))
	}
	return exitCode(outcome.Kind)
}

func exitCode(kind engine.OutcomeKind) int {
	switch kind {
	case engine.Registered:
		return 0
	case engine.GaveUp:
		return 2
	case engine.Cancelled:
		return 3
	default:
		panic(fmt.Sprintf("unhandled outcome %v", kind))
	}
}
