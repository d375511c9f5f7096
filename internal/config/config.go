// Package config loads the operator configuration: config.toml when
// present, overridden by environment variables and command-line flags.
// Loaded once at startup; immutable afterwards.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Wallet WalletConfig `mapstructure:"wallet"`
	Chain  ChainConfig  `mapstructure:"chain"`
	Poll   PollConfig   `mapstructure:"poll"`
	Server ServerConfig `mapstructure:"server"`
	Notify NotifyConfig `mapstructure:"notify"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

type WalletConfig struct {
	Coldkey string `mapstructure:"coldkey"`
	Hotkey  string `mapstructure:"hotkey"`
}

type ChainConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Netuid   uint16 `mapstructure:"netuid"`
	MaxCost  uint64 `mapstructure:"max_cost"` // RAO
}

type PollConfig struct {
	IntervalSec       int64 `mapstructure:"interval_sec"`
	BackoffBaseSec    int64 `mapstructure:"backoff_base_sec"`
	BackoffMaxSec     int64 `mapstructure:"backoff_max_sec"`
	OverallTimeoutSec int64 `mapstructure:"overall_timeout_sec"` // 0 = unbounded
}

type ServerConfig struct {
	Port  int    `mapstructure:"port"` // 0 disables the status server
	Token string `mapstructure:"token"`
}

type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

func (p PollConfig) Interval() time.Duration       { return time.Duration(p.IntervalSec) * time.Second }
func (p PollConfig) BackoffBase() time.Duration    { return time.Duration(p.BackoffBaseSec) * time.Second }
func (p PollConfig) BackoffMax() time.Duration     { return time.Duration(p.BackoffMaxSec) * time.Second }
func (p PollConfig) OverallTimeout() time.Duration { return time.Duration(p.OverallTimeoutSec) * time.Second }

// Load reads config.toml (working directory or /etc/regsniper), applies
// environment overrides, then flag overrides. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("chain.endpoint", "ws://127.0.0.1:9944")
	v.SetDefault("poll.interval_sec", 12)
	v.SetDefault("poll.backoff_base_sec", 1)
	v.SetDefault("poll.backoff_max_sec", 60)
	v.SetDefault("poll.overall_timeout_sec", 0)
	v.SetDefault("server.port", 0)
	v.SetDefault("redis.addr", "127.0.0.1:6379")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/regsniper")
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit env bindings
	envBindings := map[string]string{
		"wallet.coldkey":           "REGSNIPER_COLDKEY",
		"wallet.hotkey":            "REGSNIPER_HOTKEY",
		"chain.endpoint":           "REGSNIPER_CHAIN_ENDPOINT",
		"chain.netuid":             "REGSNIPER_NETUID",
		"chain.max_cost":           "REGSNIPER_MAX_COST",
		"poll.interval_sec":        "REGSNIPER_POLL_INTERVAL_SEC",
		"poll.overall_timeout_sec": "REGSNIPER_OVERALL_TIMEOUT_SEC",
		"server.port":              "REGSNIPER_STATUS_PORT",
		"server.token":             "REGSNIPER_STATUS_TOKEN",
		"notify.webhook_url":       "REGSNIPER_WEBHOOK_URL",
		"redis.addr":               "REGSNIPER_REDIS_ADDR",
		"redis.password":           "REGSNIPER_REDIS_PASSWORD",
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	// Flag overrides; commands define only the flags they use.
	if flags != nil {
		flagBindings := map[string]string{
			"wallet.coldkey": "coldkey",
			"wallet.hotkey":  "hotkey",
			"chain.netuid":   "netuid",
			"chain.max_cost": "max-cost",
			"chain.endpoint": "chain-endpoint",
		}
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// ValidateRegistration checks the fields the registration engine needs.
func (c *Config) ValidateRegistration() error {
	if err := c.ValidateColdkey(); err != nil {
		return err
	}
	if c.Wallet.Hotkey == "" {
		return fmt.Errorf("required config missing: hotkey")
	}
	if c.Chain.MaxCost == 0 {
		return fmt.Errorf("required config missing: max_cost")
	}
	return nil
}

// ValidateColdkey is the subset needed to sign anything at all.
func (c *Config) ValidateColdkey() error {
	if c.Wallet.Coldkey == "" {
		return fmt.Errorf("required config missing: coldkey")
	}
	if c.Chain.Endpoint == "" {
		return fmt.Errorf("required config missing: chain endpoint")
	}
	return nil
}
