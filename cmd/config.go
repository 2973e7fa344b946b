package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	vaultflow "github.com/branched-services/go-vaultflow"
)

const envPrefix = "VAULTFLOW"

const (
	walletKeyed = "keyed"
	walletRPC   = "rpc"
)

type config struct {
	Dev           bool          `mapstructure:"dev"`
	RPCURL        string        `mapstructure:"rpc_url"`
	Wallet        string        `mapstructure:"wallet"`
	PrivateKey    string        `mapstructure:"private_key"`
	TokenAddress  string        `mapstructure:"token_address"`
	VaultAddress  string        `mapstructure:"vault_address"`
	NFTAddress    string        `mapstructure:"nft_address"`
	Confirmations uint64        `mapstructure:"confirmations"`
	Timeout       time.Duration `mapstructure:"timeout"`
	LogLevel      string        `mapstructure:"log_level"`
}

// loadConfig merges defaults, the optional config file, VAULTFLOW_* env vars
// and flags, in increasing priority.
func loadConfig(cmd *cobra.Command) (config, error) {
	v := viper.New()
	v.SetDefault("dev", false)
	v.SetDefault("rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("wallet", walletKeyed)
	v.SetDefault("private_key", "")
	v.SetDefault("token_address", vaultflow.DefaultTokenAddress)
	v.SetDefault("vault_address", vaultflow.DefaultVaultAddress)
	v.SetDefault("nft_address", "")
	v.SetDefault("confirmations", 1)
	v.SetDefault("timeout", 2*time.Minute)
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	for key, flag := range map[string]string{
		"dev":       "dev",
		"rpc_url":   "rpc-url",
		"wallet":    "wallet",
		"log_level": "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return config{}, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Wallet != walletKeyed && cfg.Wallet != walletRPC {
		return config{}, fmt.Errorf("unknown wallet %q, want %q or %q", cfg.Wallet, walletKeyed, walletRPC)
	}
	return cfg, nil
}

func (c config) logLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}
