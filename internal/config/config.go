// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// Config holds the runtime settings of the settlement engine.
type Config struct {
	Network           string  `mapstructure:"network"`
	RPCURL            string  `mapstructure:"rpc_url"`
	WalletKey         string  `mapstructure:"wallet_key"`
	AMMProgramID      string  `mapstructure:"amm_program_id"`
	SlippageMilliBps  uint64  `mapstructure:"slippage_millibps"`
	SOLReferencePrice float64 `mapstructure:"sol_reference_price"`
	MaxAttempts       int     `mapstructure:"max_attempts"`
	DebugLogging      bool    `mapstructure:"debug_logging"`
	LogFile           string  `mapstructure:"log_file"`
}

const (
	NetworkMainnet = "mainnet"
	NetworkDevnet  = "devnet"

	// 0.5% expressed in thousandths of a percent.
	DefaultSlippageMilliBps = 500
	DefaultSOLReference     = 200.0
	DefaultLogFile          = "amm-engine.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"network":             NetworkDevnet,
		"slippage_millibps":   DefaultSlippageMilliBps,
		"sol_reference_price": DefaultSOLReference,
		"log_file":            DefaultLogFile,
		"max_attempts":        0, // 0 = per-network default
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.Network != NetworkMainnet && cfg.Network != NetworkDevnet {
		return fmt.Errorf("unknown network %q (want %q or %q)", cfg.Network, NetworkMainnet, NetworkDevnet)
	}
	if cfg.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	if err := validateURL(cfg.RPCURL); err != nil {
		return err
	}
	if cfg.WalletKey == "" {
		return errors.New("missing wallet_key in configuration")
	}
	if cfg.AMMProgramID == "" {
		return errors.New("missing amm_program_id in configuration")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.AMMProgramID); err != nil {
		return fmt.Errorf("invalid amm_program_id: %w", err)
	}
	if cfg.SlippageMilliBps >= 100000 {
		return errors.New("slippage_millibps must be below 100000 (100%)")
	}
	if cfg.SOLReferencePrice <= 0 {
		return errors.New("sol_reference_price must be positive")
	}
	if cfg.MaxAttempts < 0 {
		return errors.New("invalid max_attempts")
	}
	return nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if !strings.HasPrefix(u.Scheme, "http") {
		return errors.New("rpc_url must use http or https")
	}
	return nil
}

// ProgramID returns the parsed AMM program id. Config must be validated first.
func (c *Config) ProgramID() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.AMMProgramID)
}
