package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	PrivateKey      string
	PoolAddress     common.Address
	ManagerAddress  common.Address
	Owner           common.Address
	Base            model.Token
	Quote           model.Token
	Fee             model.FeeTier
	Slippage        decimal.Decimal
	DeadlineMinutes int
	JournalPath     string
	PgDSN           string
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POSITIONER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("fee-tier", uint32(3000))
	v.SetDefault("slippage", "0.005")
	v.SetDefault("deadline-minutes", 10)
	v.SetDefault("journal", "./data/journal.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		PrivateKey:      v.GetString("private-key"),
		DeadlineMinutes: v.GetInt("deadline-minutes"),
		JournalPath:     v.GetString("journal"),
		PgDSN:           v.GetString("pg-dsn"),
		LogLevel:        v.GetString("log-level"),
	}

	var err error
	if cfg.PoolAddress, err = parseAddress(v.GetString("pool"), "pool"); err != nil {
		return Config{}, err
	}
	if cfg.ManagerAddress, err = parseAddress(v.GetString("manager"), "manager"); err != nil {
		return Config{}, err
	}
	if cfg.Owner, err = parseAddress(v.GetString("owner"), "owner"); err != nil {
		return Config{}, err
	}

	if cfg.Base, err = parseToken(v, "base"); err != nil {
		return Config{}, err
	}
	if cfg.Quote, err = parseToken(v, "quote"); err != nil {
		return Config{}, err
	}

	feeBps := v.GetUint32("fee-tier")
	fee, ok := model.ParseFeeTier(feeBps)
	if !ok {
		return Config{}, fmt.Errorf("unrecognized fee tier %d (want 500, 3000, or 10000)", feeBps)
	}
	cfg.Fee = fee

	slippage, err := decimal.NewFromString(v.GetString("slippage"))
	if err != nil {
		return Config{}, fmt.Errorf("parse slippage: %w", err)
	}
	if slippage.Sign() < 0 || slippage.Cmp(decimal.NewFromInt(1)) >= 0 {
		return Config{}, fmt.Errorf("slippage must be in [0, 1), got %s", slippage)
	}
	cfg.Slippage = slippage

	return cfg, nil
}

// Deadline returns the configured write-call expiry window.
func (c Config) Deadline() time.Duration {
	return time.Duration(c.DeadlineMinutes) * time.Minute
}

func parseAddress(raw, name string) (common.Address, error) {
	if raw == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("malformed %s address %q", name, raw)
	}
	return common.HexToAddress(raw), nil
}

func parseToken(v *viper.Viper, prefix string) (model.Token, error) {
	raw := v.GetString(prefix + "-token")
	if raw == "" {
		return model.Token{}, nil
	}
	if !common.IsHexAddress(raw) {
		return model.Token{}, fmt.Errorf("malformed %s token address %q", prefix, raw)
	}
	decimals := v.GetUint32(prefix + "-decimals")
	if decimals > 77 {
		return model.Token{}, fmt.Errorf("%s token decimals %d out of range", prefix, decimals)
	}
	return model.Token{
		Address:  common.HexToAddress(raw),
		Decimals: uint8(decimals),
		Symbol:   v.GetString(prefix + "-symbol"),
	}, nil
}
