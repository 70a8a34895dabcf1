package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Fee != model.FeeMedium {
		t.Fatalf("default fee tier: got %d, want %d", cfg.Fee, model.FeeMedium)
	}
	if cfg.Slippage.String() != "0.005" {
		t.Fatalf("default slippage: got %s, want 0.005", cfg.Slippage)
	}
	if cfg.DeadlineMinutes != 10 {
		t.Fatalf("default deadline: got %d, want 10", cfg.DeadlineMinutes)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("default log level: got %s, want info", cfg.LogLevel)
	}
	if cfg.Deadline() != 10*time.Minute {
		t.Fatalf("deadline duration: got %s", cfg.Deadline())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POSITIONER_POOL", "0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8")
	t.Setenv("POSITIONER_BASE_TOKEN", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	t.Setenv("POSITIONER_BASE_DECIMALS", "18")
	t.Setenv("POSITIONER_BASE_SYMBOL", "WETH")
	t.Setenv("POSITIONER_SLIPPAGE", "0.01")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PoolAddress != common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8") {
		t.Fatalf("pool address: got %s", cfg.PoolAddress.Hex())
	}
	if cfg.Base.Symbol != "WETH" || cfg.Base.Decimals != 18 {
		t.Fatalf("base token: %+v", cfg.Base)
	}
	if cfg.Slippage.String() != "0.01" {
		t.Fatalf("slippage: got %s, want 0.01", cfg.Slippage)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := "pool: \"0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640\"\nfee-tier: 500\nslippage: \"0.002\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Fee != model.FeeLow {
		t.Fatalf("fee tier: got %d, want %d", cfg.Fee, model.FeeLow)
	}
	if cfg.Slippage.String() != "0.002" {
		t.Fatalf("slippage: got %s, want 0.002", cfg.Slippage)
	}
	if cfg.PoolAddress == (common.Address{}) {
		t.Fatalf("pool address not loaded")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("POSITIONER_POOL", "not-an-address")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error for malformed pool address")
	}
	t.Setenv("POSITIONER_POOL", "")

	t.Setenv("POSITIONER_FEE_TIER", "1234")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error for unrecognized fee tier")
	}
	t.Setenv("POSITIONER_FEE_TIER", "")

	t.Setenv("POSITIONER_SLIPPAGE", "1.5")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error for out-of-range slippage")
	}
}
