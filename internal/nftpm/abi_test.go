package nftpm

import "testing"

func TestPoolABI(t *testing.T) {
	parsed, err := PoolABI()
	if err != nil {
		t.Fatalf("parse pool ABI: %v", err)
	}
	for _, name := range []string{"slot0", "liquidity", "tickSpacing", "token0", "token1", "fee"} {
		if _, ok := parsed.Methods[name]; !ok {
			t.Fatalf("pool ABI missing method %s", name)
		}
	}
}

func TestManagerABI(t *testing.T) {
	parsed, err := ManagerABI()
	if err != nil {
		t.Fatalf("parse manager ABI: %v", err)
	}
	for _, name := range []string{"positions", "mint", "decreaseLiquidity", "collect", "ownerOf", "getApproved", "isApprovedForAll", "approve"} {
		if _, ok := parsed.Methods[name]; !ok {
			t.Fatalf("manager ABI missing method %s", name)
		}
	}
	if _, ok := parsed.Events["IncreaseLiquidity"]; !ok {
		t.Fatalf("manager ABI missing IncreaseLiquidity event")
	}
	if got := len(parsed.Methods["positions"].Outputs); got != 12 {
		t.Fatalf("positions should return 12 values, got %d", got)
	}
}

func TestERC20ABI(t *testing.T) {
	parsed, err := ERC20ABI()
	if err != nil {
		t.Fatalf("parse erc20 ABI: %v", err)
	}
	for _, name := range []string{"approve", "allowance", "balanceOf", "decimals", "symbol"} {
		if _, ok := parsed.Methods[name]; !ok {
			t.Fatalf("erc20 ABI missing method %s", name)
		}
	}
}
