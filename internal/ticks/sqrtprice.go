package ticks

import (
	"math/big"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
)

// Tick bounds from the protocol's TickMath library.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	// MinSqrtRatio is the sqrt price at MinTick.
	MinSqrtRatio = big.NewInt(4295128739)

	// MaxSqrtRatio is the sqrt price at MaxTick.
	MaxSqrtRatio = mustBigInt("1461446703485210103287273052203988822378723970342")

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	// sqrt(1.0001^(2^i)) * 2^128 for i = 0..19, taken from TickMath.
	mulConstants = []*big.Int{
		mustBigIntHex("fff97272373d413259a46990580e213a"),
		mustBigIntHex("fff2e50f5f656932ef12357cf3c7fdcc"),
		mustBigIntHex("ffe5caca7e10e4e61c3624eaa0941cd0"),
		mustBigIntHex("ffcb9843d60f6159c9db58835c926644"),
		mustBigIntHex("ff973b41fa98c081472e6896dfb254c0"),
		mustBigIntHex("ff2ea16466c96a3843ec78b326b52861"),
		mustBigIntHex("fe5dee046a99a2a811c461f1969c3053"),
		mustBigIntHex("fcbe86c7900a88aedcffc83b479aa3a4"),
		mustBigIntHex("f987a7253ac413176f2b074cf7815e54"),
		mustBigIntHex("f3392b0822b70005940c7a398e4b70f3"),
		mustBigIntHex("e7159475a2c29b7443b29c7fa6e889d9"),
		mustBigIntHex("d097f3bdfd2022b8845ad8f792aa5825"),
		mustBigIntHex("a9f746462d870fdf8a65dc1f90e061e5"),
		mustBigIntHex("70d869a156d2a1b890bb3df62baf32f7"),
		mustBigIntHex("31be135f97d08fd981231505542fcfa6"),
		mustBigIntHex("9aa508b5b7a84e1c677de54f3e99bc9"),
		mustBigIntHex("5d6af8dedb81196699c329225ee604"),
		mustBigIntHex("2216e584f5fa1ea926041bedfe98"),
		mustBigIntHex("48a170391f7dc42444e8fa2"),
	}

	ratioOdd  = mustBigIntHex("fffcb933bd6fad37aa2d162d1a594001")
	ratioEven = mustBigIntHex("100000000000000000000000000000000")
)

func mustBigInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("ticks: bad big int literal " + s)
	}
	return n
}

func mustBigIntHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("ticks: bad hex literal " + s)
	}
	return n
}

func mulShift(ratio, mul *big.Int) *big.Int {
	product := new(big.Int).Mul(ratio, mul)
	return product.Rsh(product, 128)
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) * 2^96 as an exact Q64.96
// value, matching the on-chain TickMath computation bit for bit.
func SqrtRatioAtTick(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, model.Errorf(model.ErrOutOfRange, "ticks.SqrtRatioAtTick",
			"tick %d outside [%d, %d]", tick, MinTick, MaxTick)
	}

	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	var ratio *big.Int
	if absTick&1 != 0 {
		ratio = new(big.Int).Set(ratioOdd)
	} else {
		ratio = new(big.Int).Set(ratioEven)
	}
	for i, mul := range mulConstants {
		if absTick&(1<<(uint(i)+1)) != 0 {
			ratio = mulShift(ratio, mul)
		}
	}

	if tick > 0 {
		ratio = new(big.Int).Div(maxUint256, ratio)
	}

	// Shift from Q128.128 to Q64.96, rounding up.
	remainder := new(big.Int).And(ratio, big.NewInt((1<<32)-1))
	ratio.Rsh(ratio, 32)
	if remainder.Sign() != 0 {
		ratio.Add(ratio, big.NewInt(1))
	}
	return ratio, nil
}

// TickAtSqrtRatio returns the largest tick whose sqrt ratio is less than
// or equal to sqrtRatioX96. Binary search over the exact curve.
func TickAtSqrtRatio(sqrtRatioX96 *big.Int) (int32, error) {
	if sqrtRatioX96 == nil || sqrtRatioX96.Cmp(MinSqrtRatio) < 0 || sqrtRatioX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, model.Errorf(model.ErrOutOfRange, "ticks.TickAtSqrtRatio",
			"sqrt ratio %v outside valid bounds", sqrtRatioX96)
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := int32((int64(lo) + int64(hi) + 1) / 2)
		ratio, err := SqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Cmp(sqrtRatioX96) > 0 {
			hi = mid - 1
		} else {
			lo = mid
		}
	}
	return lo, nil
}
