// =================================
// File: internal/amm/curve/curve.go
// =================================

// Package curve implements the constant-product pricing math in fixed-point
// integer arithmetic. No floating point is used anywhere on the settlement
// path: the on-chain program computes the authoritative result with integers,
// and a float here could disagree with it.
package curve

import "math/big"

const (
	// Fee is 0.3% of the input, deducted before the curve is applied.
	feeNumerator   = 997
	feeDenominator = 1000

	// Slippage tolerance is expressed in thousandths of a percent, so a
	// tolerance of 1 means 0.001%.
	SlippageDenominator = 100000
)

// QuoteSwap computes the constant-product output for amountIn against the
// given reserves. Zero input or an empty reserve yields zero; there is no
// error path and no division by zero.
func QuoteSwap(amountIn, reserveIn, reserveOut uint64) uint64 {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 {
		return 0
	}

	// amountInAfterFee = amountIn * 997 / 1000, truncating
	afterFee := new(big.Int).SetUint64(amountIn)
	afterFee.Mul(afterFee, big.NewInt(feeNumerator))
	afterFee.Div(afterFee, big.NewInt(feeDenominator))

	// amountOut = reserveOut - (reserveIn * reserveOut) / (reserveIn + afterFee)
	rIn := new(big.Int).SetUint64(reserveIn)
	rOut := new(big.Int).SetUint64(reserveOut)

	product := new(big.Int).Mul(rIn, rOut)
	divisor := new(big.Int).Add(rIn, afterFee)
	kept := product.Div(product, divisor)

	// Truncation may round the retained reserve down to zero on an enormous
	// input; the pool can never be drained below one unit.
	if kept.Sign() == 0 {
		kept.SetInt64(1)
	}

	out := new(big.Int).Sub(rOut, kept)
	if out.Sign() < 0 {
		return 0
	}
	return out.Uint64()
}

// MinAmountOut applies a slippage tolerance (in thousandths of a percent) to
// an expected output, producing the lowest acceptable amount.
func MinAmountOut(amountOut, toleranceMilliBps uint64) uint64 {
	if toleranceMilliBps >= SlippageDenominator {
		return 0
	}
	out := new(big.Int).SetUint64(amountOut)
	out.Mul(out, new(big.Int).SetUint64(SlippageDenominator-toleranceMilliBps))
	out.Div(out, big.NewInt(SlippageDenominator))
	return out.Uint64()
}

// PriceImpactBps reports how much of the destination reserve the trade
// consumes, in basis points. Diagnostic only; the safety bound is the
// minimum-output floor, not this number.
func PriceImpactBps(amountOut, reserveOut uint64) uint64 {
	if reserveOut == 0 {
		return 0
	}
	out := new(big.Int).SetUint64(amountOut)
	out.Mul(out, big.NewInt(10000))
	out.Div(out, new(big.Int).SetUint64(reserveOut))
	return out.Uint64()
}

// Quote is one swap computation: reserves read at quote time, the expected
// output, and the protection floor. Quotes are never cached — reserves can
// change between quote and execution, and the floor is what protects the
// trade when they do.
type Quote struct {
	AmountIn       uint64
	ReserveIn      uint64
	ReserveOut     uint64
	AmountOut      uint64
	MinAmountOut   uint64
	PriceImpactBps uint64
}

// NewQuote computes a full quote for the given input and reserves.
func NewQuote(amountIn, reserveIn, reserveOut, toleranceMilliBps uint64) Quote {
	out := QuoteSwap(amountIn, reserveIn, reserveOut)
	return Quote{
		AmountIn:       amountIn,
		ReserveIn:      reserveIn,
		ReserveOut:     reserveOut,
		AmountOut:      out,
		MinAmountOut:   MinAmountOut(out, toleranceMilliBps),
		PriceImpactBps: PriceImpactBps(out, reserveOut),
	}
}
