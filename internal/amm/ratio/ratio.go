// =================================
// File: internal/amm/ratio/ratio.go
// =================================

// Package ratio pre-checks a proposed deposit's asset ratio before any
// network round trip. The check is advisory: the on-chain program rejects
// disproportionate deposits authoritatively, but a local refusal with
// corrected amounts is actionable, a wasted transaction is not.
package ratio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerances for the pool-creation paths, as fractions of the target ratio.
var (
	// ±20% around the reference price when one side is the native asset.
	nativeTolerance = decimal.NewFromFloat(0.20)
	// ±10% around 1:1 for arbitrary pairs with no price oracle.
	pairTolerance = decimal.NewFromFloat(0.10)
	// ±10% around the live reserve ratio for existing pools.
	reserveTolerance = decimal.NewFromFloat(0.10)
)

// Deposit describes a proposed two-sided deposit. Amounts are user-facing
// decimals, already converted from raw units by the caller.
type Deposit struct {
	SymbolA, SymbolB string
	AmountA, AmountB decimal.Decimal
	ANative, BNative bool

	PoolExists bool
	// Live reserves in the same decimal terms, meaningful only when
	// PoolExists is true.
	ReserveA, ReserveB decimal.Decimal

	// ReferencePrice is the configured price of one native unit in terms of
	// the other asset (e.g. 200 USDC per SOL).
	ReferencePrice decimal.Decimal
}

// Verdict is the outcome of validation. When OK is false, SuggestedA and
// SuggestedB hold amounts that would satisfy the target ratio exactly;
// substituting them always passes validation.
type Verdict struct {
	OK         bool
	Message    string
	SuggestedA decimal.Decimal
	SuggestedB decimal.Decimal
}

func ok() Verdict {
	return Verdict{OK: true}
}

// Validate checks the deposit against its applicable ratio rule.
func Validate(d Deposit) Verdict {
	if !d.PoolExists {
		if d.ANative != d.BNative {
			return validateAgainstReference(d)
		}
		return validateOneToOne(d)
	}
	return validateAgainstReserves(d)
}

// validateAgainstReference applies the reference-price rule to a new
// native/asset pool.
func validateAgainstReference(d Deposit) Verdict {
	native, other := d.AmountA, d.AmountB
	if d.BNative {
		native, other = d.AmountB, d.AmountA
	}

	target := native.Mul(d.ReferencePrice)
	if within(other, target, nativeTolerance) {
		return ok()
	}

	suggestedOther := target
	suggestedA, suggestedB := native, suggestedOther
	if d.BNative {
		suggestedA, suggestedB = suggestedOther, native
	}
	return Verdict{
		Message: fmt.Sprintf(
			"deposit ratio is off the reference price: %s %s is worth about %s %s, got %s",
			native, nativeSymbol(d), target, otherSymbol(d), other),
		SuggestedA: suggestedA,
		SuggestedB: suggestedB,
	}
}

// validateOneToOne applies the 1:1 policy to a new pool of two non-native
// assets.
func validateOneToOne(d Deposit) Verdict {
	if within(d.AmountB, d.AmountA, pairTolerance) {
		return ok()
	}
	return Verdict{
		Message: fmt.Sprintf(
			"new %s/%s pools start at a 1:1 ratio: got %s vs %s",
			d.SymbolA, d.SymbolB, d.AmountA, d.AmountB),
		SuggestedA: d.AmountA,
		SuggestedB: d.AmountA,
	}
}

// validateAgainstReserves defers to the pool's live reserve ratio. A deposit
// off that ratio mints an implicit arbitrage loss for the depositor, no
// matter what any external price says.
func validateAgainstReserves(d Deposit) Verdict {
	if d.ReserveA.IsZero() || d.ReserveB.IsZero() {
		// One empty side means there is no ratio to match.
		return ok()
	}

	target := d.AmountA.Mul(d.ReserveB).Div(d.ReserveA)
	if within(d.AmountB, target, reserveTolerance) {
		return ok()
	}
	return Verdict{
		Message: fmt.Sprintf(
			"deposit must match the pool's reserve ratio: %s %s needs about %s %s, got %s",
			d.AmountA, d.SymbolA, target, d.SymbolB, d.AmountB),
		SuggestedA: d.AmountA,
		SuggestedB: target,
	}
}

// within reports whether actual is inside ±tolerance of target.
func within(actual, target, tolerance decimal.Decimal) bool {
	if target.IsZero() {
		return actual.IsZero()
	}
	deviation := actual.Sub(target).Abs().Div(target)
	return deviation.LessThanOrEqual(tolerance)
}

func nativeSymbol(d Deposit) string {
	if d.BNative {
		return d.SymbolB
	}
	return d.SymbolA
}

func otherSymbol(d Deposit) string {
	if d.BNative {
		return d.SymbolA
	}
	return d.SymbolB
}
