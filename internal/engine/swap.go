// =================================
// File: internal/engine/swap.go
// =================================
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solchat-labs/amm-engine/internal/amm/curve"
	"github.com/solchat-labs/amm-engine/internal/amm/program"
	"github.com/solchat-labs/amm-engine/internal/amm/state"
	"github.com/solchat-labs/amm-engine/internal/token"
)

// SwapRequest is one "swap X FROM for TO" intent.
type SwapRequest struct {
	FromSymbol string
	ToSymbol   string
	Amount     decimal.Decimal
	// SlippageMilliBps overrides the engine default when non-zero
	// (thousandths of a percent).
	SlippageMilliBps uint64
}

// Swap quotes and executes a swap against the pair's pool. The quote is
// computed fresh from reserves read now; the minimum-output floor signed into
// the transaction is what protects the trade if reserves move afterwards.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) *Result {
	if !req.Amount.IsPositive() {
		return validationFailure("Swap amount must be positive.")
	}
	if req.FromSymbol == req.ToSymbol {
		return validationFailure("Cannot swap a token for itself.")
	}

	pair, fail := e.resolvePair(req.FromSymbol, req.ToSymbol)
	if fail != nil {
		return fail
	}
	from, to := pair.first, pair.second

	amountIn, err := token.ToRaw(req.Amount, from.Decimals)
	if err != nil || amountIn == 0 {
		return validationFailure(fmt.Sprintf("Invalid %s amount %s.", from.Symbol, req.Amount))
	}

	record, err := e.reader.ReadPool(ctx, pair.addrs.Pool)
	if err != nil {
		if errors.Is(err, state.ErrPoolNotFound) {
			return poolNotFoundResult(from.Symbol, to.Symbol)
		}
		return readFailureResult(err)
	}

	// The pool record, not the request order, decides which side is A.
	aToB := from.Mint.Equals(record.MintA)

	reserveA, reserveB, err := e.readReserves(ctx, record)
	if err != nil {
		return readFailureResult(err)
	}
	reserveIn, reserveOut := reserveA, reserveB
	if !aToB {
		reserveIn, reserveOut = reserveB, reserveA
	}

	tolerance := req.SlippageMilliBps
	if tolerance == 0 {
		tolerance = e.slippageMilliBps
	}
	quote := curve.NewQuote(amountIn, reserveIn, reserveOut, tolerance)
	if quote.AmountOut == 0 {
		return validationFailure(fmt.Sprintf(
			"The %s/%s pool has no liquidity for this trade.", from.Symbol, to.Symbol))
	}

	e.logger.Info("Swap quote",
		zap.String("from", from.Symbol),
		zap.String("to", to.Symbol),
		zap.Uint64("amount_in", quote.AmountIn),
		zap.Uint64("amount_out", quote.AmountOut),
		zap.Uint64("min_amount_out", quote.MinAmountOut),
		zap.Uint64("price_impact_bps", quote.PriceImpactBps))

	instructions, err := e.buildSwapInstructions(pair, record, quote, aToB)
	if err != nil {
		return validationFailure(fmt.Sprintf("Could not build the swap: %v.", err))
	}

	outAmount := token.FromRaw(quote.AmountOut, to.Decimals)
	return e.submit(ctx, instructions, fmt.Sprintf(
		"Swapped %s %s for ~%s %s (price impact %d bps).",
		req.Amount, from.Symbol, outAmount, to.Symbol, quote.PriceImpactBps))
}

// buildSwapInstructions assembles the transaction: output ATA creation, the
// wSOL funding prefix when spending native SOL, then the swap itself with
// accounts in the pool's canonical order.
func (e *Engine) buildSwapInstructions(pair *resolvedPair, record *state.PoolRecord, quote curve.Quote, aToB bool) ([]solana.Instruction, error) {
	from, to := pair.first, pair.second
	var instructions []solana.Instruction

	createOutATA, err := e.wallet.CreateATAIdempotentInstruction(to.Mint)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, createOutATA)

	prefix, err := e.wrapPrefix(from, quote.AmountIn)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, prefix...)

	userSource, err := e.wallet.ATA(from.Mint)
	if err != nil {
		return nil, err
	}
	userDestination, err := e.wallet.ATA(to.Mint)
	if err != nil {
		return nil, err
	}

	swapIx := program.Swap(
		e.programID, e.wallet.Payer(),
		poolAccounts(pair, record),
		userSource, userDestination,
		quote.AmountIn, quote.MinAmountOut, aToB,
	)
	return append(instructions, swapIx), nil
}

// PoolStatus is the read-only liquidity view of one pair, in the caller's
// requested order.
type PoolStatus struct {
	SymbolFirst   string
	SymbolSecond  string
	ReserveFirst  decimal.Decimal
	ReserveSecond decimal.Decimal
	// PriceFirstInSecond is how much of the second asset one unit of the
	// first currently buys at the reserve ratio, before fees.
	PriceFirstInSecond decimal.Decimal
}

// Status reads a pair's reserves without mutating anything.
func (e *Engine) Status(ctx context.Context, symbolX, symbolY string) (*PoolStatus, error) {
	pair, fail := e.resolvePair(symbolX, symbolY)
	if fail != nil {
		return nil, errors.New(fail.Message)
	}

	record, err := e.reader.ReadPool(ctx, pair.addrs.Pool)
	if err != nil {
		return nil, err
	}
	reserveA, reserveB, err := e.readReserves(ctx, record)
	if err != nil {
		return nil, err
	}

	firstIsA := pair.first.Mint.Equals(record.MintA)
	reserveFirst, reserveSecond := reserveA, reserveB
	if !firstIsA {
		reserveFirst, reserveSecond = reserveB, reserveA
	}

	status := &PoolStatus{
		SymbolFirst:   pair.first.Symbol,
		SymbolSecond:  pair.second.Symbol,
		ReserveFirst:  token.FromRaw(reserveFirst, pair.first.Decimals),
		ReserveSecond: token.FromRaw(reserveSecond, pair.second.Decimals),
	}
	if !status.ReserveFirst.IsZero() {
		status.PriceFirstInSecond = status.ReserveSecond.Div(status.ReserveFirst)
	}
	return status, nil
}
