// =================================
// File: internal/engine/liquidity.go
// =================================
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solchat-labs/amm-engine/internal/amm/program"
	"github.com/solchat-labs/amm-engine/internal/amm/ratio"
	"github.com/solchat-labs/amm-engine/internal/amm/state"
	"github.com/solchat-labs/amm-engine/internal/token"
	"github.com/solchat-labs/amm-engine/internal/txpipe"
)

// DepositRequest is one "add liquidity" or "create pool" intent: two symbols
// with their user-facing amounts, in the caller's order.
type DepositRequest struct {
	SymbolA string
	SymbolB string
	AmountA decimal.Decimal
	AmountB decimal.Decimal
}

// poolAccounts builds the canonical account set from the derived addresses
// and the authoritative on-chain record.
func poolAccounts(pair *resolvedPair, record *state.PoolRecord) program.PoolAccounts {
	return program.PoolAccounts{
		Pool:      pair.addrs.Pool,
		Authority: pair.addrs.Authority,
		MintA:     record.MintA,
		MintB:     record.MintB,
		VaultA:    record.VaultA,
		VaultB:    record.VaultB,
	}
}

// derivedPoolAccounts builds the canonical account set purely from
// derivation, for the pool-creation path where no record exists yet.
func derivedPoolAccounts(pair *resolvedPair) program.PoolAccounts {
	return program.PoolAccounts{
		Pool:      pair.addrs.Pool,
		Authority: pair.addrs.Authority,
		MintA:     pair.addrs.Order.MintA,
		MintB:     pair.addrs.Order.MintB,
		VaultA:    pair.addrs.VaultA,
		VaultB:    pair.addrs.VaultB,
	}
}

// validateDepositRequest covers the local checks shared by AddLiquidity and
// CreatePool.
func validateDepositRequest(req DepositRequest) *Result {
	if !req.AmountA.IsPositive() || !req.AmountB.IsPositive() {
		return validationFailure("Both deposit amounts must be positive.")
	}
	if req.SymbolA == req.SymbolB {
		return validationFailure("A pool needs two different tokens.")
	}
	return nil
}

// ratioFailure renders a refused deposit with its corrected amounts.
func ratioFailure(verdict ratio.Verdict) *Result {
	r := failure(txpipe.KindDisproportionate, fmt.Sprintf(
		"%s Suggested amounts: %s / %s.", verdict.Message, verdict.SuggestedA, verdict.SuggestedB))
	r.SuggestedA = verdict.SuggestedA
	r.SuggestedB = verdict.SuggestedB
	return r
}

// AddLiquidity deposits both assets into an existing pool at its live
// reserve ratio.
func (e *Engine) AddLiquidity(ctx context.Context, req DepositRequest) *Result {
	if fail := validateDepositRequest(req); fail != nil {
		return fail
	}
	pair, fail := e.resolvePair(req.SymbolA, req.SymbolB)
	if fail != nil {
		return fail
	}

	record, err := e.reader.ReadPool(ctx, pair.addrs.Pool)
	if err != nil {
		if errors.Is(err, state.ErrPoolNotFound) {
			return poolNotFoundResult(pair.first.Symbol, pair.second.Symbol)
		}
		return readFailureResult(err)
	}

	reserveA, reserveB, err := e.readReserves(ctx, record)
	if err != nil {
		return readFailureResult(err)
	}

	// Reserves come back in the pool's order; present them to the validator
	// in the caller's order.
	reserveFirst, reserveSecond := reserveA, reserveB
	if record.Reversed(pair.first.Mint) {
		reserveFirst, reserveSecond = reserveB, reserveA
	}

	verdict := ratio.Validate(ratio.Deposit{
		SymbolA: pair.first.Symbol, SymbolB: pair.second.Symbol,
		AmountA: req.AmountA, AmountB: req.AmountB,
		ANative: pair.first.IsNative(), BNative: pair.second.IsNative(),
		PoolExists: true,
		ReserveA:   token.FromRaw(reserveFirst, pair.first.Decimals),
		ReserveB:   token.FromRaw(reserveSecond, pair.second.Decimals),
	})
	if !verdict.OK {
		return ratioFailure(verdict)
	}

	instructions, fail := e.buildDepositInstructions(pair, req, poolAccounts(pair, record), nil)
	if fail != nil {
		return fail
	}
	return e.submit(ctx, instructions, fmt.Sprintf(
		"Added %s %s and %s %s to the pool.",
		req.AmountA, pair.first.Symbol, req.AmountB, pair.second.Symbol))
}

// CreatePool initializes the pool for a pair and seeds it with the initial
// deposit, all in one transaction.
func (e *Engine) CreatePool(ctx context.Context, req DepositRequest) *Result {
	if fail := validateDepositRequest(req); fail != nil {
		return fail
	}
	pair, fail := e.resolvePair(req.SymbolA, req.SymbolB)
	if fail != nil {
		return fail
	}

	_, err := e.reader.ReadPool(ctx, pair.addrs.Pool)
	switch {
	case err == nil:
		return validationFailure(fmt.Sprintf(
			"A %s/%s pool already exists. Use add liquidity instead.",
			pair.first.Symbol, pair.second.Symbol))
	case errors.Is(err, state.ErrPoolNotFound):
		// Expected: this is the creation path.
	default:
		return readFailureResult(err)
	}

	verdict := ratio.Validate(ratio.Deposit{
		SymbolA: pair.first.Symbol, SymbolB: pair.second.Symbol,
		AmountA: req.AmountA, AmountB: req.AmountB,
		ANative: pair.first.IsNative(), BNative: pair.second.IsNative(),
		ReferencePrice: e.solReference,
	})
	if !verdict.OK {
		return ratioFailure(verdict)
	}

	accounts := derivedPoolAccounts(pair)
	initIx := program.InitializePool(e.programID, e.wallet.Payer(), accounts, pair.addrs.Bump)

	instructions, fail := e.buildDepositInstructions(pair, req, accounts, []solana.Instruction{initIx})
	if fail != nil {
		return fail
	}

	e.logger.Info("Creating pool",
		zap.String("pool", pair.addrs.Pool.String()),
		zap.String("mint_a", accounts.MintA.String()),
		zap.String("mint_b", accounts.MintB.String()))

	return e.submit(ctx, instructions, fmt.Sprintf(
		"Created the %s/%s pool with %s %s and %s %s.",
		pair.first.Symbol, pair.second.Symbol,
		req.AmountA, pair.first.Symbol, req.AmountB, pair.second.Symbol))
}

// buildDepositInstructions assembles ATA creation, the wSOL prefix for a
// native side, optional leading instructions (pool initialization), and the
// deposit itself with amounts mapped into the pool's canonical order.
func (e *Engine) buildDepositInstructions(pair *resolvedPair, req DepositRequest, accounts program.PoolAccounts, leading []solana.Instruction) ([]solana.Instruction, *Result) {
	rawFirst, err := token.ToRaw(req.AmountA, pair.first.Decimals)
	if err != nil || rawFirst == 0 {
		return nil, validationFailure(fmt.Sprintf("Invalid %s amount %s.", pair.first.Symbol, req.AmountA))
	}
	rawSecond, err := token.ToRaw(req.AmountB, pair.second.Decimals)
	if err != nil || rawSecond == 0 {
		return nil, validationFailure(fmt.Sprintf("Invalid %s amount %s.", pair.second.Symbol, req.AmountB))
	}

	var instructions []solana.Instruction
	instructions = append(instructions, leading...)

	for _, meta := range []token.Metadata{pair.first, pair.second} {
		createIx, err := e.wallet.CreateATAIdempotentInstruction(meta.Mint)
		if err != nil {
			return nil, validationFailure(fmt.Sprintf("Could not derive a token account: %v.", err))
		}
		instructions = append(instructions, createIx)
	}

	for i, meta := range []token.Metadata{pair.first, pair.second} {
		raw := rawFirst
		if i == 1 {
			raw = rawSecond
		}
		prefix, err := e.wrapPrefix(meta, raw)
		if err != nil {
			return nil, validationFailure(fmt.Sprintf("Could not prepare wrapped SOL: %v.", err))
		}
		instructions = append(instructions, prefix...)
	}

	userFirst, err := e.wallet.ATA(pair.first.Mint)
	if err != nil {
		return nil, validationFailure(fmt.Sprintf("Could not derive a token account: %v.", err))
	}
	userSecond, err := e.wallet.ATA(pair.second.Mint)
	if err != nil {
		return nil, validationFailure(fmt.Sprintf("Could not derive a token account: %v.", err))
	}

	// Everything below this point is in the pool's canonical order.
	userA, userB := userFirst, userSecond
	amountA, amountB := rawFirst, rawSecond
	if !pair.first.Mint.Equals(accounts.MintA) {
		userA, userB = userSecond, userFirst
		amountA, amountB = rawSecond, rawFirst
	}

	depositIx := program.AddLiquidity(
		e.programID, e.wallet.Payer(), accounts, userA, userB, amountA, amountB)
	return append(instructions, depositIx), nil
}
