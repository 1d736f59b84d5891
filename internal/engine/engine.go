// =================================
// File: internal/engine/engine.go
// =================================

// Package engine composes address derivation, pool state reads, curve math,
// ratio validation and the submission pipeline into the three user-facing
// operations: create pool, add liquidity, swap. One engine call is one user
// intent, run to a terminal Result.
package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solchat-labs/amm-engine/internal/amm/pda"
	"github.com/solchat-labs/amm-engine/internal/amm/state"
	"github.com/solchat-labs/amm-engine/internal/chain"
	"github.com/solchat-labs/amm-engine/internal/token"
	"github.com/solchat-labs/amm-engine/internal/txpipe"
	"github.com/solchat-labs/amm-engine/internal/wallet"
)

// Engine executes AMM operations for a single wallet on a single network.
type Engine struct {
	client    chain.Client
	wallet    *wallet.Wallet
	tokens    *token.Registry
	reader    *state.Reader
	pipe      *txpipe.Pipeline
	logger    *zap.Logger
	programID solana.PublicKey
	network   string

	slippageMilliBps uint64
	solReference     decimal.Decimal
}

// Params carries the engine's collaborators and policy.
type Params struct {
	Client            chain.Client
	Wallet            *wallet.Wallet
	Tokens            *token.Registry
	Pipeline          *txpipe.Pipeline
	ProgramID         solana.PublicKey
	Network           string
	SlippageMilliBps  uint64
	SOLReferencePrice decimal.Decimal
	Logger            *zap.Logger
}

func New(p Params) *Engine {
	return &Engine{
		client:           p.Client,
		wallet:           p.Wallet,
		tokens:           p.Tokens,
		reader:           state.NewReader(p.Client, p.Logger),
		pipe:             p.Pipeline,
		logger:           p.Logger.Named("engine"),
		programID:        p.ProgramID,
		network:          p.Network,
		slippageMilliBps: p.SlippageMilliBps,
		solReference:     p.SOLReferencePrice,
	}
}

// resolvedPair is a token pair with its derived pool addresses, in the
// caller's requested order plus the canonical mapping.
type resolvedPair struct {
	first, second token.Metadata
	addrs         *pda.PoolAddresses
}

// resolvePair resolves two symbols and derives the pool addresses. All
// failures here are local validation, detected before any network call.
func (e *Engine) resolvePair(symbolX, symbolY string) (*resolvedPair, *Result) {
	first, err := e.tokens.Resolve(symbolX)
	if err != nil {
		return nil, validationFailure(fmt.Sprintf("Unknown token %q on %s.", symbolX, e.network))
	}
	second, err := e.tokens.Resolve(symbolY)
	if err != nil {
		return nil, validationFailure(fmt.Sprintf("Unknown token %q on %s.", symbolY, e.network))
	}
	addrs, err := pda.Derive(e.programID, first.Mint, second.Mint)
	if err != nil {
		return nil, validationFailure(fmt.Sprintf("Cannot build a %s/%s pool: %v.", first.Symbol, second.Symbol, err))
	}
	return &resolvedPair{first: first, second: second, addrs: addrs}, nil
}

// readReserves fetches both vault balances in parallel; the two reads have no
// ordering dependency. Returned in canonical (A, B) order.
func (e *Engine) readReserves(ctx context.Context, record *state.PoolRecord) (uint64, uint64, error) {
	var reserveA, reserveB uint64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reserveA, err = e.reader.ReadVaultBalance(gctx, record.VaultA)
		return err
	})
	g.Go(func() error {
		var err error
		reserveB, err = e.reader.ReadVaultBalance(gctx, record.VaultB)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return reserveA, reserveB, nil
}

// submit runs the pipeline and folds its outcome into a Result. successMsg is
// used verbatim when the transaction confirms.
func (e *Engine) submit(ctx context.Context, instructions []solana.Instruction, successMsg string) *Result {
	outcome, err := e.pipe.Execute(ctx, instructions)
	if outcome == nil {
		outcome = &txpipe.Outcome{}
	}
	result := &Result{Attempts: outcome.Attempts}
	if !outcome.Signature.IsZero() {
		result.Signature = outcome.Signature.String()
		result.ExplorerLink = explorerLink(outcome.Signature, e.network)
	}
	if err != nil {
		kind := txpipe.KindOf(err)
		result.ErrorKind = string(kind)
		result.Message = messageForKind(kind, outcome.Attempts)
		return result
	}
	result.Success = true
	result.Message = successMsg
	return result
}

// wrapPrefix returns the atomic wSOL funding prefix when the given side of
// the operation is the native asset, or nil otherwise. Wrapping always rides
// in the same transaction as the operation that spends the wSOL: a partial
// failure must not strand wrapped funds outside the intended operation.
func (e *Engine) wrapPrefix(meta token.Metadata, rawAmount uint64) ([]solana.Instruction, error) {
	if !meta.IsNative() {
		return nil, nil
	}
	return e.wallet.WrapSOLInstructions(rawAmount)
}

// Unwrap closes the wallet's wSOL account, returning the wrapped balance to
// native SOL. It is always an explicit user action: an operation may leave
// SOL wrapped on purpose for a follow-up.
func (e *Engine) Unwrap(ctx context.Context) *Result {
	ix, err := e.wallet.UnwrapSOLInstruction()
	if err != nil {
		return validationFailure(fmt.Sprintf("Could not build the unwrap instruction: %v.", err))
	}
	return e.submit(ctx, []solana.Instruction{ix}, "Unwrapped your wSOL balance back to SOL.")
}

// poolNotFoundResult renders the "create the pool first" guidance for a pair
// with no pool. Only a definitive not-found lands here; transient read
// failures surface as retryable errors instead.
func poolNotFoundResult(symbolA, symbolB string) *Result {
	r := failure(txpipe.KindPoolNotFound,
		fmt.Sprintf("No %s/%s pool exists yet. Create the pool first, then retry.", symbolA, symbolB))
	r.NeedsPoolCreation = true
	return r
}

// readFailureResult renders a transient read failure, keeping it distinct
// from pool-not-found so the caller retries instead of offering creation.
func readFailureResult(err error) *Result {
	return failure(txpipe.KindTransient,
		fmt.Sprintf("Could not read the pool right now: %v. Please try again.", err))
}
