// =================================
// File: internal/txpipe/txpipe.go
// =================================

// Package txpipe builds, signs, submits and confirms transactions against an
// unreliable, latency-variable network. One pipeline call is one user
// operation: a bounded retry loop around submission, a bounded confirmation
// wait, and a fallback status query before anything is declared unconfirmed.
package txpipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/solchat-labs/amm-engine/internal/chain"
)

// Tier describes the latency class of the target network.
type Tier string

const (
	TierMainnet Tier = "mainnet"
	TierDevnet  Tier = "devnet"
)

// MaxAttempts is the per-tier submission attempt budget.
func (t Tier) MaxAttempts() uint {
	if t == TierDevnet {
		return 5
	}
	return 3
}

// ConfirmTimeout bounds the confirmation wait per attempt. The devnet tier
// gets a longer wait because confirmations there are observed to time out
// even when the transaction ultimately lands.
func (t Tier) ConfirmTimeout() time.Duration {
	if t == TierDevnet {
		return 60 * time.Second
	}
	return 30 * time.Second
}

// State is the terminal state of one pipeline run.
type State string

const (
	StateConfirmed   State = "confirmed"
	StateFailed      State = "failed_on_chain"
	StateUnconfirmed State = "timed_out_unconfirmed"
)

// Outcome reports how a pipeline run ended. Signature is set as soon as any
// attempt was submitted, including unconfirmed ones.
type Outcome struct {
	State     State
	Signature solana.Signature
	Attempts  int
}

// Signer signs a built transaction. Signing may suspend pending human
// approval; the pipeline invokes it once per attempt.
type Signer interface {
	Payer() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// Pipeline executes transactions with per-tier retry and confirmation policy.
type Pipeline struct {
	client chain.Client
	signer Signer
	logger *zap.Logger
	tier   Tier

	// maxAttempts overrides the tier default when non-zero.
	maxAttempts uint
	// baseDelay is the first backoff interval; subsequent delays double.
	baseDelay time.Duration
	// notify observes scheduled backoff delays; nil outside tests.
	notify backoff.Notify
}

// Option adjusts pipeline policy.
type Option func(*Pipeline)

// WithMaxAttempts overrides the tier's attempt budget.
func WithMaxAttempts(n uint) Option {
	return func(p *Pipeline) { p.maxAttempts = n }
}

// WithBaseDelay overrides the first backoff interval.
func WithBaseDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.baseDelay = d }
}

// WithNotify installs an observer for backoff delays.
func WithNotify(n backoff.Notify) Option {
	return func(p *Pipeline) { p.notify = n }
}

// New creates a pipeline for the given tier.
func New(client chain.Client, signer Signer, tier Tier, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:    client,
		signer:    signer,
		logger:    logger.Named("txpipe"),
		tier:      tier,
		baseDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs the full state machine for one instruction list. It returns a
// terminal Outcome; err is non-nil for every state except StateConfirmed.
// The first attempt that reaches confirmation wins — each retry signs a new
// transaction with a fresh blockhash, so attempts are not idempotent.
func (p *Pipeline) Execute(ctx context.Context, instructions []solana.Instruction) (*Outcome, error) {
	if len(instructions) == 0 {
		return nil, errors.New("no instructions to submit")
	}

	maxAttempts := p.maxAttempts
	if maxAttempts == 0 {
		maxAttempts = p.tier.MaxAttempts()
	}

	outcome := &Outcome{}

	notify := func(err error, next time.Duration) {
		p.logger.Info("Retrying submission after error",
			zap.Error(err),
			zap.Int("attempt", outcome.Attempts),
			zap.Duration("backoff", next))
		if p.notify != nil {
			p.notify(err, next)
		}
	}

	attempt := func() (*Outcome, error) {
		outcome.Attempts++
		return outcome, p.runAttempt(ctx, instructions, outcome)
	}

	_, err := RetryWithBackoff(ctx, attempt, maxAttempts, p.baseDelay, IsRetryable, notify)
	if err != nil {
		if outcome.State == "" {
			outcome.State = StateFailed
		}
		p.logger.Error("Submission pipeline failed",
			zap.Int("attempts", outcome.Attempts),
			zap.String("state", string(outcome.State)),
			zap.Error(err))
		return outcome, err
	}

	outcome.State = StateConfirmed
	p.logger.Info("Transaction confirmed",
		zap.String("signature", outcome.Signature.String()),
		zap.Int("attempts", outcome.Attempts))
	return outcome, nil
}

// runAttempt performs one Building→Signed→Submitted pass and resolves its
// terminal state.
func (p *Pipeline) runAttempt(ctx context.Context, instructions []solana.Instruction, outcome *Outcome) error {
	// A blockhash obtained earlier in the flow is stale by now; every attempt
	// fetches its own immediately before signing.
	blockhash, err := p.client.GetLatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(p.signer.Payer()))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build transaction: %w", err))
	}

	if err := p.signer.SignTransaction(tx); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to sign transaction: %w", err))
	}

	sig, err := p.client.SendTransaction(ctx, tx)
	if err != nil {
		classified := ClassifySendError(err)
		if !IsRetryable(classified) {
			outcome.State = StateFailed
		}
		return classified
	}
	outcome.Signature = sig

	err = p.client.WaitForConfirmation(ctx, sig, p.tier.ConfirmTimeout())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chain.ErrConfirmationTimeout):
		return p.resolveTimedOut(ctx, sig, outcome)
	default:
		outcome.State = StateFailed
		return ClassifySendError(err)
	}
}

// resolveTimedOut runs the fallback status query after a confirmation wait
// expires. The transaction may well have landed; only an explicit answer from
// the network settles it.
func (p *Pipeline) resolveTimedOut(ctx context.Context, sig solana.Signature, outcome *Outcome) error {
	p.logger.Warn("Confirmation wait expired, querying signature status",
		zap.String("signature", sig.String()))

	statuses, err := p.client.GetSignatureStatuses(ctx, sig)
	if err == nil && statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
		status := statuses.Value[0]
		if status.Err != nil {
			outcome.State = StateFailed
			return ClassifySendError(fmt.Errorf("transaction failed on chain: %v", status.Err))
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return nil
		}
	}

	outcome.State = StateUnconfirmed
	return ErrAmbiguousTimeout
}
