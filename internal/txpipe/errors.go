// =================================
// File: internal/txpipe/errors.go
// =================================
package txpipe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is a stable, renderable classification of a failure. The UI layer
// maps kinds to user-facing guidance; nothing upstream inspects raw strings.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindPoolNotFound     ErrorKind = "pool_not_found"
	KindTransient        ErrorKind = "transient"
	KindSlippage         ErrorKind = "slippage_exceeded"
	KindDisproportionate ErrorKind = "disproportionate_liquidity"
	KindZeroAmount       ErrorKind = "zero_amount"
	KindMismatchedMint   ErrorKind = "mismatched_mint"
	KindUnauthorized     ErrorKind = "unauthorized_signer"
	KindOnChain          ErrorKind = "on_chain_rejection"
	KindUnconfirmed      ErrorKind = "unconfirmed_timeout"
)

// Hex error codes of the AMM program's logical rejections, as they appear in
// RPC preflight and confirmation errors.
const (
	slippageExceededCode = "0x1770" // 6000
	disproportionateCode = "0x1771" // 6001
	zeroAmountCode       = "0x1772" // 6002
	mismatchedMintCode   = "0x1773" // 6003
)

// OnChainError is a logical rejection by the program. Retrying one of these
// wastes time and fees with no hope of success.
type OnChainError struct {
	Kind          ErrorKind
	OriginalError error
}

func (e *OnChainError) Error() string {
	return fmt.Sprintf("transaction rejected on chain (%s): %v", e.Kind, e.OriginalError)
}

func (e *OnChainError) Unwrap() error {
	return e.OriginalError
}

// ErrAmbiguousTimeout means the transaction was submitted but neither the
// confirmation wait nor the fallback status query produced a verdict. It must
// never be collapsed into success or failure: treating it as failure alarms
// the user about a transaction that may have landed, treating it as success
// invites double-submission.
var ErrAmbiguousTimeout = errors.New("transaction submitted but unconfirmed; check the explorer before retrying")

// ClassifySendError decides whether a submission error is a logical rejection
// (returned as *OnChainError) or transient (returned as-is, eligible for
// retry).
func ClassifySendError(err error) error {
	if err == nil {
		return nil
	}
	if kind, ok := logicalKind(err); ok {
		return &OnChainError{Kind: kind, OriginalError: err}
	}
	return err
}

// logicalKind matches known program rejection codes and runtime errors that
// no retry can fix.
func logicalKind(err error) (ErrorKind, bool) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ExceededSlippage"), strings.Contains(msg, slippageExceededCode):
		return KindSlippage, true
	case strings.Contains(msg, "DisproportionateDeposit"), strings.Contains(msg, disproportionateCode):
		return KindDisproportionate, true
	case strings.Contains(msg, "ZeroAmount"), strings.Contains(msg, zeroAmountCode):
		return KindZeroAmount, true
	case strings.Contains(msg, "MismatchedMint"), strings.Contains(msg, mismatchedMintCode):
		return KindMismatchedMint, true
	case strings.Contains(msg, "MissingRequiredSignature"), strings.Contains(msg, "signature verification failure"):
		return KindUnauthorized, true
	case strings.Contains(msg, "custom program error"):
		return KindOnChain, true
	case strings.Contains(msg, "InstructionError"):
		return KindOnChain, true
	}
	return "", false
}

// IsRetryable reports whether another attempt could plausibly succeed.
// BlockhashNotFound is the canonical transient case: the next attempt signs
// with a fresh blockhash. Logical rejections and ambiguous timeouts are not
// retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var onChain *OnChainError
	if errors.As(err, &onChain) {
		return false
	}
	if errors.Is(err, ErrAmbiguousTimeout) {
		return false
	}
	return true
}

// KindOf extracts the ErrorKind from a pipeline error for result rendering.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var onChain *OnChainError
	if errors.As(err, &onChain) {
		return onChain.Kind
	}
	if errors.Is(err, ErrAmbiguousTimeout) {
		return KindUnconfirmed
	}
	return KindTransient
}
