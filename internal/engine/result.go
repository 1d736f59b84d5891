// =================================
// File: internal/engine/result.go
// =================================
package engine

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/solchat-labs/amm-engine/internal/txpipe"
)

// Result is the flat, renderable outcome of one user operation. The chat
// layer displays it as-is; no raw error ever crosses this boundary.
type Result struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Signature    string `json:"transactionReference,omitempty"`
	ExplorerLink string `json:"explorerLink,omitempty"`
	ErrorKind    string `json:"errorKind,omitempty"`

	// NeedsPoolCreation is set when the requested pair has no pool yet and
	// the natural next step is creating one.
	NeedsPoolCreation bool `json:"needsPoolCreation,omitempty"`

	// Suggested amounts accompany a refused disproportionate deposit.
	SuggestedA decimal.Decimal `json:"suggestedAmountA,omitempty"`
	SuggestedB decimal.Decimal `json:"suggestedAmountB,omitempty"`

	Attempts int `json:"attempts,omitempty"`
}

func failure(kind txpipe.ErrorKind, message string) *Result {
	return &Result{Message: message, ErrorKind: string(kind)}
}

func validationFailure(message string) *Result {
	return failure(txpipe.KindValidation, message)
}

// explorerLink builds a cluster-aware Solana explorer URL for a signature.
func explorerLink(sig solana.Signature, network string) string {
	if sig.IsZero() {
		return ""
	}
	link := fmt.Sprintf("https://explorer.solana.com/tx/%s", sig)
	if network != "mainnet" {
		link += "?cluster=" + network
	}
	return link
}

// messageForKind maps an error classification to actionable user guidance.
func messageForKind(kind txpipe.ErrorKind, attempts int) string {
	switch kind {
	case txpipe.KindSlippage:
		return "The price moved while your swap was in flight. Try again, or raise your slippage tolerance."
	case txpipe.KindDisproportionate:
		return "The deposit does not match the pool's reserve ratio. Adjust the amounts and re-submit."
	case txpipe.KindZeroAmount:
		return "The program rejected a zero amount. Enter a positive amount and try again."
	case txpipe.KindMismatchedMint:
		return "The token accounts do not match the pool's mints. This pair may need a fresh pool."
	case txpipe.KindUnauthorized:
		return "The transaction was not signed by the expected wallet."
	case txpipe.KindUnconfirmed:
		return "The transaction was submitted but confirmation timed out. It may still have succeeded — check the explorer before retrying."
	case txpipe.KindTransient:
		return fmt.Sprintf("The network did not accept the transaction after %d attempts. Please try again.", attempts)
	default:
		return "The transaction was rejected on chain."
	}
}
