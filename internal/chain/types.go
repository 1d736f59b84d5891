// =================================
// File: internal/chain/types.go
// =================================
package chain

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrAccountNotFound is returned when an account does not exist on chain,
	// as opposed to a transient failure reaching the RPC node.
	ErrAccountNotFound = errors.New("account not found")

	// ErrConfirmationTimeout is returned when the bounded confirmation wait
	// expires without an explicit confirm or reject.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

// Client is the narrow network contract the engine depends on. The concrete
// implementation talks to a Solana RPC node; tests substitute their own.
type Client interface {
	// GetLatestBlockhash returns a fresh blockhash. Callers must fetch one
	// immediately before signing; a blockhash obtained earlier in the flow
	// is assumed stale.
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	// GetAccountInfo fetches a single account. Returns ErrAccountNotFound
	// when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// GetTokenAccountBalance returns the raw token amount of an SPL token account.
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	// SendTransaction submits a signed transaction.
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// WaitForConfirmation polls signature statuses until the transaction is
	// confirmed or the timeout elapses (ErrConfirmationTimeout).
	WaitForConfirmation(ctx context.Context, signature solana.Signature, timeout time.Duration) error
	// GetSignatureStatuses queries the final status of submitted signatures.
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}
