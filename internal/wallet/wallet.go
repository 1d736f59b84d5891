// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/mr-tron/base58"
)

// Wallet holds a local keypair and signs transactions with it. Signing may be
// replaced by a remote signer behind the same Signer interface in txpipe.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.Mutex
	ataCache map[string]solana.PublicKey
}

// New creates a wallet from a base58-encoded 64-byte private key.
func New(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}, nil
}

// FromPrivateKey wraps an existing keypair; used by tests.
func FromPrivateKey(key solana.PrivateKey) *Wallet {
	return &Wallet{
		PrivateKey: key,
		PublicKey:  key.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}
}

// Payer returns the public key that pays for and signs transactions.
func (w *Wallet) Payer() solana.PublicKey {
	return w.PublicKey
}

// SignTransaction signs the transaction with the wallet's private key.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// ATA returns the associated token account address of the wallet for the
// given mint. Derivations are cached; the cache is append-only.
func (w *Wallet) ATA(mint solana.PublicKey) (solana.PublicKey, error) {
	mintStr := mint.String()
	w.mu.Lock()
	defer w.mu.Unlock()
	if ata, ok := w.ataCache[mintStr]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ataCache[mintStr] = ata
	return ata, nil
}

// CreateATAIdempotentInstruction builds the idempotent create-associated-
// token-account instruction for the wallet and the given mint.
func (w *Wallet) CreateATAIdempotentInstruction(mint solana.PublicKey) (solana.Instruction, error) {
	ata, err := w.ATA(mint)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		[]*solana.AccountMeta{
			{PublicKey: w.PublicKey, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: w.PublicKey, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // 1 = CreateIdempotent
	), nil
}

// WrapSOLInstructions returns the atomic instruction prefix that funds the
// wallet's wSOL account with the given lamports: create the account if
// missing, transfer lamports into it, then sync the native balance. These
// must run in the same transaction as the operation that consumes the wSOL.
func (w *Wallet) WrapSOLInstructions(lamports uint64) ([]solana.Instruction, error) {
	wsolATA, err := w.ATA(solana.WrappedSol)
	if err != nil {
		return nil, err
	}
	createIx, err := w.CreateATAIdempotentInstruction(solana.WrappedSol)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{
		createIx,
		system.NewTransferInstruction(lamports, w.PublicKey, wsolATA).Build(),
		token.NewSyncNativeInstruction(wsolATA).Build(),
	}, nil
}

// UnwrapSOLInstruction closes the wallet's wSOL account, returning its whole
// balance (wrapped SOL plus rent) to the wallet. Never issued implicitly;
// unwrapping is its own user-invoked operation.
func (w *Wallet) UnwrapSOLInstruction() (solana.Instruction, error) {
	wsolATA, err := w.ATA(solana.WrappedSol)
	if err != nil {
		return nil, err
	}
	return token.NewCloseAccountInstruction(
		wsolATA, w.PublicKey, w.PublicKey, nil,
	).Build(), nil
}

// String returns the wallet's public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
