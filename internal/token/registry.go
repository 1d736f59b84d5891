// =================================
// File: internal/token/registry.go
// =================================
package token

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Metadata describes a resolvable token: its mint and decimal precision.
type Metadata struct {
	Symbol   string
	Mint     solana.PublicKey
	Decimals uint8
}

var ErrUnknownToken = errors.New("unknown token")

// Registry maps token symbols to mints per network. Entries are append-only:
// nothing is silently expired or overwritten, so an address cannot drift in
// the middle of an operation. One symbol maps to exactly one mint per
// network; a conflicting registration fails instead of guessing.
type Registry struct {
	network string
	logger  *zap.Logger

	mu       sync.RWMutex
	bySymbol map[string]Metadata
	byMint   map[solana.PublicKey]string
}

// NewRegistry creates a registry preloaded with the well-known tokens of the
// given network.
func NewRegistry(network string, logger *zap.Logger) *Registry {
	r := &Registry{
		network:  network,
		logger:   logger.Named("tokens"),
		bySymbol: make(map[string]Metadata),
		byMint:   make(map[solana.PublicKey]string),
	}
	for _, m := range wellKnown(network) {
		r.bySymbol[m.Symbol] = m
		r.byMint[m.Mint] = m.Symbol
	}
	return r
}

// wellKnown returns the built-in token table of a network. The native asset
// is represented by its wrapped mint so it participates in the same pool
// model as every other token.
func wellKnown(network string) []Metadata {
	sol := Metadata{Symbol: "SOL", Mint: solana.WrappedSol, Decimals: 9}
	switch network {
	case "mainnet":
		return []Metadata{
			sol,
			{Symbol: "USDC", Mint: solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"), Decimals: 6},
			{Symbol: "USDT", Mint: solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"), Decimals: 6},
		}
	default: // devnet
		return []Metadata{
			sol,
			{Symbol: "USDC", Mint: solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"), Decimals: 6},
		}
	}
}

// Resolve maps a symbol to its mint and decimals. Resolution is
// case-insensitive over symbols; an unknown symbol returns ErrUnknownToken.
func (r *Registry) Resolve(symbol string) (Metadata, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if key == "" {
		return Metadata{}, fmt.Errorf("%w: empty symbol", ErrUnknownToken)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.bySymbol[key]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %s on %s", ErrUnknownToken, key, r.network)
	}
	return m, nil
}

// LookupSymbol is the reverse mapping. Unknown mints resolve to "Unknown"
// instead of failing, since callers use this only for display.
func (r *Registry) LookupSymbol(mint solana.PublicKey) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sym, ok := r.byMint[mint]; ok {
		return sym
	}
	return "Unknown"
}

// Register appends a symbol→mint mapping. Registering the same symbol with a
// different mint is an error; the cache never replaces an existing entry.
func (r *Registry) Register(m Metadata) error {
	key := strings.ToUpper(strings.TrimSpace(m.Symbol))
	if key == "" || m.Mint.IsZero() {
		return errors.New("invalid token metadata")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.bySymbol[key]; ok {
		if existing.Mint.Equals(m.Mint) {
			return nil
		}
		return fmt.Errorf("symbol %s already mapped to %s on %s", key, existing.Mint, r.network)
	}
	m.Symbol = key
	r.bySymbol[key] = m
	r.byMint[m.Mint] = key
	r.logger.Info("Registered token",
		zap.String("symbol", key),
		zap.String("mint", m.Mint.String()),
		zap.Uint8("decimals", m.Decimals))
	return nil
}

// IsNative reports whether the metadata describes the wrapped native asset.
func (m Metadata) IsNative() bool {
	return m.Mint.Equals(solana.WrappedSol)
}

// ToRaw converts a user-facing decimal amount into raw base units,
// truncating anything below the mint's precision.
func ToRaw(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, errors.New("amount must not be negative")
	}
	raw := amount.Shift(int32(decimals)).Truncate(0)
	if !raw.BigInt().IsUint64() {
		return 0, errors.New("amount out of range")
	}
	return raw.BigInt().Uint64(), nil
}

// FromRaw converts raw base units back into a user-facing decimal amount.
func FromRaw(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals))
}
