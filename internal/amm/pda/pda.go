// =================================
// File: internal/amm/pda/pda.go
// =================================

// Package pda derives the deterministic addresses of a liquidity pool from an
// unordered pair of mints. The derivation sorts the mints byte-ascending
// first, so both argument orders resolve to the same pool; fragmenting the
// same economic pair across two addresses is the failure mode this exists to
// prevent.
package pda

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var poolSeed = []byte("pool")

var (
	ErrSameMint = errors.New("pool requires two distinct mints")
	ErrZeroMint = errors.New("mint must not be the zero address")
)

// Order records how the caller's input pair maps onto the pool's canonical
// (sorted) pair. Every downstream account list and reserve read must consume
// this instead of re-deriving or assuming an order.
type Order struct {
	// MintA and MintB are the canonical sorted mints.
	MintA solana.PublicKey
	MintB solana.PublicKey
	// Reversed is true when the caller's first mint became canonical B.
	Reversed bool
}

// PoolAddresses is the full set of derived addresses for one mint pair.
type PoolAddresses struct {
	Pool      solana.PublicKey
	Authority solana.PublicKey
	VaultA    solana.PublicKey
	VaultB    solana.PublicKey
	Bump      uint8
	Order     Order
}

// Derive computes the pool, authority and vault addresses for a mint pair,
// in either argument order. It is pure: the only failures are invalid inputs.
func Derive(programID, mintX, mintY solana.PublicKey) (*PoolAddresses, error) {
	if mintX.IsZero() || mintY.IsZero() {
		return nil, ErrZeroMint
	}
	if mintX.Equals(mintY) {
		return nil, fmt.Errorf("%w: %s", ErrSameMint, mintX)
	}

	mintA, mintB, reversed := SortMints(mintX, mintY)

	seeds := [][]byte{poolSeed, mintA.Bytes(), mintB.Bytes()}
	pool, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive pool address: %w", err)
	}

	// The authority is derived from the same seed tuple as the pool itself:
	// the pool account doubles as the nominal owner of its vaults, with no
	// private key behind it.
	authority := pool

	vaultA, _, err := solana.FindAssociatedTokenAddress(authority, mintA)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault for %s: %w", mintA, err)
	}
	vaultB, _, err := solana.FindAssociatedTokenAddress(authority, mintB)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault for %s: %w", mintB, err)
	}

	return &PoolAddresses{
		Pool:      pool,
		Authority: authority,
		VaultA:    vaultA,
		VaultB:    vaultB,
		Bump:      bump,
		Order:     Order{MintA: mintA, MintB: mintB, Reversed: reversed},
	}, nil
}

// SortMints orders two mints byte-ascending. The third return is true when
// the input order was swapped.
func SortMints(mintX, mintY solana.PublicKey) (solana.PublicKey, solana.PublicKey, bool) {
	if bytes.Compare(mintX.Bytes(), mintY.Bytes()) > 0 {
		return mintY, mintX, true
	}
	return mintX, mintY, false
}
