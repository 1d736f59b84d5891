package pda

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgramID = solana.MustPublicKeyFromBase58("SwaPpA9LAaLfeLi3a68M4DjnLqgtticKg6CnyNwgAC8")

func randomMint(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey()
}

func TestDeriveIsSymmetric(t *testing.T) {
	for i := 0; i < 20; i++ {
		mintX := randomMint(t)
		mintY := randomMint(t)

		forward, err := Derive(testProgramID, mintX, mintY)
		require.NoError(t, err)
		backward, err := Derive(testProgramID, mintY, mintX)
		require.NoError(t, err)

		assert.Equal(t, forward.Pool, backward.Pool)
		assert.Equal(t, forward.Authority, backward.Authority)
		assert.Equal(t, forward.VaultA, backward.VaultA)
		assert.Equal(t, forward.VaultB, backward.VaultB)
		assert.Equal(t, forward.Bump, backward.Bump)
		assert.Equal(t, forward.Order.MintA, backward.Order.MintA)
		assert.Equal(t, forward.Order.MintB, backward.Order.MintB)
		// Exactly one of the two argument orders is reversed.
		assert.NotEqual(t, forward.Order.Reversed, backward.Order.Reversed)
	}
}

func TestDeriveRejectsSameMint(t *testing.T) {
	mint := randomMint(t)
	_, err := Derive(testProgramID, mint, mint)
	assert.ErrorIs(t, err, ErrSameMint)
}

func TestDeriveRejectsZeroMint(t *testing.T) {
	mint := randomMint(t)
	_, err := Derive(testProgramID, solana.PublicKey{}, mint)
	assert.ErrorIs(t, err, ErrZeroMint)
	_, err = Derive(testProgramID, mint, solana.PublicKey{})
	assert.ErrorIs(t, err, ErrZeroMint)
}

func TestDeriveCanonicalOrderIsSorted(t *testing.T) {
	mintX := randomMint(t)
	mintY := randomMint(t)

	addrs, err := Derive(testProgramID, mintX, mintY)
	require.NoError(t, err)

	sortedA, sortedB, _ := SortMints(mintX, mintY)
	assert.Equal(t, sortedA, addrs.Order.MintA)
	assert.Equal(t, sortedB, addrs.Order.MintB)

	// The vaults belong to the canonical mints, owned by the authority.
	vaultA, _, err := solana.FindAssociatedTokenAddress(addrs.Authority, sortedA)
	require.NoError(t, err)
	assert.Equal(t, vaultA, addrs.VaultA)
}

func TestSortMints(t *testing.T) {
	a := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	b := solana.WrappedSol

	first, second, reversed := SortMints(a, b)
	assert.False(t, reversed)
	assert.Equal(t, a, first)
	assert.Equal(t, b, second)

	first, second, reversed = SortMints(b, a)
	assert.True(t, reversed)
	assert.Equal(t, a, first)
	assert.Equal(t, b, second)
}
