package token

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(network string) *Registry {
	return NewRegistry(network, zap.NewNop())
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	r := newTestRegistry("mainnet")

	for _, symbol := range []string{"SOL", "sol", " Sol "} {
		m, err := r.Resolve(symbol)
		require.NoError(t, err, symbol)
		assert.Equal(t, "SOL", m.Symbol)
		assert.Equal(t, solana.WrappedSol, m.Mint)
		assert.Equal(t, uint8(9), m.Decimals)
	}
}

func TestResolveUnknownSymbol(t *testing.T) {
	r := newTestRegistry("devnet")

	_, err := r.Resolve("DOGE")
	assert.ErrorIs(t, err, ErrUnknownToken)

	_, err = r.Resolve("")
	assert.ErrorIs(t, err, ErrUnknownToken)

	// USDT ships on mainnet only.
	_, err = r.Resolve("USDT")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestRegisterRejectsConflictingMint(t *testing.T) {
	r := newTestRegistry("devnet")
	mint, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	custom := Metadata{Symbol: "bonk", Mint: mint.PublicKey(), Decimals: 5}
	require.NoError(t, r.Register(custom))

	// Same mapping again is a no-op.
	require.NoError(t, r.Register(custom))

	// Same symbol, different mint must fail rather than overwrite.
	other, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	custom.Mint = other.PublicKey()
	assert.Error(t, r.Register(custom))

	m, err := r.Resolve("BONK")
	require.NoError(t, err)
	assert.Equal(t, mint.PublicKey(), m.Mint)
}

func TestLookupSymbolFallsBackToUnknown(t *testing.T) {
	r := newTestRegistry("mainnet")
	assert.Equal(t, "SOL", r.LookupSymbol(solana.WrappedSol))

	random, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	assert.Equal(t, "Unknown", r.LookupSymbol(random.PublicKey()))
}

func TestIsNative(t *testing.T) {
	r := newTestRegistry("mainnet")
	sol, err := r.Resolve("SOL")
	require.NoError(t, err)
	usdc, err := r.Resolve("USDC")
	require.NoError(t, err)

	assert.True(t, sol.IsNative())
	assert.False(t, usdc.IsNative())
}

func TestRawConversions(t *testing.T) {
	raw, err := ToRaw(decimal.RequireFromString("1.5"), 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), raw)

	// Sub-precision dust truncates instead of rounding up.
	raw, err = ToRaw(decimal.RequireFromString("0.0000001"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), raw)

	_, err = ToRaw(decimal.NewFromInt(-1), 6)
	assert.Error(t, err)

	assert.True(t, FromRaw(1_500_000_000, 9).Equal(decimal.RequireFromString("1.5")))
}
