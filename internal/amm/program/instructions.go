// =================================
// File: internal/amm/program/instructions.go
// =================================

// Package program builds the three instructions of the AMM program. Account
// lists are always presented in the pool's canonical order; callers that hold
// a reversed pair must swap before building.
package program

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Anchor instruction discriminators: first 8 bytes of sha256("global:<name>").
var (
	initializePoolDiscriminator = anchorDiscriminator("initialize_pool")
	addLiquidityDiscriminator   = anchorDiscriminator("add_liquidity")
	swapDiscriminator           = anchorDiscriminator("swap")
)

func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

// PoolAccounts is the derived account set shared by every instruction, in
// canonical order.
type PoolAccounts struct {
	Pool      solana.PublicKey
	Authority solana.PublicKey
	MintA     solana.PublicKey
	MintB     solana.PublicKey
	VaultA    solana.PublicKey
	VaultB    solana.PublicKey
}

// InitializePool builds the pool-creation instruction. The payer funds the
// pool account and both vaults.
func InitializePool(programID, payer solana.PublicKey, accounts PoolAccounts, bump uint8) solana.Instruction {
	data := make([]byte, 8+1)
	copy(data[0:8], initializePoolDiscriminator)
	data[8] = bump

	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(accounts.Pool, true, false),
		solana.NewAccountMeta(accounts.Authority, false, false),
		solana.NewAccountMeta(accounts.MintA, false, false),
		solana.NewAccountMeta(accounts.MintB, false, false),
		solana.NewAccountMeta(accounts.VaultA, true, false),
		solana.NewAccountMeta(accounts.VaultB, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(programID, metas, data)
}

// AddLiquidity builds the deposit instruction. Amounts are raw units of the
// canonical A and B mints respectively.
func AddLiquidity(programID, user solana.PublicKey, accounts PoolAccounts, userA, userB solana.PublicKey, amountA, amountB uint64) solana.Instruction {
	data := make([]byte, 8+8+8)
	copy(data[0:8], addLiquidityDiscriminator)
	binary.LittleEndian.PutUint64(data[8:16], amountA)
	binary.LittleEndian.PutUint64(data[16:24], amountB)

	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(accounts.Pool, false, false),
		solana.NewAccountMeta(accounts.Authority, false, false),
		solana.NewAccountMeta(userA, true, false),
		solana.NewAccountMeta(userB, true, false),
		solana.NewAccountMeta(accounts.VaultA, true, false),
		solana.NewAccountMeta(accounts.VaultB, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	return solana.NewInstruction(programID, metas, data)
}

// Swap builds the swap instruction. aToB gives the trade direction over the
// canonical pair; userSource and userDestination are the user's token
// accounts for the input and output mints.
func Swap(programID, user solana.PublicKey, accounts PoolAccounts, userSource, userDestination solana.PublicKey, amountIn, minAmountOut uint64, aToB bool) solana.Instruction {
	data := make([]byte, 8+8+8+1)
	copy(data[0:8], swapDiscriminator)
	binary.LittleEndian.PutUint64(data[8:16], amountIn)
	binary.LittleEndian.PutUint64(data[16:24], minAmountOut)
	if aToB {
		data[24] = 1
	}

	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(accounts.Pool, false, false),
		solana.NewAccountMeta(accounts.Authority, false, false),
		solana.NewAccountMeta(userSource, true, false),
		solana.NewAccountMeta(userDestination, true, false),
		solana.NewAccountMeta(accounts.VaultA, true, false),
		solana.NewAccountMeta(accounts.VaultB, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	return solana.NewInstruction(programID, metas, data)
}
