package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solchat-labs/amm-engine/internal/chain"
)

// mockClient implements chain.Client with canned responses.
type mockClient struct {
	accountData    map[solana.PublicKey][]byte
	balances       map[solana.PublicKey]uint64
	accountErr     error
	accountErrLeft int
	calls          int
}

func (m *mockClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (m *mockClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	m.calls++
	if m.accountErr != nil && (m.accountErrLeft > 0 || m.accountErrLeft == -1) {
		if m.accountErrLeft > 0 {
			m.accountErrLeft--
		}
		return nil, m.accountErr
	}
	data, ok := m.accountData[pubkey]
	if !ok {
		return nil, chain.ErrAccountNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Data: rpc.DataBytesOrJSONFromBytes(data),
		},
	}, nil
}

func (m *mockClient) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	bal, ok := m.balances[account]
	if !ok {
		return 0, chain.ErrAccountNotFound
	}
	return bal, nil
}

func (m *mockClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func (m *mockClient) WaitForConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	return nil
}

func (m *mockClient) GetSignatureStatuses(ctx context.Context, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return &rpc.GetSignatureStatusesResult{}, nil
}

var _ chain.Client = (*mockClient)(nil)

func encodePoolRecord(t *testing.T, record *PoolRecord) []byte {
	t.Helper()
	data := make([]byte, 0, 8+1+32*4)
	data = append(data, PoolRecordDiscriminator[:]...)
	data = append(data, record.Bump)
	data = append(data, record.MintA.Bytes()...)
	data = append(data, record.MintB.Bytes()...)
	data = append(data, record.VaultA.Bytes()...)
	data = append(data, record.VaultB.Bytes()...)
	return data
}

func randomKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey()
}

func newTestReader(client chain.Client) *Reader {
	r := NewReader(client, zap.NewNop())
	r.retryDelay = time.Millisecond
	return r
}

func TestReadPoolDecodesRecord(t *testing.T) {
	record := &PoolRecord{
		Bump:   254,
		MintA:  randomKey(t),
		MintB:  randomKey(t),
		VaultA: randomKey(t),
		VaultB: randomKey(t),
	}
	poolAddr := randomKey(t)
	client := &mockClient{accountData: map[solana.PublicKey][]byte{
		poolAddr: encodePoolRecord(t, record),
	}}

	got, err := newTestReader(client).ReadPool(context.Background(), poolAddr)
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestReadPoolNotFoundIsTyped(t *testing.T) {
	client := &mockClient{}
	_, err := newTestReader(client).ReadPool(context.Background(), randomKey(t))
	assert.ErrorIs(t, err, ErrPoolNotFound)
	// A definitive "does not exist" must not be retried.
	assert.Equal(t, 1, client.calls)
}

func TestReadPoolTransientIsNotNotFound(t *testing.T) {
	client := &mockClient{
		accountErr:     errors.New("rpc timeout"),
		accountErrLeft: -1,
	}
	_, err := newTestReader(client).ReadPool(context.Background(), randomKey(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPoolNotFound)
	// Transient failures get the bounded local retry.
	assert.Greater(t, client.calls, 1)
}

func TestReadPoolRecoversAfterTransientFailure(t *testing.T) {
	record := &PoolRecord{MintA: randomKey(t), MintB: randomKey(t)}
	poolAddr := randomKey(t)
	client := &mockClient{
		accountData:    map[solana.PublicKey][]byte{poolAddr: encodePoolRecord(t, record)},
		accountErr:     errors.New("connection reset"),
		accountErrLeft: 2,
	}

	got, err := newTestReader(client).ReadPool(context.Background(), poolAddr)
	require.NoError(t, err)
	assert.Equal(t, record.MintA, got.MintA)
	assert.Equal(t, 3, client.calls)
}

func TestReadPoolRejectsBadDiscriminator(t *testing.T) {
	poolAddr := randomKey(t)
	client := &mockClient{accountData: map[solana.PublicKey][]byte{
		poolAddr: make([]byte, 137),
	}}
	_, err := newTestReader(client).ReadPool(context.Background(), poolAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discriminator")
	assert.Equal(t, 1, client.calls, "a malformed account is not a transient condition")
}

func TestReversed(t *testing.T) {
	mintA := randomKey(t)
	mintB := randomKey(t)
	record := &PoolRecord{MintA: mintA, MintB: mintB}

	assert.False(t, record.Reversed(mintA))
	assert.True(t, record.Reversed(mintB))
}

func TestReadVaultBalance(t *testing.T) {
	vault := randomKey(t)
	client := &mockClient{balances: map[solana.PublicKey]uint64{vault: 123456}}
	reader := newTestReader(client)

	bal, err := reader.ReadVaultBalance(context.Background(), vault)
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), bal)

	_, err = reader.ReadVaultBalance(context.Background(), randomKey(t))
	assert.ErrorIs(t, err, ErrPoolNotFound)
}
