package txpipe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solchat-labs/amm-engine/internal/chain"
)

// mockClient scripts send/confirm behavior per attempt.
type mockClient struct {
	sendErrs    []error // error for send attempt i; nil entries succeed
	confirmErrs []error
	statusValue *rpc.SignatureStatusesResult

	blockhashCount int
	sends          int
	sentBlockhash  []solana.Hash
}

func (m *mockClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	m.blockhashCount++
	var h solana.Hash
	h[0] = byte(m.blockhashCount)
	return h, nil
}

func (m *mockClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	return nil, chain.ErrAccountNotFound
}

func (m *mockClient) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return 0, chain.ErrAccountNotFound
}

func (m *mockClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	idx := m.sends
	m.sends++
	m.sentBlockhash = append(m.sentBlockhash, tx.Message.RecentBlockhash)
	if idx < len(m.sendErrs) && m.sendErrs[idx] != nil {
		return solana.Signature{}, m.sendErrs[idx]
	}
	var sig solana.Signature
	sig[0] = byte(m.sends)
	return sig, nil
}

func (m *mockClient) WaitForConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	idx := m.sends - 1
	if idx < len(m.confirmErrs) {
		return m.confirmErrs[idx]
	}
	return nil
}

func (m *mockClient) GetSignatureStatuses(ctx context.Context, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{m.statusValue},
	}, nil
}

var _ chain.Client = (*mockClient)(nil)

type testSigner struct {
	key solana.PrivateKey
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &testSigner{key: key}
}

func (s *testSigner) Payer() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *testSigner) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	return err
}

func testInstruction(t *testing.T, payer solana.PublicKey) solana.Instruction {
	t.Helper()
	program, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return solana.NewInstruction(
		program.PublicKey(),
		[]*solana.AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true}},
		[]byte{1},
	)
}

func newTestPipeline(client *mockClient, signer *testSigner, tier Tier, opts ...Option) *Pipeline {
	opts = append([]Option{WithBaseDelay(time.Millisecond)}, opts...)
	return New(client, signer, tier, zap.NewNop(), opts...)
}

func TestExecuteFirstAttemptSucceeds(t *testing.T) {
	signer := newTestSigner(t)
	client := &mockClient{}
	pipe := newTestPipeline(client, signer, TierMainnet)

	outcome, err := pipe.Execute(context.Background(), []solana.Instruction{testInstruction(t, signer.Payer())})
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, outcome.State)
	assert.Equal(t, 1, outcome.Attempts)
	assert.False(t, outcome.Signature.IsZero())
}

func TestExecuteSucceedsOnFourthAttempt(t *testing.T) {
	transient := errors.New("BlockhashNotFound")
	signer := newTestSigner(t)
	client := &mockClient{sendErrs: []error{transient, transient, transient, nil}}
	pipe := newTestPipeline(client, signer, TierDevnet)

	outcome, err := pipe.Execute(context.Background(), []solana.Instruction{testInstruction(t, signer.Payer())})
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, outcome.State)
	assert.Equal(t, 4, outcome.Attempts)
	assert.Equal(t, 4, client.sends)
}

func TestExecuteRespectsMainnetAttemptBudget(t *testing.T) {
	transient := errors.New("rpc timeout")
	signer := newTestSigner(t)
	client := &mockClient{sendErrs: []error{transient, transient, transient, transient, transient}}
	pipe := newTestPipeline(client, signer, TierMainnet)

	outcome, err := pipe.Execute(context.Background(), []solana.Instruction{testInstruction(t, signer.Payer())})
	require.Error(t, err)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, client.sends)
}

func TestExecuteDoesNotRetryLogicalRejection(t *testing.T) {
	rejection := errors.New("custom program error: 0x1770")
	signer := newTestSigner(t)
	client := &mockClient{sendErrs: []error{rejection, nil, nil, nil, nil}}
	pipe := newTestPipeline(client, signer, TierDevnet)

	outcome, err := pipe.Execute(context.Background(), []solana.Instruction{testInstruction(t, signer.Payer())})
	require.Error(t, err)
	assert.Equal(t, 1, client.sends, "logical rejections must not be retried")
	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, KindSlippage, KindOf(err))
}

func TestExecuteFreshBlockhashPerAttempt(t *testing.T) {
	transient := errors.New("connection reset")
	signer := newTestSigner(t)
	client := &mockClient{sendErrs: []error{transient, transient, nil}}
	pipe := newTestPipeline(client, signer, TierDevnet)

	_, err := pipe.Execute(context.Background(), []solana.Instruction{testInstruction(t, signer.Payer())})
	require.NoError(t, err)

	require.Len(t, client.sentBlockhash, 3)
	seen := make(map[solana.Hash]bool)
	for _, h := range client.sentBlockhash {
		assert.False(t, seen[h], "every attempt must sign with a fresh blockhash")
		seen[h] = true
	}
}

func TestExecuteBackoffDoubles(t *testing.T) {
	transient := errors.New("rpc timeout")
	signer := newTestSigner(t)
	client := &mockClient{sendErrs: []error{transient, transient, transient, nil}}

	var delays []time.Duration
	pipe := newTestPipeline(client, signer, TierDevnet,
		WithBaseDelay(4*time.Millisecond),
		WithNotify(func(err error, next time.Duration) {
			delays = append(delays, next)
		}))

	_, err := pipe.Execute(context.Background(), []solana.Instruction{testInstruction(t, signer.Payer())})
	require.NoError(t, err)

	// Delays only between failed attempts, each double the previous.
	require.Len(t, delays, 3)
	assert.Equal(t, 4*time.Millisecond, delays[0])
	assert.Equal(t, 8*time.Millisecond, delays[1])
	assert.Equal(t, 16*time.Millisecond, delays[2])
}

func TestExecuteConfirmTimeoutFallbackConfirms(t *testing.T) {
	signer := newTestSigner(t)
	client := &mockClient{
		confirmErrs: []error{chain.ErrConfirmationTimeout},
		statusValue: &rpc.SignatureStatusesResult{
			ConfirmationStatus: rpc.ConfirmationStatusFinalized,
		},
	}
	pipe := newTestPipeline(client, signer, TierDevnet)

	outcome, err := pipe.Execute(context.Background(), []solana.Instruction{testInstruction(t, signer.Payer())})
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, outcome.State)
	assert.Equal(t, 1, outcome.Attempts)
}

func TestExecuteAmbiguousTimeoutIsTerminal(t *testing.T) {
	signer := newTestSigner(t)
	client := &mockClient{
		confirmErrs: []error{chain.ErrConfirmationTimeout, chain.ErrConfirmationTimeout},
		statusValue: nil, // fallback query is inconclusive too
	}
	pipe := newTestPipeline(client, signer, TierDevnet)

	outcome, err := pipe.Execute(context.Background(), []solana.Instruction{testInstruction(t, signer.Payer())})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousTimeout)
	assert.Equal(t, StateUnconfirmed, outcome.State)
	assert.Equal(t, 1, client.sends, "an ambiguous submit must not be resubmitted")
	assert.False(t, outcome.Signature.IsZero(), "caller needs the signature to check the explorer")
	assert.Equal(t, KindUnconfirmed, KindOf(err))
}

func TestClassifySendError(t *testing.T) {
	cases := []struct {
		msg  string
		kind ErrorKind
	}{
		{"Program log: ExceededSlippage", KindSlippage},
		{"custom program error: 0x1771", KindDisproportionate},
		{"custom program error: 0x1772", KindZeroAmount},
		{"custom program error: 0x1773", KindMismatchedMint},
		{"signature verification failure", KindUnauthorized},
	}
	for _, tc := range cases {
		err := ClassifySendError(errors.New(tc.msg))
		var onChain *OnChainError
		require.ErrorAs(t, err, &onChain, tc.msg)
		assert.Equal(t, tc.kind, onChain.Kind, tc.msg)
		assert.False(t, IsRetryable(err), tc.msg)
	}

	transient := ClassifySendError(fmt.Errorf("read tcp: connection reset"))
	assert.True(t, IsRetryable(transient))
	assert.Equal(t, KindTransient, KindOf(transient))
}
