// =================================
// File: internal/amm/state/state.go
// =================================
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solchat-labs/amm-engine/internal/chain"
)

// PoolRecordDiscriminator identifies pool accounts of the AMM program.
var PoolRecordDiscriminator = [8]byte{241, 154, 109, 4, 17, 177, 109, 188}

// ErrPoolNotFound means the pool account genuinely does not exist on chain.
// It is distinct from transient read failures: callers offer pool creation on
// this error and retry on anything else. Collapsing the two would either
// prompt the user to create an existing pool or hide a creatable one.
var ErrPoolNotFound = errors.New("pool not found")

// PoolRecord is the decoded on-chain pool account. Everything except the
// vault balances is immutable after creation.
type PoolRecord struct {
	Bump   uint8
	MintA  solana.PublicKey
	MintB  solana.PublicKey
	VaultA solana.PublicKey
	VaultB solana.PublicKey
}

// Reversed reports whether the caller's first-requested mint ended up as the
// pool's canonical B. When true, every reserve read, amount computation and
// instruction account list must swap the caller's A/B.
func (p *PoolRecord) Reversed(requestedFirst solana.PublicKey) bool {
	return !p.MintA.Equals(requestedFirst)
}

// DecodePoolRecord parses the raw pool account bytes.
func DecodePoolRecord(data []byte) (*PoolRecord, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("data too short for pool record")
	}
	for i := 0; i < 8; i++ {
		if data[i] != PoolRecordDiscriminator[i] {
			return nil, fmt.Errorf("invalid discriminator for pool record")
		}
	}
	var record PoolRecord
	if err := bin.NewBorshDecoder(data[8:]).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode pool record: %w", err)
	}
	return &record, nil
}

// Reader fetches pool records and vault balances through the network client.
type Reader struct {
	client chain.Client
	logger *zap.Logger

	readRetries uint
	retryDelay  time.Duration
}

func NewReader(client chain.Client, logger *zap.Logger) *Reader {
	return &Reader{
		client:      client,
		logger:      logger.Named("pool_state"),
		readRetries: 3,
		retryDelay:  500 * time.Millisecond,
	}
}

// ReadPool fetches and decodes the pool account. A missing account maps to
// ErrPoolNotFound immediately; transient read failures are retried a bounded
// number of times before surfacing.
func (r *Reader) ReadPool(ctx context.Context, poolAddress solana.PublicKey) (*PoolRecord, error) {
	operation := func() (*PoolRecord, error) {
		info, err := r.client.GetAccountInfo(ctx, poolAddress)
		if err != nil {
			if chain.IsNotFoundError(err) {
				// Definitive answer, not a failure to ask.
				return nil, backoff.Permanent(ErrPoolNotFound)
			}
			r.logger.Warn("Pool read failed, will retry",
				zap.String("pool", poolAddress.String()),
				zap.Error(err))
			return nil, err
		}
		record, err := DecodePoolRecord(info.Value.Data.GetBinary())
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return record, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.retryDelay

	record, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(r.readRetries))
	if err != nil {
		if errors.Is(err, ErrPoolNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to read pool %s: %w", poolAddress, err)
	}
	return record, nil
}

// ReadVaultBalance returns the raw token balance of a reserve vault.
func (r *Reader) ReadVaultBalance(ctx context.Context, vault solana.PublicKey) (uint64, error) {
	amount, err := r.client.GetTokenAccountBalance(ctx, vault)
	if err != nil {
		if chain.IsNotFoundError(err) {
			// A pool's vault exists from creation; a missing vault means the
			// pool itself is missing.
			return 0, ErrPoolNotFound
		}
		return 0, fmt.Errorf("failed to read vault %s: %w", vault, err)
	}
	return amount, nil
}
