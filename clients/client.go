// Package clients provides ledger client implementations for the transfer flow.
package clients

import (
	"context"
	"math/big"
	"time"

	"github.com/vitwit/x402-transfer/types"
)

const (
	// DefaultConnectTimeout bounds the endpoint identity probe at construction.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultPollInterval is the confirmation polling cadence.
	DefaultPollInterval = 2 * time.Second

	// DefaultConfirmTimeout bounds confirmation polling when the caller does
	// not supply a budget.
	DefaultConfirmTimeout = 120 * time.Second
)

// LedgerClient is the capability interface over a remote ledger. The concrete
// implementation (EVM or account-model) is selected once at construction; flow
// code above this interface never branches on chain family.
type LedgerClient interface {
	Network() types.Network

	// NormalizeAddress validates an address and returns its canonical form
	// (checksum casing for EVM, base58 round-trip for account-model chains).
	// Normalization happens once at ingestion; all downstream comparisons use
	// the normalized form.
	NormalizeAddress(address string) (string, error)

	NativeBalance(ctx context.Context, account string) (*big.Int, error)

	// TokenBalance reads a fungible-token balance. On account-model chains a
	// missing derived token sub-account reads as zero, not as an error.
	TokenBalance(ctx context.Context, account string, asset types.Asset) (*big.Int, error)

	// TokenMetadata resolves on-chain token decimals and symbol. A decimals
	// lookup failure is an error here, never a silent default: callers that
	// only display balances may apply their own fallback, but nothing feeding
	// a transfer may.
	TokenMetadata(ctx context.Context, asset types.Asset) (*types.TokenMetadata, error)

	// NextSequence returns the remote ledger's ordering anchor for the account
	// (nonce for EVM, current slot for account-model chains). The value is
	// authoritative at call time only; a retried flow must fetch it again.
	NextSequence(ctx context.Context, account string) (uint64, error)

	BuildNativeTransfer(ctx context.Context, from, to string, raw *big.Int) (*types.TransferIntent, error)
	BuildTokenTransfer(ctx context.Context, asset types.Asset, from, to string, raw *big.Int) (*types.TransferIntent, error)

	// Submit broadcasts a signed payload and returns the transaction id. The
	// payload's ownership transfers to the ledger here: resubmitting the same
	// payload is rejected by the remote as a duplicate, never retried.
	Submit(ctx context.Context, tx *types.SignedTransaction) (string, error)

	// AwaitConfirmation polls until the transaction reaches a terminal state
	// or the timeout elapses. A timeout error (CONFIRMATION_TIMEOUT) is not a
	// transaction failure: the transfer may still land later.
	AwaitConfirmation(ctx context.Context, txID string, timeout time.Duration) (*types.TransferReceipt, error)

	Close()
}
