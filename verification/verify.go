// Package verification checks that a confirmed transfer moved exactly the
// requested amount, by comparing balance snapshots taken before and after.
package verification

import (
	"context"
	"math/big"

	"github.com/vitwit/x402-transfer/clients"
	"github.com/vitwit/x402-transfer/logger"
	"github.com/vitwit/x402-transfer/types"
	"github.com/vitwit/x402-transfer/utils"
)

// Outcome classifies a verified transfer.
type Outcome string

const (
	// OutcomeExact: the receiver gained exactly the requested raw amount and
	// the sender lost at least that much, the difference being native fees.
	OutcomeExact Outcome = "exact"

	// OutcomeMismatch: the received delta differs from the requested amount.
	// This signals a downstream error such as wrong assumed decimals.
	OutcomeMismatch Outcome = "mismatch"

	// OutcomeUnconfirmed: confirmation timed out, so before/after deltas are
	// not meaningful and must not be reported as a definitive result.
	OutcomeUnconfirmed Outcome = "unconfirmed"
)

// Snapshot holds sender and receiver balances read in one pass.
type Snapshot struct {
	Sender   *big.Int
	Receiver *big.Int
}

// Result is the terminal verification verdict with raw and human deltas.
type Result struct {
	Outcome       Outcome  `json:"outcome"`
	Deducted      *big.Int `json:"deducted,omitempty"`
	Received      *big.Int `json:"received,omitempty"`
	DeductedHuman string   `json:"deductedHuman,omitempty"`
	ReceivedHuman string   `json:"receivedHuman,omitempty"`
}

// Verifier reads balance snapshots through a ledger client.
type Verifier struct {
	client clients.LedgerClient
	log    logger.Logger
}

func New(client clients.LedgerClient, log logger.Logger) *Verifier {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Verifier{client: client, log: log}
}

// Snapshot reads the sender's and receiver's balances of the asset.
func (v *Verifier) Snapshot(ctx context.Context, asset types.Asset, sender, receiver string) (*Snapshot, error) {
	senderBal, err := v.client.TokenBalance(ctx, sender, asset)
	if err != nil {
		return nil, err
	}
	receiverBal, err := v.client.TokenBalance(ctx, receiver, asset)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Sender: senderBal, Receiver: receiverBal}, nil
}

// Classify compares snapshots against the requested raw amount. A nil receipt
// means confirmation never reached a terminal state: no deltas are computed.
func Classify(before, after *Snapshot, requested *big.Int, decimals uint8, receipt *types.TransferReceipt) *Result {
	if receipt == nil || !receipt.Confirmed {
		return &Result{Outcome: OutcomeUnconfirmed}
	}

	deducted := new(big.Int).Sub(before.Sender, after.Sender)
	received := new(big.Int).Sub(after.Receiver, before.Receiver)

	res := &Result{
		Deducted:      deducted,
		Received:      received,
		DeductedHuman: utils.ToHuman(deducted, decimals),
		ReceivedHuman: utils.ToHuman(received, decimals),
	}

	if received.Cmp(requested) == 0 && deducted.Cmp(received) >= 0 {
		res.Outcome = OutcomeExact
	} else {
		res.Outcome = OutcomeMismatch
	}
	return res
}
