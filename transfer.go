// Package transfer implements a chain-agnostic value-transfer-and-verification
// flow: given a signing key, a recipient, and a human-readable amount, it
// builds a correctly-denominated transaction, submits it, waits for finality,
// and verifies the exact balance delta against the amount requested.
package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vitwit/x402-transfer/builder"
	"github.com/vitwit/x402-transfer/clients"
	"github.com/vitwit/x402-transfer/logger"
	"github.com/vitwit/x402-transfer/metrics"
	"github.com/vitwit/x402-transfer/signing"
	"github.com/vitwit/x402-transfer/types"
	"github.com/vitwit/x402-transfer/verification"
)

// Stage names the states of the transfer flow. Transitions are strictly
// sequential; a failure at any stage halts the flow with that stage recorded.
type Stage string

const (
	StageValidating           Stage = "validating"
	StageBalanceChecked       Stage = "balance_checked"
	StageBuilt                Stage = "built"
	StageSigned               Stage = "signed"
	StageSubmitted            Stage = "submitted"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
	StageVerified             Stage = "verified"
	StageFailed               Stage = "failed"
	// StageTimedOut is terminal but non-definitive: the transaction may still
	// confirm after the flow gives up waiting.
	StageTimedOut Stage = "timed_out"
)

// Request carries one transfer invocation. PrivateKey is borrowed for the
// run and never retained or logged.
type Request struct {
	Asset       types.Asset `validate:"required"`
	To          string      `validate:"required"`
	HumanAmount string      `validate:"required"`
	PrivateKey  []byte      `validate:"required,gt=0"`

	// From optionally declares the sender. The address derived from the key
	// is authoritative; a mismatch is logged and the flow proceeds.
	From string
}

// Result is the terminal report of a run. TxID is populated from submission
// onward, since funds may have moved even when a later stage fails.
type Result struct {
	Stage        Stage                  `json:"stage"`
	FailedAt     Stage                  `json:"failedAt,omitempty"`
	TxID         string                 `json:"txId,omitempty"`
	Receipt      *types.TransferReceipt `json:"receipt,omitempty"`
	Verification *verification.Result   `json:"verification,omitempty"`
}

var validate = validator.New()

// Flow composes the ledger client, builder, signer, and verifier for one
// network, fixed at construction.
type Flow struct {
	client   clients.LedgerClient
	builder  *builder.Builder
	signer   signing.Signer
	verifier *verification.Verifier

	log            logger.Logger
	metrics        metrics.Recorder
	confirmTimeout time.Duration
}

// New wires a flow around a connected ledger client.
func New(client clients.LedgerClient, opts ...Option) (*Flow, error) {
	f := &Flow{
		client:         client,
		log:            logger.NoopLogger{},
		metrics:        metrics.NoopRecorder{},
		confirmTimeout: clients.DefaultConfirmTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.signer == nil {
		s, err := signing.ForNetwork(client.Network())
		if err != nil {
			return nil, err
		}
		f.signer = s
	}

	f.builder = builder.New(client, f.log)
	f.verifier = verification.New(client, f.log)
	return f, nil
}

// Run drives the state machine to a terminal state. Nothing is retried
// automatically: a retry is a fresh Run, which re-validates and fetches a
// fresh sequence number by rebuilding the intent from scratch.
func (f *Flow) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Stage: StageValidating}
	network := f.client.Network().String()

	// Validating
	start := time.Now()
	sender, err := f.validateRequest(req)
	if err != nil {
		return f.fail(res, StageValidating, err)
	}
	f.observe(StageValidating, start, network)

	// BalanceChecked: the pre-transfer snapshot doubles as the balance probe.
	start = time.Now()
	before, err := f.verifier.Snapshot(ctx, req.Asset, sender, req.To)
	if err != nil {
		return f.fail(res, StageBalanceChecked, err)
	}
	res.Stage = StageBalanceChecked
	f.observe(StageBalanceChecked, start, network)

	// Built
	start = time.Now()
	intent, err := f.builder.Build(ctx, builder.Request{
		Asset:       req.Asset,
		From:        sender,
		To:          req.To,
		HumanAmount: req.HumanAmount,
	})
	if err != nil {
		return f.fail(res, StageBuilt, err)
	}
	res.Stage = StageBuilt
	f.observe(StageBuilt, start, network)

	// Signed
	start = time.Now()
	signed, err := f.signer.Sign(intent, req.PrivateKey)
	if err != nil {
		return f.fail(res, StageSigned, err)
	}
	res.Stage = StageSigned
	f.observe(StageSigned, start, network)

	// Submitted: from here on every outcome carries the transaction id.
	start = time.Now()
	txID, err := f.client.Submit(ctx, signed)
	if err != nil {
		return f.fail(res, StageSubmitted, err)
	}
	res.Stage = StageSubmitted
	res.TxID = txID
	f.observe(StageSubmitted, start, network)
	f.log.Info("transaction submitted", map[string]any{
		"network": network,
		"txId":    txID,
	})

	// AwaitingConfirmation
	start = time.Now()
	res.Stage = StageAwaitingConfirmation
	receipt, err := f.client.AwaitConfirmation(ctx, txID, f.confirmTimeout)
	f.observe(StageAwaitingConfirmation, start, network)
	if err != nil {
		if types.ErrorCode(err) == types.ErrConfirmationTimeout {
			res.Stage = StageTimedOut
			res.Verification = &verification.Result{Outcome: verification.OutcomeUnconfirmed}
			f.count("confirmation_timeout", network)
			f.log.Warn("confirmation timed out; transaction may still land", map[string]any{
				"network": network,
				"txId":    txID,
			})
			return res, err
		}
		return f.fail(res, StageAwaitingConfirmation, err)
	}
	res.Receipt = receipt
	if !receipt.Confirmed {
		return f.fail(res, StageAwaitingConfirmation, types.NewTransferError(
			types.ErrSubmissionError, "transaction %s failed on chain: %s", txID, receipt.FailureReason))
	}

	// Verified
	start = time.Now()
	after, err := f.verifier.Snapshot(ctx, intent.Asset, intent.From, intent.To)
	if err != nil {
		return f.fail(res, StageVerified, err)
	}
	outcome := verification.Classify(before, after, intent.Amount.Raw, intent.Amount.Decimals, receipt)
	res.Verification = outcome
	f.observe(StageVerified, start, network)

	if outcome.Outcome != verification.OutcomeExact {
		f.count("verification_mismatch", network)
		return f.fail(res, StageVerified, types.NewTransferError(
			types.ErrVerificationMismatch,
			"transaction %s landed but receiver delta %s differs from requested %s",
			txID, outcome.Received, intent.Amount.Raw))
	}

	res.Stage = StageVerified
	f.count("transfer_verified", network)
	f.log.Info("transfer verified", map[string]any{
		"network":  network,
		"txId":     txID,
		"deducted": outcome.DeductedHuman,
		"received": outcome.ReceivedHuman,
	})
	return res, nil
}

// validateRequest checks inputs and resolves the authoritative sender address
// from the signing key.
func (f *Flow) validateRequest(req Request) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", requestError(err)
	}

	derived, err := f.signer.DeriveAddress(req.PrivateKey)
	if err != nil {
		return "", err
	}

	if req.From != "" {
		declared, err := f.client.NormalizeAddress(req.From)
		if err != nil {
			return "", err
		}
		if declared != derived {
			// Recoverable: the key decides who signs, the declared sender is
			// only advisory.
			f.count("key_mismatch", f.client.Network().String())
			f.log.Warn("private key does not match declared sender; using derived address", map[string]any{
				"declared": declared,
				"derived":  derived,
				"code":     types.ErrKeyMismatch,
			})
		}
	}
	return derived, nil
}

// requestError maps a struct-validation failure to the taxonomy code of the
// first failing field, so a missing recipient or key is not reported as an
// amount problem.
func requestError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "To":
			return types.NewTransferError(types.ErrInvalidAddress, "invalid request: %v", err)
		case "PrivateKey":
			return types.NewTransferError(types.ErrInvalidKey, "invalid request: missing private key")
		}
	}
	return types.NewTransferError(types.ErrInvalidAmount, "invalid request: %v", err)
}

func (f *Flow) fail(res *Result, stage Stage, err error) (*Result, error) {
	res.Stage = StageFailed
	res.FailedAt = stage
	f.count("stage_failed", f.client.Network().String())
	fields := map[string]any{
		"stage":   string(stage),
		"network": f.client.Network().String(),
		"error":   err.Error(),
	}
	if res.TxID != "" {
		fields["txId"] = res.TxID
	}
	f.log.Error("transfer flow halted", fields)
	return res, err
}

func (f *Flow) observe(stage Stage, start time.Time, network string) {
	f.metrics.ObserveLatency(string(stage), time.Since(start), map[string]string{"network": network})
}

func (f *Flow) count(event, network string) {
	f.metrics.IncCounter(event, map[string]string{"network": network})
}
