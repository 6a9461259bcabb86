// Package builder turns validated transfer inputs into unsigned intents.
package builder

import (
	"context"
	"math/big"

	"github.com/vitwit/x402-transfer/clients"
	"github.com/vitwit/x402-transfer/logger"
	"github.com/vitwit/x402-transfer/types"
	"github.com/vitwit/x402-transfer/utils"
)

// Request carries the caller-facing inputs of a transfer.
type Request struct {
	Asset types.Asset
	From  string
	To    string
	// HumanAmount is the decimal amount string in display units.
	HumanAmount string
}

// Builder performs the chain-independent pre-flight of a transfer: address
// normalization, authoritative decimals resolution, exact amount conversion,
// intent assembly through the ledger client, and an advisory balance check.
type Builder struct {
	client clients.LedgerClient
	log    logger.Logger
}

func New(client clients.LedgerClient, log logger.Logger) *Builder {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Builder{client: client, log: log}
}

// Build produces an immutable TransferIntent or fails before any network
// mutation. The balance check is advisory: remote execution stays
// authoritative, this only stops obviously-doomed submissions.
func (b *Builder) Build(ctx context.Context, req Request) (*types.TransferIntent, error) {
	from, err := b.client.NormalizeAddress(req.From)
	if err != nil {
		return nil, err
	}
	to, err := b.client.NormalizeAddress(req.To)
	if err != nil {
		return nil, err
	}

	asset := req.Asset
	if !asset.IsNative() {
		// Decimals come from the ledger, never from caller input or a guessed
		// default: a wrong assumption here moves the wrong amount of funds.
		meta, err := b.client.TokenMetadata(ctx, asset)
		if err != nil {
			return nil, err
		}
		asset.Decimals = meta.Decimals
		if asset.Symbol == "" {
			asset.Symbol = meta.Symbol
		}
	}

	raw, err := utils.ToRaw(req.HumanAmount, asset.Decimals)
	if err != nil {
		return nil, err
	}

	var intent *types.TransferIntent
	if asset.IsNative() {
		intent, err = b.client.BuildNativeTransfer(ctx, from, to, raw)
	} else {
		intent, err = b.client.BuildTokenTransfer(ctx, asset, from, to, raw)
	}
	if err != nil {
		return nil, err
	}

	if err := b.checkBalance(ctx, intent); err != nil {
		return nil, err
	}

	b.log.Debug("transfer intent built", map[string]any{
		"network": intent.Network.String(),
		"asset":   intent.Asset.Kind,
		"from":    intent.From,
		"to":      intent.To,
		"raw":     raw.String(),
		"fee":     intent.FeeEstimate().String(),
	})

	return intent, nil
}

// checkBalance verifies the sender can cover the native fee, plus the amount
// itself when the asset is native. Token balances are left to the remote
// ledger; fees are always paid in the native asset.
func (b *Builder) checkBalance(ctx context.Context, intent *types.TransferIntent) error {
	nativeBalance, err := b.client.NativeBalance(ctx, intent.From)
	if err != nil {
		return types.NewTransferError(types.ErrBuildError, "failed to read sender balance: %v", err)
	}

	required := intent.FeeEstimate()
	if intent.Asset.IsNative() {
		required = new(big.Int).Add(required, intent.Amount.Raw)
	}

	if nativeBalance.Cmp(required) < 0 {
		return types.NewTransferError(types.ErrInsufficientBalance,
			"sender %s holds %s native raw units, needs %s (amount plus fees)",
			intent.From, nativeBalance, required)
	}
	return nil
}
