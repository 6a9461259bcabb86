package signing

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vitwit/x402-transfer/types"
)

var _ Signer = EVMSigner{}

// EVMSigner signs EVM transfer intents with a secp256k1 key supplied as a hex
// string (with or without 0x prefix).
type EVMSigner struct{}

func (EVMSigner) DeriveAddress(key []byte) (string, error) {
	priv, err := parseEVMKey(key)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}

func (EVMSigner) Sign(intent *types.TransferIntent, key []byte) (*types.SignedTransaction, error) {
	d := intent.EVM
	if d == nil {
		return nil, types.NewTransferError(types.ErrBuildError, "intent carries no EVM transaction descriptor")
	}

	priv, err := parseEVMKey(key)
	if err != nil {
		return nil, err
	}

	to := common.HexToAddress(d.To)
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    d.Nonce,
		GasPrice: d.GasPrice,
		Gas:      d.GasLimit,
		To:       &to,
		Value:    d.Value,
		Data:     d.Data,
	})

	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(d.ChainID), priv)
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to sign transaction: %v", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to encode signed transaction: %v", err)
	}

	return &types.SignedTransaction{
		Network: intent.Network,
		Sender:  crypto.PubkeyToAddress(priv.PublicKey).Hex(),
		Raw:     raw,
		Hash:    signed.Hash().Hex(),
	}, nil
}

func parseEVMKey(key []byte) (*ecdsa.PrivateKey, error) {
	hexKey := strings.TrimPrefix(strings.TrimSpace(string(key)), "0x")
	priv, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		// The key material itself must never appear in the error.
		return nil, types.NewTransferError(types.ErrInvalidKey, "invalid EVM private key: %v", err)
	}
	return priv, nil
}
