package signing

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/vitwit/x402-transfer/types"
)

var _ Signer = AccountModelSigner{}

// AccountModelSigner signs account-model intents with an ed25519 key. The key
// is accepted in any of the wallet-export encodings in circulation: a JSON
// byte array, base58, or a hex seed.
type AccountModelSigner struct{}

func (AccountModelSigner) DeriveAddress(key []byte) (string, error) {
	priv, err := parseAccountModelKey(key)
	if err != nil {
		return "", err
	}
	return priv.PublicKey().String(), nil
}

func (AccountModelSigner) Sign(intent *types.TransferIntent, key []byte) (*types.SignedTransaction, error) {
	d := intent.AccountModel
	if d == nil {
		return nil, types.NewTransferError(types.ErrBuildError, "intent carries no account-model transaction descriptor")
	}

	priv, err := parseAccountModelKey(key)
	if err != nil {
		return nil, err
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(d.UnsignedTx))
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to decode unsigned transaction: %v", err)
	}

	signer := priv.PublicKey()
	if _, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(signer) {
			return &priv
		}
		return nil
	}); err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to sign transaction: %v", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to encode signed transaction: %v", err)
	}

	return &types.SignedTransaction{
		Network: intent.Network,
		Sender:  signer.String(),
		Raw:     raw,
		Hash:    tx.Signatures[0].String(),
	}, nil
}

func parseAccountModelKey(key []byte) (solana.PrivateKey, error) {
	s := strings.TrimSpace(string(key))

	if strings.HasPrefix(s, "[") {
		var arr []int
		if err := json.Unmarshal([]byte(s), &arr); err != nil {
			return nil, types.NewTransferError(types.ErrInvalidKey, "invalid JSON-array private key: %v", err)
		}
		b := make([]byte, len(arr))
		for i, v := range arr {
			if v < 0 || v > 255 {
				return nil, types.NewTransferError(types.ErrInvalidKey, "JSON-array private key holds a value outside the byte range")
			}
			b[i] = byte(v)
		}
		return keyFromBytes(b)
	}

	if raw, err := solana.PrivateKeyFromBase58(s); err == nil {
		if priv, err := keyFromBytes(raw); err == nil {
			return priv, nil
		}
	}

	if raw, err := hex.DecodeString(s); err == nil {
		return keyFromBytes(raw)
	}

	return nil, types.NewTransferError(types.ErrInvalidKey, "private key is not a JSON array, base58 string, or hex seed")
}

// keyFromBytes accepts a full 64-byte ed25519 key or a 32-byte seed, which is
// expanded. Any other length is rejected here rather than panicking downstream
// when the key is used.
func keyFromBytes(b []byte) (solana.PrivateKey, error) {
	switch len(b) {
	case ed25519.PrivateKeySize:
		return solana.PrivateKey(b), nil
	case ed25519.SeedSize:
		return solana.PrivateKey(ed25519.NewKeyFromSeed(b)), nil
	default:
		return nil, types.NewTransferError(types.ErrInvalidKey,
			"private key must be a 64-byte key or a 32-byte seed, got %d bytes", len(b))
	}
}
