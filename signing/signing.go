// Package signing signs transfer intents. Private keys are accepted as call
// parameters only: nothing in this package stores, logs, or echoes a key.
package signing

import (
	"github.com/vitwit/x402-transfer/types"
)

// Signer signs a transfer intent with a caller-supplied private key. The key
// lives only for the duration of the call.
type Signer interface {
	// DeriveAddress returns the address the key actually controls. When it
	// differs from the intent's declared sender, the derived address is
	// authoritative, since that is what will sign.
	DeriveAddress(key []byte) (string, error)

	Sign(intent *types.TransferIntent, key []byte) (*types.SignedTransaction, error)
}

// ForNetwork selects the signer implementation for a network family, once at
// construction.
func ForNetwork(network types.Network) (Signer, error) {
	switch {
	case network.IsEVM():
		return EVMSigner{}, nil
	case network.IsAccountModel():
		return AccountModelSigner{}, nil
	default:
		return nil, types.NewTransferError(types.ErrUnsupportedNetwork, "no signer for network %s", network)
	}
}
