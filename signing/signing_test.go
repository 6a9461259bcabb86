package signing

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/x402-transfer/types"
)

const testEVMKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestForNetwork(t *testing.T) {
	s, err := ForNetwork(types.NetworkBaseSepolia)
	require.NoError(t, err)
	require.IsType(t, EVMSigner{}, s)

	s, err = ForNetwork(types.NetworkSolanaDevnet)
	require.NoError(t, err)
	require.IsType(t, AccountModelSigner{}, s)

	_, err = ForNetwork(types.Network("cosmoshub"))
	require.Error(t, err)
	require.Equal(t, types.ErrUnsupportedNetwork, types.ErrorCode(err))
}

func TestEVMDeriveAddress(t *testing.T) {
	addr, err := EVMSigner{}.DeriveAddress([]byte(testEVMKey))
	require.NoError(t, err)
	require.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", addr)

	// 0x prefix and surrounding whitespace are tolerated.
	addr2, err := EVMSigner{}.DeriveAddress([]byte(" 0x" + testEVMKey + "\n"))
	require.NoError(t, err)
	require.Equal(t, addr, addr2)
}

func TestEVMDeriveAddressRejectsBadKeyWithoutEchoingIt(t *testing.T) {
	secret := "deadbeef-not-a-key"
	_, err := EVMSigner{}.DeriveAddress([]byte(secret))
	require.Error(t, err)
	require.Equal(t, types.ErrInvalidKey, types.ErrorCode(err))
	require.NotContains(t, err.Error(), secret)
}

func TestEVMSign(t *testing.T) {
	intent := &types.TransferIntent{
		Network: types.NetworkBaseSepolia,
		Asset:   types.NativeAsset(types.NetworkBaseSepolia),
		From:    "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		To:      "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Amount:  types.Amount{Raw: big.NewInt(1_000_000), Decimals: 18},
		EVM: &types.EVMTxData{
			ChainID:  big.NewInt(84532),
			Nonce:    0,
			GasLimit: 21000,
			GasPrice: big.NewInt(1_000_000_000),
			To:       "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
			Value:    big.NewInt(1_000_000),
		},
	}

	signed, err := EVMSigner{}.Sign(intent, []byte(testEVMKey))
	require.NoError(t, err)

	require.Equal(t, types.NetworkBaseSepolia, signed.Network)
	require.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", signed.Sender)
	require.NotEmpty(t, signed.Raw)
	require.True(t, strings.HasPrefix(signed.Hash, "0x"))
}

func TestEVMSignRequiresDescriptor(t *testing.T) {
	_, err := EVMSigner{}.Sign(&types.TransferIntent{}, []byte(testEVMKey))
	require.Error(t, err)
	require.Equal(t, types.ErrBuildError, types.ErrorCode(err))
}

func TestAccountModelKeyEncodings(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	want := priv.PublicKey().String()

	base58Addr, err := AccountModelSigner{}.DeriveAddress([]byte(priv.String()))
	require.NoError(t, err)
	require.Equal(t, want, base58Addr)

	ints := make([]int, len(priv))
	for i, b := range priv {
		ints[i] = int(b)
	}
	jsonKey, err := json.Marshal(ints)
	require.NoError(t, err)

	jsonAddr, err := AccountModelSigner{}.DeriveAddress(jsonKey)
	require.NoError(t, err)
	require.Equal(t, want, jsonAddr)
}

// A 32-byte seed in any encoding must be expanded to the full ed25519 key,
// matching what wallet exports that store only the seed expect.
func TestAccountModelKeySeedEncodings(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	want := priv.PublicKey().String()
	seed := []byte(priv[:32])

	hexAddr, err := AccountModelSigner{}.DeriveAddress([]byte(hex.EncodeToString(seed)))
	require.NoError(t, err)
	require.Equal(t, want, hexAddr)

	ints := make([]int, len(seed))
	for i, b := range seed {
		ints[i] = int(b)
	}
	jsonSeed, err := json.Marshal(ints)
	require.NoError(t, err)

	jsonAddr, err := AccountModelSigner{}.DeriveAddress(jsonSeed)
	require.NoError(t, err)
	require.Equal(t, want, jsonAddr)
}

func TestAccountModelKeyRejectsBadLengths(t *testing.T) {
	for _, key := range []string{
		"deadbeef",               // 4-byte hex
		hexKeyOfLen(16),          // too short for a seed
		hexKeyOfLen(48),          // between seed and full key
		"[1, 2, 3]",              // 3-byte JSON array
		"3Mc6vR",                 // base58 of a few bytes
		"not a key in any shape", //
	} {
		addr, err := AccountModelSigner{}.DeriveAddress([]byte(key))
		require.Error(t, err, key)
		require.Equal(t, types.ErrInvalidKey, types.ErrorCode(err), key)
		require.Empty(t, addr, key)
	}
}

func hexKeyOfLen(n int) string {
	return hex.EncodeToString(make([]byte, n))
}

func TestAccountModelKeyRejectsOutOfRangeJSON(t *testing.T) {
	_, err := AccountModelSigner{}.DeriveAddress([]byte("[1, 2, 300]"))
	require.Error(t, err)
	require.Equal(t, types.ErrInvalidKey, types.ErrorCode(err))
}

func TestAccountModelSignRequiresDescriptor(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	_, err = AccountModelSigner{}.Sign(&types.TransferIntent{}, []byte(priv.String()))
	require.Error(t, err)
	require.Equal(t, types.ErrBuildError, types.ErrorCode(err))
}
