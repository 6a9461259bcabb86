package builder

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitwit/x402-transfer/types"
)

// buildStub fakes the ledger interactions Build needs: normalization, token
// metadata, intent assembly, and the sender's native balance.
type buildStub struct {
	nativeBalance *big.Int
	decimals      uint8
	builtRaw      *big.Int
	builtAsset    types.Asset
	tokenCalls    int
}

func (s *buildStub) Network() types.Network { return types.NetworkBase }

func (s *buildStub) NormalizeAddress(address string) (string, error) {
	if address == "" {
		return "", types.NewTransferError(types.ErrInvalidAddress, "empty address")
	}
	return address, nil
}

func (s *buildStub) NativeBalance(context.Context, string) (*big.Int, error) {
	return new(big.Int).Set(s.nativeBalance), nil
}

func (s *buildStub) TokenBalance(context.Context, string, types.Asset) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (s *buildStub) TokenMetadata(context.Context, types.Asset) (*types.TokenMetadata, error) {
	s.tokenCalls++
	return &types.TokenMetadata{Decimals: s.decimals, Symbol: "USDC"}, nil
}

func (s *buildStub) NextSequence(context.Context, string) (uint64, error) { return 0, nil }

func (s *buildStub) BuildNativeTransfer(_ context.Context, from, to string, raw *big.Int) (*types.TransferIntent, error) {
	s.builtRaw = raw
	return &types.TransferIntent{
		Network: s.Network(),
		Asset:   types.NativeAsset(s.Network()),
		From:    from,
		To:      to,
		Amount:  types.Amount{Raw: raw, Decimals: 18},
		EVM:     &types.EVMTxData{GasLimit: 21000, GasPrice: big.NewInt(0)},
	}, nil
}

func (s *buildStub) BuildTokenTransfer(_ context.Context, asset types.Asset, from, to string, raw *big.Int) (*types.TransferIntent, error) {
	s.builtRaw = raw
	s.builtAsset = asset
	return &types.TransferIntent{
		Network: s.Network(),
		Asset:   asset,
		From:    from,
		To:      to,
		Amount:  types.Amount{Raw: raw, Decimals: asset.Decimals},
		EVM:     &types.EVMTxData{GasLimit: 200000, GasPrice: big.NewInt(0)},
	}, nil
}

func (s *buildStub) Submit(context.Context, *types.SignedTransaction) (string, error) {
	return "", nil
}

func (s *buildStub) AwaitConfirmation(context.Context, string, time.Duration) (*types.TransferReceipt, error) {
	return nil, nil
}

func (s *buildStub) Close() {}

// Token decimals must come from the ledger, not from whatever the caller put
// on the asset.
func TestBuildResolvesTokenDecimalsFromLedger(t *testing.T) {
	stub := &buildStub{nativeBalance: big.NewInt(1_000_000), decimals: 6}
	b := New(stub, nil)

	asset := types.FungibleToken("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	asset.Decimals = 18 // wrong on purpose

	intent, err := b.Build(context.Background(), Request{
		Asset:       asset,
		From:        "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		To:          "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		HumanAmount: "1.5",
	})
	require.NoError(t, err)

	require.Equal(t, 1, stub.tokenCalls)
	require.Equal(t, uint8(6), stub.builtAsset.Decimals)
	require.Equal(t, "1500000", stub.builtRaw.String())
	require.Equal(t, "USDC", intent.Asset.Symbol)
}

func TestBuildNativeSkipsMetadataLookup(t *testing.T) {
	stub := &buildStub{nativeBalance: big.NewInt(2_000_000), decimals: 6}
	b := New(stub, nil)

	_, err := b.Build(context.Background(), Request{
		Asset:       types.NativeAsset(types.NetworkBase),
		From:        "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		To:          "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		HumanAmount: "0.000000000001",
	})
	require.NoError(t, err)
	require.Zero(t, stub.tokenCalls)
}

func TestBuildInsufficientNativeBalance(t *testing.T) {
	stub := &buildStub{nativeBalance: big.NewInt(10), decimals: 6}
	b := New(stub, nil)

	_, err := b.Build(context.Background(), Request{
		Asset:       types.NativeAsset(types.NetworkBase),
		From:        "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		To:          "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		HumanAmount: "1",
	})
	require.Error(t, err)
	require.Equal(t, types.ErrInsufficientBalance, types.ErrorCode(err))
}

func TestBuildRejectsBadAddress(t *testing.T) {
	stub := &buildStub{nativeBalance: big.NewInt(10), decimals: 6}
	b := New(stub, nil)

	_, err := b.Build(context.Background(), Request{
		Asset:       types.NativeAsset(types.NetworkBase),
		From:        "",
		To:          "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		HumanAmount: "1",
	})
	require.Error(t, err)
	require.Equal(t, types.ErrInvalidAddress, types.ErrorCode(err))
}
