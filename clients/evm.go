package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vitwit/x402-transfer/types"
)

var _ LedgerClient = (*EVMClient)(nil)

// Gas limits for simple transfers. 21000 is the fixed cost of a native value
// transfer; 200000 is a conservative ceiling for an ERC-20 transfer call.
const (
	evmNativeGasLimit = 21000
	evmTokenGasLimit  = 200000
)

const erc20ABIJSON = `
[
  {"constant": true, "inputs": [{"name": "_owner", "type": "address"}], "name": "balanceOf", "outputs": [{"name": "balance", "type": "uint256"}], "type": "function"},
  {"constant": true, "inputs": [], "name": "decimals", "outputs": [{"name": "", "type": "uint8"}], "type": "function"},
  {"constant": true, "inputs": [], "name": "symbol", "outputs": [{"name": "", "type": "string"}], "type": "function"},
  {"constant": false, "inputs": [{"name": "_to", "type": "address"}, {"name": "_value", "type": "uint256"}], "name": "transfer", "outputs": [{"name": "", "type": "bool"}], "type": "function"}
]
`

// EVMClient implements LedgerClient for account/nonce EVM chains.
type EVMClient struct {
	network      types.Network
	rpcURL       string
	client       *ethclient.Client
	chainID      *big.Int
	tokenABI     abi.ABI
	gasPrice     *big.Int
	pollInterval time.Duration
}

type EVMOption func(*EVMClient)

// WithEVMGasPrice overrides the gas price suggested by the endpoint.
func WithEVMGasPrice(price *big.Int) EVMOption {
	return func(e *EVMClient) {
		e.gasPrice = price
	}
}

// WithEVMPollInterval overrides the confirmation polling cadence.
func WithEVMPollInterval(d time.Duration) EVMOption {
	return func(e *EVMClient) {
		e.pollInterval = d
	}
}

// NewEVMClient connects to an EVM RPC endpoint and probes its chain identity.
// It fails fast with CONNECTION_ERROR when the endpoint is unreachable or
// returns no chain id within the connect timeout.
func NewEVMClient(network types.Network, rpcURL string, opts ...EVMOption) (*EVMClient, error) {
	if !network.IsEVM() {
		return nil, types.NewTransferError(types.ErrUnsupportedNetwork, "network %s is not an EVM network", network)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultConnectTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, types.NewTransferError(types.ErrConnectionError, "failed to connect to EVM RPC %s: %v", rpcURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, types.NewTransferError(types.ErrConnectionError, "EVM RPC %s returned no chain identity: %v", rpcURL, err)
	}

	tokenABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}

	e := &EVMClient{
		network:      network,
		rpcURL:       rpcURL,
		client:       client,
		chainID:      chainID,
		tokenABI:     tokenABI,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *EVMClient) Network() types.Network {
	return e.network
}

// NormalizeAddress returns the EIP-55 checksummed form of an address.
func (e *EVMClient) NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", types.NewTransferError(types.ErrInvalidAddress, "invalid EVM address: %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

func (e *EVMClient) NativeBalance(ctx context.Context, account string) (*big.Int, error) {
	balance, err := e.client.BalanceAt(ctx, common.HexToAddress(account), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get native balance for %s: %w", account, err)
	}
	return balance, nil
}

func (e *EVMClient) TokenBalance(ctx context.Context, account string, asset types.Asset) (*big.Int, error) {
	if asset.IsNative() {
		return e.NativeBalance(ctx, account)
	}

	out, err := e.callToken(ctx, asset.Address, "balanceOf", common.HexToAddress(account))
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance for %s: %w", account, err)
	}

	var balance *big.Int
	if err := e.tokenABI.UnpackIntoInterface(&balance, "balanceOf", out); err != nil {
		return nil, fmt.Errorf("failed to decode balanceOf result: %w", err)
	}
	return balance, nil
}

// TokenMetadata reads decimals and symbol from the token contract. A failed
// decimals call is surfaced as a build error; no default is assumed here.
func (e *EVMClient) TokenMetadata(ctx context.Context, asset types.Asset) (*types.TokenMetadata, error) {
	if asset.IsNative() {
		return &types.TokenMetadata{
			Decimals: types.NativeDecimals[e.network],
			Symbol:   types.NativeSymbols[e.network],
		}, nil
	}

	out, err := e.callToken(ctx, asset.Address, "decimals")
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "decimals lookup failed for token %s: %v", asset.Address, err)
	}
	var decimals uint8
	if err := e.tokenABI.UnpackIntoInterface(&decimals, "decimals", out); err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to decode decimals for token %s: %v", asset.Address, err)
	}

	// Symbol is display-only; a failed lookup falls back to a placeholder.
	symbol := "TOKEN"
	if out, err := e.callToken(ctx, asset.Address, "symbol"); err == nil {
		var s string
		if err := e.tokenABI.UnpackIntoInterface(&s, "symbol", out); err == nil {
			symbol = s
		}
	}

	return &types.TokenMetadata{Decimals: decimals, Symbol: symbol}, nil
}

func (e *EVMClient) NextSequence(ctx context.Context, account string) (uint64, error) {
	nonce, err := e.client.PendingNonceAt(ctx, common.HexToAddress(account))
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce for %s: %w", account, err)
	}
	return nonce, nil
}

func (e *EVMClient) BuildNativeTransfer(ctx context.Context, from, to string, raw *big.Int) (*types.TransferIntent, error) {
	nonce, gasPrice, err := e.txParams(ctx, from)
	if err != nil {
		return nil, err
	}

	return &types.TransferIntent{
		Network: e.network,
		Asset:   types.NativeAsset(e.network),
		From:    from,
		To:      to,
		Amount:  types.Amount{Raw: raw, Decimals: types.NativeDecimals[e.network]},
		EVM:     evmNativeTxData(e.chainID, nonce, gasPrice, to, raw),
	}, nil
}

func (e *EVMClient) BuildTokenTransfer(ctx context.Context, asset types.Asset, from, to string, raw *big.Int) (*types.TransferIntent, error) {
	nonce, gasPrice, err := e.txParams(ctx, from)
	if err != nil {
		return nil, err
	}

	data, err := e.tokenABI.Pack("transfer", common.HexToAddress(to), raw)
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to pack transfer calldata: %v", err)
	}

	return &types.TransferIntent{
		Network: e.network,
		Asset:   asset,
		From:    from,
		To:      to,
		Amount:  types.Amount{Raw: raw, Decimals: asset.Decimals},
		EVM:     evmTokenTxData(e.chainID, nonce, gasPrice, asset.Address, data),
	}, nil
}

// Submit broadcasts a signed raw transaction. A payload the chain has already
// accepted is reported as a duplicate submission, never retried.
func (e *EVMClient) Submit(ctx context.Context, tx *types.SignedTransaction) (string, error) {
	var signed ethtypes.Transaction
	if err := signed.UnmarshalBinary(tx.Raw); err != nil {
		return "", types.NewTransferError(types.ErrSubmissionError, "invalid signed transaction payload: %v", err)
	}

	if err := e.client.SendTransaction(ctx, &signed); err != nil {
		if isDuplicateSubmission(err) {
			return "", types.NewTransferError(types.ErrSubmissionError, "signed payload already submitted: %v", err)
		}
		return "", types.NewTransferError(types.ErrSubmissionError, "transaction rejected: %v", err)
	}
	return signed.Hash().Hex(), nil
}

func (e *EVMClient) AwaitConfirmation(ctx context.Context, txID string, timeout time.Duration) (*types.TransferReceipt, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	deadline := time.Now().Add(timeout)
	hash := common.HexToHash(txID)

	for {
		receipt, err := e.client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			out := &types.TransferReceipt{
				TxID:      txID,
				Confirmed: receipt.Status == ethtypes.ReceiptStatusSuccessful,
				Height:    receipt.BlockNumber.Uint64(),
			}
			if !out.Confirmed {
				out.FailureReason = "transaction reverted (status 0)"
			}
			return out, nil
		}

		if time.Now().After(deadline) {
			return nil, types.NewTransferError(types.ErrConfirmationTimeout,
				"transaction %s not confirmed within %s; it may still land later", txID, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}

func (e *EVMClient) Close() {
	e.client.Close()
}

func (e *EVMClient) txParams(ctx context.Context, from string) (uint64, *big.Int, error) {
	nonce, err := e.NextSequence(ctx, from)
	if err != nil {
		return 0, nil, types.NewTransferError(types.ErrBuildError, "sequence fetch failed: %v", err)
	}

	gasPrice := e.gasPrice
	if gasPrice == nil {
		gasPrice, err = e.client.SuggestGasPrice(ctx)
		if err != nil {
			return 0, nil, types.NewTransferError(types.ErrBuildError, "gas price fetch failed: %v", err)
		}
	}
	return nonce, gasPrice, nil
}

func (e *EVMClient) callToken(ctx context.Context, token string, method string, args ...interface{}) ([]byte, error) {
	data, err := e.tokenABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	contract := common.HexToAddress(token)
	return e.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
}

// evmNativeTxData assembles the unsigned descriptor for a native transfer.
func evmNativeTxData(chainID *big.Int, nonce uint64, gasPrice *big.Int, to string, value *big.Int) *types.EVMTxData {
	return &types.EVMTxData{
		ChainID:  chainID,
		Nonce:    nonce,
		GasLimit: evmNativeGasLimit,
		GasPrice: gasPrice,
		To:       to,
		Value:    value,
	}
}

// evmTokenTxData assembles the unsigned descriptor for an ERC-20 transfer
// call. Value is zero; the token amount travels in the calldata.
func evmTokenTxData(chainID *big.Int, nonce uint64, gasPrice *big.Int, token string, calldata []byte) *types.EVMTxData {
	return &types.EVMTxData{
		ChainID:  chainID,
		Nonce:    nonce,
		GasLimit: evmTokenGasLimit,
		GasPrice: gasPrice,
		To:       token,
		Value:    new(big.Int),
		Data:     calldata,
	}
}
