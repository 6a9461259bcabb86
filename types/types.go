package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// AssetKind distinguishes a chain's base currency from contract-issued tokens.
type AssetKind string

const (
	AssetNative        AssetKind = "native"
	AssetFungibleToken AssetKind = "token"
)

// Asset identifies what is being transferred. For fungible tokens Address holds
// the ERC-20 contract or SPL mint address; for native assets it is empty.
// Symbol is a display string and is never authoritative.
type Asset struct {
	Kind     AssetKind `json:"kind" validate:"required"`
	Address  string    `json:"address,omitempty"`
	Decimals uint8     `json:"decimals,omitempty"`
	Symbol   string    `json:"symbol,omitempty"`
}

// NativeAsset returns the base-currency asset for a network.
func NativeAsset(network Network) Asset {
	return Asset{
		Kind:     AssetNative,
		Decimals: NativeDecimals[network],
		Symbol:   NativeSymbols[network],
	}
}

// FungibleToken returns a token asset for a contract or mint address.
// Decimals are resolved later from the ledger; the zero value here means unknown.
func FungibleToken(address string) Asset {
	return Asset{Kind: AssetFungibleToken, Address: address}
}

func (a Asset) IsNative() bool {
	return a.Kind == AssetNative
}

// TokenMetadata is the on-chain metadata of a fungible token.
type TokenMetadata struct {
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

// Amount is an exact asset quantity: an arbitrary-precision integer of raw
// (minor) units plus the decimals that scale it to the human representation.
type Amount struct {
	Raw      *big.Int `json:"raw"`
	Decimals uint8    `json:"decimals"`
}

// Human renders the amount as an exact decimal string, never via floating point.
func (a Amount) Human() string {
	if a.Raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(a.Raw, -int32(a.Decimals)).String()
}

func (a Amount) String() string {
	return fmt.Sprintf("%s (raw %s, decimals %d)", a.Human(), a.Raw, a.Decimals)
}

// EVMTxData is the unsigned transaction descriptor for account/nonce EVM chains.
type EVMTxData struct {
	ChainID  *big.Int
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
	To       string
	Value    *big.Int
	Data     []byte
}

// Fee returns the worst-case fee in wei for this descriptor.
func (d *EVMTxData) Fee() *big.Int {
	if d.GasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(d.GasPrice, new(big.Int).SetUint64(d.GasLimit))
}

// AccountModelTxData is the unsigned transaction descriptor for account-model
// (Solana-style) chains. UnsignedTx holds the serialized transaction with an
// empty signature slot; it is decoded again at signing time.
type AccountModelTxData struct {
	UnsignedTx      []byte
	RecentBlockhash string
	// CreatesTokenAccount is set when the transfer includes creation of the
	// recipient's associated token account.
	CreatesTokenAccount bool
	// FeeLamports is the estimated total cost in lamports: signature fees plus
	// rent for any token account being created.
	FeeLamports uint64
}

// TransferIntent is the immutable unit of work between builder, signer, and
// ledger client. Exactly one of EVM / AccountModel is populated.
type TransferIntent struct {
	Network Network
	Asset   Asset
	From    string
	To      string
	Amount  Amount

	EVM          *EVMTxData
	AccountModel *AccountModelTxData
}

// FeeEstimate returns the intent's worst-case fee in native raw units.
func (t *TransferIntent) FeeEstimate() *big.Int {
	switch {
	case t.EVM != nil:
		return t.EVM.Fee()
	case t.AccountModel != nil:
		return new(big.Int).SetUint64(t.AccountModel.FeeLamports)
	default:
		return new(big.Int)
	}
}

// SignedTransaction is an opaque chain-specific signed payload. Ownership moves
// to the ledger client on submission; a payload must never be submitted twice.
type SignedTransaction struct {
	Network Network
	// Sender is the address derived from the signing key, which is what the
	// remote ledger will debit regardless of what the caller declared.
	Sender string
	Raw    []byte
	Hash   string
}

// TransferReceipt is the terminal artifact of a submitted transfer. It is
// created once confirmation polling reaches a terminal state and never mutated.
type TransferReceipt struct {
	TxID      string `json:"txId"`
	Confirmed bool   `json:"confirmed"`
	// Height is the block height or slot the transaction finalized at.
	Height uint64 `json:"height,omitempty"`
	// FailureReason is set when the ledger reports the transaction as failed.
	FailureReason string `json:"failureReason,omitempty"`
}

// Error codes for the transfer flow
const (
	ErrInvalidAmount        = "INVALID_AMOUNT"
	ErrInvalidAddress       = "INVALID_ADDRESS"
	ErrInvalidKey           = "INVALID_KEY"
	ErrConnectionError      = "CONNECTION_ERROR"
	ErrInsufficientBalance  = "INSUFFICIENT_BALANCE"
	ErrKeyMismatch          = "KEY_MISMATCH"
	ErrBuildError           = "BUILD_ERROR"
	ErrSubmissionError      = "SUBMISSION_ERROR"
	ErrConfirmationTimeout  = "CONFIRMATION_TIMEOUT"
	ErrVerificationMismatch = "VERIFICATION_MISMATCH"
	ErrUnsupportedNetwork   = "UNSUPPORTED_NETWORK"
)

// TransferError is the error type surfaced by every component of the flow.
type TransferError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewTransferError builds a TransferError with a formatted message.
func NewTransferError(code, format string, args ...interface{}) *TransferError {
	return &TransferError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the taxonomy code from an error, or "" when the error is
// not a TransferError.
func ErrorCode(err error) string {
	var e *TransferError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
