package utils

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/vitwit/x402-transfer/types"
)

// ToRaw converts a human decimal string into raw minor units for the given
// token decimals. The conversion is exact: inputs with more fractional digits
// than decimals allows are rejected rather than rounded, since silent rounding
// would under- or over-pay. Zero and negative amounts are rejected outright;
// this flow never permits a zero-value transfer.
func ToRaw(human string, decimals uint8) (*big.Int, error) {
	if human == "" {
		return nil, types.NewTransferError(types.ErrInvalidAmount, "amount cannot be empty")
	}

	d, err := decimal.NewFromString(human)
	if err != nil {
		return nil, types.NewTransferError(types.ErrInvalidAmount, "invalid amount format: %q", human)
	}

	if d.Sign() <= 0 {
		return nil, types.NewTransferError(types.ErrInvalidAmount, "amount must be greater than zero: %q", human)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, types.NewTransferError(
			types.ErrInvalidAmount,
			"amount %q has more fractional digits than the asset's %d decimals allow",
			human, decimals,
		)
	}

	return scaled.BigInt(), nil
}

// ToHuman renders raw minor units as an exact human decimal string.
func ToHuman(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}
