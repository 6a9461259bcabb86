package verification

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitwit/x402-transfer/types"
)

func snap(sender, receiver int64) *Snapshot {
	return &Snapshot{Sender: big.NewInt(sender), Receiver: big.NewInt(receiver)}
}

func confirmed() *types.TransferReceipt {
	return &types.TransferReceipt{TxID: "0xabc", Confirmed: true, Height: 42}
}

func TestClassifyExact(t *testing.T) {
	res := Classify(snap(1000, 0), snap(900, 100), big.NewInt(100), 6, confirmed())

	require.Equal(t, OutcomeExact, res.Outcome)
	require.Equal(t, int64(100), res.Deducted.Int64())
	require.Equal(t, int64(100), res.Received.Int64())
	require.Equal(t, "0.0001", res.DeductedHuman)
}

func TestClassifyExactWithFee(t *testing.T) {
	// Native transfers deduct amount plus fee from the sender; the receiver
	// delta is what must match exactly.
	res := Classify(snap(1000, 0), snap(880, 100), big.NewInt(100), 9, confirmed())

	require.Equal(t, OutcomeExact, res.Outcome)
	require.Equal(t, int64(120), res.Deducted.Int64())
	require.Equal(t, int64(100), res.Received.Int64())
}

func TestClassifyMismatch(t *testing.T) {
	res := Classify(snap(1000, 0), snap(900, 90), big.NewInt(100), 6, confirmed())

	require.Equal(t, OutcomeMismatch, res.Outcome)
	require.Equal(t, int64(90), res.Received.Int64())
}

func TestClassifyReceivedMoreThanDeducted(t *testing.T) {
	// A receiver delta matching the request but exceeding the sender's
	// deduction cannot be this transfer's doing.
	res := Classify(snap(1000, 0), snap(950, 100), big.NewInt(100), 6, confirmed())

	require.Equal(t, OutcomeMismatch, res.Outcome)
}

func TestClassifyUnconfirmed(t *testing.T) {
	for _, receipt := range []*types.TransferReceipt{
		nil,
		{TxID: "0xabc", Confirmed: false},
	} {
		res := Classify(snap(1000, 0), snap(1000, 0), big.NewInt(100), 6, receipt)

		require.Equal(t, OutcomeUnconfirmed, res.Outcome)
		require.Nil(t, res.Deducted)
		require.Nil(t, res.Received)
	}
}
