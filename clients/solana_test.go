package clients

import (
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

var (
	testFromOwner = solana.MustPublicKeyFromBase58("4Nd1mYvM4kTtsnTdsfBrVWrUwZ23BgQeJHsSCqJrXMDM")
	testToOwner   = solana.MustPublicKeyFromBase58("8FE27ioQh3T7o22QsYVT5Re8NnHFqmFNbdqwiF3ywuZQ")
	testMint      = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testBlockhash = solana.MustHashFromBase58("9bRDrYmyx7qd9RfFmopjoSYAwspLxoBtmg9zCsfCpYiG")
)

func decodeTx(t *testing.T, raw []byte) *solana.Transaction {
	t.Helper()
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)
	return tx
}

func TestAssembleNativeTransfer(t *testing.T) {
	d, err := assembleNativeTransfer(testFromOwner, testToOwner, 2_500_000_000, testBlockhash)
	require.NoError(t, err)

	require.Equal(t, uint64(lamportsPerSignature), d.FeeLamports)
	require.False(t, d.CreatesTokenAccount)
	require.Equal(t, testBlockhash.String(), d.RecentBlockhash)

	tx := decodeTx(t, d.UnsignedTx)
	require.Len(t, tx.Message.Instructions, 1)
	require.Equal(t, testFromOwner, tx.Message.AccountKeys[0])
}

func TestAssembleTokenTransfer(t *testing.T) {
	d, err := assembleTokenTransfer(tokenTransferParams{
		mint:         testMint,
		tokenProgram: solana.TokenProgramID,
		fromOwner:    testFromOwner,
		toOwner:      testToOwner,
		amount:       10_000,
		blockhash:    testBlockhash,
	})
	require.NoError(t, err)

	require.False(t, d.CreatesTokenAccount)
	require.Equal(t, uint64(lamportsPerSignature), d.FeeLamports)

	tx := decodeTx(t, d.UnsignedTx)
	require.Len(t, tx.Message.Instructions, 1)

	data := []byte(tx.Message.Instructions[0].Data)
	require.Len(t, data, 9)
	require.Equal(t, byte(3), data[0])
	require.Equal(t, uint64(10_000), binary.LittleEndian.Uint64(data[1:]))
}

// A transfer to a recipient without an existing token sub-account must carry
// the creation instruction and fold its rent into the fee estimate.
func TestAssembleTokenTransferCreatesRecipientAccount(t *testing.T) {
	const rent = uint64(2_039_280)

	d, err := assembleTokenTransfer(tokenTransferParams{
		mint:          testMint,
		tokenProgram:  solana.TokenProgramID,
		fromOwner:     testFromOwner,
		toOwner:       testToOwner,
		amount:        10_000,
		blockhash:     testBlockhash,
		createDestATA: true,
		rentLamports:  rent,
	})
	require.NoError(t, err)

	require.True(t, d.CreatesTokenAccount)
	require.Equal(t, uint64(lamportsPerSignature)+rent, d.FeeLamports)

	tx := decodeTx(t, d.UnsignedTx)
	require.Len(t, tx.Message.Instructions, 2)

	createProgram, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	require.Equal(t, solana.SPLAssociatedTokenAccountProgramID, createProgram)
}

func TestFindAssociatedTokenAddress(t *testing.T) {
	ata, _, err := findAssociatedTokenAddress(testFromOwner, testMint, solana.TokenProgramID)
	require.NoError(t, err)
	require.False(t, ata.IsZero())

	again, _, err := findAssociatedTokenAddress(testFromOwner, testMint, solana.TokenProgramID)
	require.NoError(t, err)
	require.Equal(t, ata, again)

	other, _, err := findAssociatedTokenAddress(testToOwner, testMint, solana.TokenProgramID)
	require.NoError(t, err)
	require.NotEqual(t, ata, other)
}
