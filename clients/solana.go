package clients

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/vitwit/x402-transfer/types"
)

var _ LedgerClient = (*AccountModelClient)(nil)

const (
	// Base fee per transaction signature, in lamports.
	lamportsPerSignature = 5000

	// Serialized size of an SPL token account, used for rent estimation.
	tokenAccountDataSize = 165
)

// AccountModelClient implements LedgerClient for account-model chains with an
// associated-token-account scheme (Solana/SPL).
type AccountModelClient struct {
	network      types.Network
	rpcURL       string
	client       *rpc.Client
	pollInterval time.Duration

	// createRecipientTokenAccount controls whether a token transfer to a
	// recipient without an existing associated token account creates it as
	// part of the transfer, or fails fast at build time.
	createRecipientTokenAccount bool
}

type AccountModelOption func(*AccountModelClient)

// WithCreateRecipientTokenAccount makes token transfers create the recipient's
// associated token account when it does not exist yet. The creation cost is
// included in the intent's fee estimate.
func WithCreateRecipientTokenAccount() AccountModelOption {
	return func(c *AccountModelClient) {
		c.createRecipientTokenAccount = true
	}
}

// WithAccountModelPollInterval overrides the confirmation polling cadence.
func WithAccountModelPollInterval(d time.Duration) AccountModelOption {
	return func(c *AccountModelClient) {
		c.pollInterval = d
	}
}

// NewAccountModelClient connects to an RPC endpoint and probes its identity,
// failing fast with CONNECTION_ERROR within the connect timeout.
func NewAccountModelClient(network types.Network, rpcURL string, opts ...AccountModelOption) (*AccountModelClient, error) {
	if !network.IsAccountModel() {
		return nil, types.NewTransferError(types.ErrUnsupportedNetwork, "network %s is not an account-model network", network)
	}

	client := rpc.New(rpcURL)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultConnectTimeout)
	defer cancel()

	if _, err := client.GetVersion(ctx); err != nil {
		return nil, types.NewTransferError(types.ErrConnectionError, "failed to connect to RPC %s: %v", rpcURL, err)
	}

	c := &AccountModelClient{
		network:      network,
		rpcURL:       rpcURL,
		client:       client,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *AccountModelClient) Network() types.Network {
	return c.network
}

// NormalizeAddress validates base58 encoding and returns the canonical form.
func (c *AccountModelClient) NormalizeAddress(address string) (string, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return "", types.NewTransferError(types.ErrInvalidAddress, "invalid base58 address %q: %v", address, err)
	}
	return pk.String(), nil
}

func (c *AccountModelClient) NativeBalance(ctx context.Context, account string) (*big.Int, error) {
	pk, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return nil, types.NewTransferError(types.ErrInvalidAddress, "invalid base58 address %q: %v", account, err)
	}

	out, err := c.client.GetBalance(ctx, pk, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance for %s: %w", account, err)
	}
	return new(big.Int).SetUint64(out.Value), nil
}

// TokenBalance reads the balance of the owner's derived token sub-account. An
// absent sub-account reads as zero.
func (c *AccountModelClient) TokenBalance(ctx context.Context, account string, asset types.Asset) (*big.Int, error) {
	if asset.IsNative() {
		return c.NativeBalance(ctx, account)
	}

	owner, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return nil, types.NewTransferError(types.ErrInvalidAddress, "invalid base58 address %q: %v", account, err)
	}
	mint, err := solana.PublicKeyFromBase58(asset.Address)
	if err != nil {
		return nil, types.NewTransferError(types.ErrInvalidAddress, "invalid mint address %q: %v", asset.Address, err)
	}

	program, _, err := c.mintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}

	ata, _, err := findAssociatedTokenAddress(owner, mint, program)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token account: %w", err)
	}

	out, err := c.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentFinalized)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) || strings.Contains(err.Error(), "could not find account") {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("failed to get token balance: %w", err)
	}
	if out.Value == nil || out.Value.Amount == "" {
		return new(big.Int), nil
	}

	raw, ok := new(big.Int).SetString(out.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("unparseable token balance %q", out.Value.Amount)
	}
	return raw, nil
}

// TokenMetadata resolves decimals from the mint account. The chain stores no
// symbol on the mint, so the asset's declared symbol is echoed for display.
func (c *AccountModelClient) TokenMetadata(ctx context.Context, asset types.Asset) (*types.TokenMetadata, error) {
	if asset.IsNative() {
		return &types.TokenMetadata{
			Decimals: types.NativeDecimals[c.network],
			Symbol:   types.NativeSymbols[c.network],
		}, nil
	}

	mint, err := solana.PublicKeyFromBase58(asset.Address)
	if err != nil {
		return nil, types.NewTransferError(types.ErrInvalidAddress, "invalid mint address %q: %v", asset.Address, err)
	}

	_, decimals, err := c.mintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}

	symbol := asset.Symbol
	if symbol == "" {
		symbol = "SPL"
	}
	return &types.TokenMetadata{Decimals: decimals, Symbol: symbol}, nil
}

// NextSequence returns the current slot. Account-model chains order by recent
// blockhash rather than a per-account counter; the slot is the monotonic
// anchor callers re-fetch on retry.
func (c *AccountModelClient) NextSequence(ctx context.Context, account string) (uint64, error) {
	slot, err := c.client.GetSlot(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("failed to get slot: %w", err)
	}
	return slot, nil
}

func (c *AccountModelClient) BuildNativeTransfer(ctx context.Context, from, to string, raw *big.Int) (*types.TransferIntent, error) {
	if !raw.IsUint64() {
		return nil, types.NewTransferError(types.ErrBuildError, "amount %s exceeds the lamport range", raw)
	}
	lamports := raw.Uint64()

	fromPk, err := solana.PublicKeyFromBase58(from)
	if err != nil {
		return nil, types.NewTransferError(types.ErrInvalidAddress, "invalid sender %q: %v", from, err)
	}
	toPk, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return nil, types.NewTransferError(types.ErrInvalidAddress, "invalid recipient %q: %v", to, err)
	}

	// A transfer that would leave a fresh account below the rent-exempt floor
	// is rejected by the chain, so it is rejected here first.
	exists, err := c.accountExists(ctx, toPk)
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to check recipient account: %v", err)
	}
	if !exists {
		rentExempt, err := c.client.GetMinimumBalanceForRentExemption(ctx, 0, rpc.CommitmentFinalized)
		if err != nil {
			return nil, types.NewTransferError(types.ErrBuildError, "failed to get rent exemption: %v", err)
		}
		if lamports < rentExempt {
			return nil, types.NewTransferError(types.ErrBuildError,
				"transfer of %d lamports is below the rent-exempt minimum %d for a new account", lamports, rentExempt)
		}
	}

	blockhash, err := c.latestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	txData, err := assembleNativeTransfer(fromPk, toPk, lamports, blockhash)
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to assemble transfer: %v", err)
	}

	return &types.TransferIntent{
		Network:      c.network,
		Asset:        types.NativeAsset(c.network),
		From:         from,
		To:           to,
		Amount:       types.Amount{Raw: raw, Decimals: types.NativeDecimals[c.network]},
		AccountModel: txData,
	}, nil
}

func (c *AccountModelClient) BuildTokenTransfer(ctx context.Context, asset types.Asset, from, to string, raw *big.Int) (*types.TransferIntent, error) {
	if !raw.IsUint64() {
		return nil, types.NewTransferError(types.ErrBuildError, "amount %s exceeds the token amount range", raw)
	}

	fromPk, err := solana.PublicKeyFromBase58(from)
	if err != nil {
		return nil, types.NewTransferError(types.ErrInvalidAddress, "invalid sender %q: %v", from, err)
	}
	toPk, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return nil, types.NewTransferError(types.ErrInvalidAddress, "invalid recipient %q: %v", to, err)
	}
	mint, err := solana.PublicKeyFromBase58(asset.Address)
	if err != nil {
		return nil, types.NewTransferError(types.ErrInvalidAddress, "invalid mint address %q: %v", asset.Address, err)
	}

	program, _, err := c.mintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}

	destATA, _, err := findAssociatedTokenAddress(toPk, mint, program)
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to derive recipient token account: %v", err)
	}

	destExists, err := c.accountExists(ctx, destATA)
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to check recipient token account: %v", err)
	}
	if !destExists && !c.createRecipientTokenAccount {
		return nil, types.NewTransferError(types.ErrBuildError,
			"recipient has no token account for mint %s; enable recipient token account creation to proceed", asset.Address)
	}

	var rentLamports uint64
	if !destExists {
		rentLamports, err = c.client.GetMinimumBalanceForRentExemption(ctx, tokenAccountDataSize, rpc.CommitmentFinalized)
		if err != nil {
			return nil, types.NewTransferError(types.ErrBuildError, "failed to get rent exemption: %v", err)
		}
	}

	blockhash, err := c.latestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	txData, err := assembleTokenTransfer(tokenTransferParams{
		mint:          mint,
		tokenProgram:  program,
		fromOwner:     fromPk,
		toOwner:       toPk,
		amount:        raw.Uint64(),
		blockhash:     blockhash,
		createDestATA: !destExists,
		rentLamports:  rentLamports,
	})
	if err != nil {
		return nil, types.NewTransferError(types.ErrBuildError, "failed to assemble token transfer: %v", err)
	}

	return &types.TransferIntent{
		Network:      c.network,
		Asset:        asset,
		From:         from,
		To:           to,
		Amount:       types.Amount{Raw: raw, Decimals: asset.Decimals},
		AccountModel: txData,
	}, nil
}

func (c *AccountModelClient) Submit(ctx context.Context, tx *types.SignedTransaction) (string, error) {
	signed, err := solana.TransactionFromDecoder(bin.NewBinDecoder(tx.Raw))
	if err != nil {
		return "", types.NewTransferError(types.ErrSubmissionError, "invalid signed transaction payload: %v", err)
	}

	sig, err := c.client.SendTransaction(ctx, signed)
	if err != nil {
		if isDuplicateSubmission(err) {
			return "", types.NewTransferError(types.ErrSubmissionError, "signed payload already submitted: %v", err)
		}
		return "", types.NewTransferError(types.ErrSubmissionError, "broadcast failed: %v", err)
	}
	return sig.String(), nil
}

func (c *AccountModelClient) AwaitConfirmation(ctx context.Context, txID string, timeout time.Duration) (*types.TransferReceipt, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	deadline := time.Now().Add(timeout)

	sig, err := solana.SignatureFromBase58(txID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction signature %q: %w", txID, err)
	}

	for {
		statuses, err := c.client.GetSignatureStatuses(ctx, false, sig)
		if err == nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return &types.TransferReceipt{
					TxID:          txID,
					Confirmed:     false,
					Height:        status.Slot,
					FailureReason: fmt.Sprintf("transaction failed: %v", status.Err),
				}, nil
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return &types.TransferReceipt{
					TxID:      txID,
					Confirmed: true,
					Height:    status.Slot,
				}, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, types.NewTransferError(types.ErrConfirmationTimeout,
				"transaction %s not finalized within %s; it may still land later", txID, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *AccountModelClient) Close() {}

// mintInfo decodes the mint account to learn which token program owns it and
// the token's decimals. Token-2022 mints share the base layout with SPL.
func (c *AccountModelClient) mintInfo(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	info, err := c.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, 0, types.NewTransferError(types.ErrBuildError, "failed to get mint account %s: %v", mint, err)
	}
	if info.Value == nil {
		return solana.PublicKey{}, 0, types.NewTransferError(types.ErrBuildError, "mint account not found: %s", mint)
	}

	owner := info.Value.Owner
	if owner != solana.TokenProgramID && owner != solana.Token2022ProgramID {
		return solana.PublicKey{}, 0, types.NewTransferError(types.ErrBuildError, "account %s is not owned by a token program", mint)
	}

	var mintData token.Mint
	if err := mintData.UnmarshalWithDecoder(bin.NewBinDecoder(info.Value.Data.GetBinary())); err != nil {
		return solana.PublicKey{}, 0, types.NewTransferError(types.ErrBuildError, "failed to decode mint data for %s: %v", mint, err)
	}

	return owner, mintData.Decimals, nil
}

func (c *AccountModelClient) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	info, err := c.client.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return info.Value != nil, nil
}

func (c *AccountModelClient) latestBlockhash(ctx context.Context) (solana.Hash, error) {
	block, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, types.NewTransferError(types.ErrBuildError, "failed to get recent blockhash: %v", err)
	}
	return block.Value.Blockhash, nil
}

// findAssociatedTokenAddress derives the owner's token sub-account for a mint
// under either token program.
func findAssociatedTokenAddress(wallet, mint, tokenProgram solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			wallet[:],
			tokenProgram[:],
			mint[:],
		},
		solana.SPLAssociatedTokenAccountProgramID,
	)
}

// assembleNativeTransfer builds the unsigned system-program transfer.
func assembleNativeTransfer(from, to solana.PublicKey, lamports uint64, blockhash solana.Hash) (*types.AccountModelTxData, error) {
	inst := system.NewTransferInstruction(lamports, from, to).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return nil, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return &types.AccountModelTxData{
		UnsignedTx:      raw,
		RecentBlockhash: blockhash.String(),
		FeeLamports:     lamportsPerSignature,
	}, nil
}

type tokenTransferParams struct {
	mint          solana.PublicKey
	tokenProgram  solana.PublicKey
	fromOwner     solana.PublicKey
	toOwner       solana.PublicKey
	amount        uint64
	blockhash     solana.Hash
	createDestATA bool
	rentLamports  uint64
}

// assembleTokenTransfer builds the unsigned token transfer between the derived
// sub-accounts of sender and recipient. When the recipient's sub-account does
// not exist yet, its creation instruction is prepended and the rent cost is
// folded into the fee estimate.
func assembleTokenTransfer(p tokenTransferParams) (*types.AccountModelTxData, error) {
	sourceATA, _, err := findAssociatedTokenAddress(p.fromOwner, p.mint, p.tokenProgram)
	if err != nil {
		return nil, fmt.Errorf("failed to derive source token account: %w", err)
	}
	destATA, _, err := findAssociatedTokenAddress(p.toOwner, p.mint, p.tokenProgram)
	if err != nil {
		return nil, fmt.Errorf("failed to derive destination token account: %w", err)
	}

	var instructions []solana.Instruction

	if p.createDestATA {
		instructions = append(instructions, solana.NewInstruction(
			solana.SPLAssociatedTokenAccountProgramID,
			[]*solana.AccountMeta{
				{PublicKey: p.fromOwner, IsSigner: true, IsWritable: true},
				{PublicKey: destATA, IsSigner: false, IsWritable: true},
				{PublicKey: p.toOwner, IsSigner: false, IsWritable: false},
				{PublicKey: p.mint, IsSigner: false, IsWritable: false},
				{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
				{PublicKey: p.tokenProgram, IsSigner: false, IsWritable: false},
			},
			[]byte{0}, // Create instruction discriminator
		))
	}

	// Transfer instruction data: discriminator (1 byte) + amount (8 bytes LE).
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], p.amount)

	instructions = append(instructions, solana.NewInstruction(
		p.tokenProgram,
		[]*solana.AccountMeta{
			{PublicKey: sourceATA, IsSigner: false, IsWritable: true},
			{PublicKey: destATA, IsSigner: false, IsWritable: true},
			{PublicKey: p.fromOwner, IsSigner: true, IsWritable: false},
		},
		data,
	))

	tx, err := solana.NewTransaction(instructions, p.blockhash, solana.TransactionPayer(p.fromOwner))
	if err != nil {
		return nil, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}

	fee := uint64(lamportsPerSignature)
	if p.createDestATA {
		fee += p.rentLamports
	}

	return &types.AccountModelTxData{
		UnsignedTx:          raw,
		RecentBlockhash:     p.blockhash.String(),
		CreatesTokenAccount: p.createDestATA,
		FeeLamports:         fee,
	}, nil
}
