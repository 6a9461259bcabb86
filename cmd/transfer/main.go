package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	transfer "github.com/vitwit/x402-transfer"
	"github.com/vitwit/x402-transfer/clients"
	"github.com/vitwit/x402-transfer/logger"
	"github.com/vitwit/x402-transfer/types"
	"github.com/vitwit/x402-transfer/verification"
)

// Exit codes. Zero means the transfer reached Verified with an exact match.
const (
	exitOK           = 0
	exitValidation   = 2
	exitConnection   = 3
	exitInsufficient = 4
	exitSubmission   = 5
	exitTimeout      = 6
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		networkFlag = flag.String("network", "base-sepolia", "target network")
		amountFlag  = flag.String("amount", "", "human-readable amount to send")
		toFlag      = flag.String("to", "", "recipient address (overrides RECEIVER)")
		tokenFlag   = flag.String("token", "", "token contract or mint (overrides env; empty = native)")
		nativeFlag  = flag.Bool("native", false, "force a native transfer even when a token is configured")
		timeoutFlag = flag.Duration("confirm-timeout", clients.DefaultConfirmTimeout, "confirmation polling budget")
		createATA   = flag.Bool("create-recipient-token-account", false, "create the recipient's token account if missing (account-model networks)")
	)
	flag.Parse()

	cfg, err := newConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitValidation
	}

	log := logger.NewZapLogger(cfg.LogLevel)

	network := types.Network(*networkFlag)
	if !network.IsEVM() && !network.IsAccountModel() {
		fmt.Fprintf(os.Stderr, "error: unsupported network %q\n", *networkFlag)
		return exitValidation
	}

	key := cfg.key()
	if key == "" {
		fmt.Fprintln(os.Stderr, "error: PRIVATE_KEY (or X402_PRIVATE_KEY) must be set")
		return exitValidation
	}

	to := *toFlag
	if to == "" {
		to = cfg.receiver()
	}
	if to == "" {
		fmt.Fprintln(os.Stderr, "error: recipient required (-to flag or RECEIVER env)")
		return exitValidation
	}
	if *amountFlag == "" {
		fmt.Fprintln(os.Stderr, "error: -amount is required")
		return exitValidation
	}

	rpcURL := cfg.rpcURL(network)
	if rpcURL == "" {
		fmt.Fprintln(os.Stderr, "error: RPC_URL (or SOLANA_RPC) must be set")
		return exitValidation
	}

	asset := types.NativeAsset(network)
	if !*nativeFlag {
		tokenAddr := *tokenFlag
		if tokenAddr == "" {
			tokenAddr = cfg.tokenAddress(network)
		}
		if tokenAddr != "" {
			asset = types.FungibleToken(tokenAddr)
		}
	}

	ctx := context.Background()

	client, err := newClient(network, rpcURL, *createATA)
	if err != nil {
		log.Error("failed to connect to ledger", map[string]interface{}{"error": err.Error()})
		return exitConnection
	}
	defer client.Close()

	flow, err := transfer.New(client,
		transfer.WithLogger(log),
		transfer.WithConfirmTimeout(*timeoutFlag),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitValidation
	}

	res, runErr := flow.Run(ctx, transfer.Request{
		Asset:       asset,
		To:          to,
		HumanAmount: *amountFlag,
		PrivateKey:  []byte(key),
	})
	report(res)

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "error:", runErr)
		if res != nil && res.FailedAt == transfer.StageValidating {
			return exitValidation
		}
		return exitCode(runErr)
	}
	if res.Verification != nil && res.Verification.Outcome != verification.OutcomeExact {
		return exitSubmission
	}
	return exitOK
}

func newClient(network types.Network, rpcURL string, createATA bool) (clients.LedgerClient, error) {
	if network.IsAccountModel() {
		var opts []clients.AccountModelOption
		if createATA {
			opts = append(opts, clients.WithCreateRecipientTokenAccount())
		}
		return clients.NewAccountModelClient(network, rpcURL, opts...)
	}
	return clients.NewEVMClient(network, rpcURL)
}

func report(res *transfer.Result) {
	if res == nil {
		return
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
}

func exitCode(err error) int {
	switch types.ErrorCode(err) {
	case types.ErrInvalidAmount, types.ErrInvalidAddress, types.ErrInvalidKey,
		types.ErrKeyMismatch, types.ErrUnsupportedNetwork:
		return exitValidation
	case types.ErrConnectionError:
		return exitConnection
	case types.ErrInsufficientBalance:
		return exitInsufficient
	case types.ErrConfirmationTimeout:
		return exitTimeout
	default:
		return exitSubmission
	}
}
