package main

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/vitwit/x402-transfer/types"
)

// config is read from the environment. The private key is env-only and is
// never written anywhere by this program.
type config struct {
	RPCURL       string `envconfig:"RPC_URL"`
	SolanaRPCURL string `envconfig:"SOLANA_RPC"`
	PrivateKey   string `envconfig:"PRIVATE_KEY"`
	X402Key      string `envconfig:"X402_PRIVATE_KEY"`
	Receiver     string `envconfig:"RECEIVER"`
	Address      string `envconfig:"ADDRESS"`
	USDCContract string `envconfig:"USDC_CONTRACT"`
	SPLToken     string `envconfig:"SPL_TOKEN"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

func newConfig() (config, error) {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		return config{}, fmt.Errorf("failed to process env var: %w", err)
	}
	return cfg, nil
}

// key returns the signing key, preferring PRIVATE_KEY over X402_PRIVATE_KEY.
func (c config) key() string {
	if c.PrivateKey != "" {
		return c.PrivateKey
	}
	return c.X402Key
}

// receiver returns the recipient address, preferring RECEIVER over ADDRESS.
func (c config) receiver() string {
	if c.Receiver != "" {
		return c.Receiver
	}
	return c.Address
}

// rpcURL picks the endpoint matching the network family.
func (c config) rpcURL(network types.Network) string {
	if network.IsAccountModel() && c.SolanaRPCURL != "" {
		return c.SolanaRPCURL
	}
	return c.RPCURL
}

// tokenAddress returns the configured token contract or mint for the
// network family, empty for native transfers.
func (c config) tokenAddress(network types.Network) string {
	if network.IsAccountModel() {
		return strings.TrimSpace(c.SPLToken)
	}
	return strings.TrimSpace(c.USDCContract)
}
