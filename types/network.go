package types

// Network represents supported blockchain networks
type Network string

const (
	// EVM Networks
	NetworkPolygon     Network = "polygon"
	NetworkPolygonAmoy Network = "polygon-amoy" // testnet
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia" // testnet

	// Account-model (Solana-style) networks
	NetworkSolanaMainnet Network = "solana-mainnet"
	NetworkSolanaDevnet  Network = "solana-devnet" // testnet
)

// NativeDecimals maps a network to the decimals of its native asset.
var NativeDecimals = map[Network]uint8{
	NetworkPolygon:       18,
	NetworkPolygonAmoy:   18,
	NetworkBase:          18,
	NetworkBaseSepolia:   18,
	NetworkSolanaMainnet: 9,
	NetworkSolanaDevnet:  9,
}

// NativeSymbols maps a network to its native asset display symbol.
var NativeSymbols = map[Network]string{
	NetworkPolygon:       "POL",
	NetworkPolygonAmoy:   "POL",
	NetworkBase:          "ETH",
	NetworkBaseSepolia:   "ETH",
	NetworkSolanaMainnet: "SOL",
	NetworkSolanaDevnet:  "SOL",
}

// EVMChainIDs maps EVM networks to their chain identifiers.
var EVMChainIDs = map[Network]int64{
	NetworkPolygon:     137,
	NetworkPolygonAmoy: 80002,
	NetworkBase:        8453,
	NetworkBaseSepolia: 84532,
}

// Helper functions for network classification
func (n Network) IsEVM() bool {
	return n == NetworkPolygon || n == NetworkPolygonAmoy || n == NetworkBase || n == NetworkBaseSepolia
}

func (n Network) IsAccountModel() bool {
	return n == NetworkSolanaMainnet || n == NetworkSolanaDevnet
}

func (n Network) IsTestnet() bool {
	return n == NetworkPolygonAmoy || n == NetworkBaseSepolia || n == NetworkSolanaDevnet
}

func (n Network) String() string {
	return string(n)
}
