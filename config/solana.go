package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	SolanaEnvMainnetBeta = "mainnet-beta"
	SolanaEnvTestnet     = "testnet"
	SolanaEnvDevnet      = "devnet"
	SolanaEnvLocalnet    = "localnet"

	MainnetSolanaRPC = "https://api.mainnet-beta.solana.com"
	TestnetSolanaRPC = "https://api.testnet.solana.com"
	DevnetSolanaRPC  = "https://api.devnet.solana.com"
)

// ResolveRPCURL maps an environment alias to its RPC URL. Anything that is not a known alias is
// treated as a custom URL. An empty value falls back to SOLANA_RPC_URL, and then to "" which
// leaves the external tools on their own configured cluster.
func ResolveRPCURL(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return os.Getenv("SOLANA_RPC_URL"), nil
	case "m", "mainnet", SolanaEnvMainnetBeta:
		return MainnetSolanaRPC, nil
	case "t", SolanaEnvTestnet:
		return TestnetSolanaRPC, nil
	case "d", SolanaEnvDevnet:
		return DevnetSolanaRPC, nil
	case "l", "local", SolanaEnvLocalnet:
		return LocalnetRPCURL, nil
	}
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return "", fmt.Errorf("invalid rpc url %q, must be one of: l/local, d/devnet, t/testnet, m/mainnet or an http(s) url", value)
	}
	return value, nil
}
