package domain

import "fmt"

var networkNames = map[uint64]string{
	1:        "Ethereum Mainnet",
	10:       "Optimism",
	137:      "Polygon",
	42161:    "Arbitrum One",
	11155111: "Sepolia Testnet",
}

// NetworkName returns a human-readable name for well-known chain IDs
// and a generic label for everything else.
func NetworkName(chainID uint64) string {
	if name, ok := networkNames[chainID]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (chain ID %d)", chainID)
}
