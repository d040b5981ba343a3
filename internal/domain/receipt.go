package domain

import "math/big"

// Receipt represents a transaction receipt from the chain.
// EffectiveGasPrice is nil when the provider omits the field, which
// pre-EIP-1559 nodes still do.
type Receipt struct {
	TxHash            string
	BlockNumber       uint64
	BlockHash         string
	TxIndex           uint64
	Status            uint64
	GasUsed           uint64
	CumulativeGasUsed uint64
	EffectiveGasPrice *big.Int
	ContractAddress   string
}
