package domain

import "math/big"

// Transaction represents the signed transaction object returned by a
// provider. Only the fields the auditor consumes are kept.
type Transaction struct {
	Hash        string
	From        string
	To          string
	BlockNumber uint64
	Nonce       uint64
	Gas         uint64
	GasPrice    *big.Int
	Value       *big.Int
}
