package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FeeSource names which object supplied the gas price used for the
// total fee: the receipt's effectiveGasPrice or the transaction's
// gasPrice fallback.
type FeeSource string

const (
	FeeSourceReceipt     FeeSource = "receipt"
	FeeSourceTransaction FeeSource = "transaction"
	FeeSourceUnknown     FeeSource = ""
)

// ReceiptBundle is the normalized view of one transaction as seen by
// one provider, folded together from the receipt, the transaction and
// the containing block header.
type ReceiptBundle struct {
	ChainID        uint64
	TxHash         string
	BlockNumber    uint64
	BlockTimestamp uint64
	Status         uint8
	GasUsed        uint64
	From           string
	To             string
	GasPrice       *big.Int
	FeeSource      FeeSource
	Commitment     common.Hash
}

// TotalFeeWei returns gasUsed times the effective gas price, or nil
// when no price was available from either source.
func (b *ReceiptBundle) TotalFeeWei() *big.Int {
	if b == nil || b.GasPrice == nil {
		return nil
	}
	fee := new(big.Int).SetUint64(b.GasUsed)
	return fee.Mul(fee, b.GasPrice)
}
