// Package commitment derives the deterministic receipt commitment that
// two providers are compared on. The commitment is the Keccak-256 hash
// of a fixed 57-byte preimage, so any silent divergence in chain id,
// block number, status or gas used surfaces as a different digest.
package commitment

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PreimageSize is the exact byte length of the hashed preimage:
// chainID(8) txHash(32) blockNumber(8) status(1) gasUsed(8).
const PreimageSize = 57

// ErrStatusRange reports a receipt status outside {0, 1}.
var ErrStatusRange = fmt.Errorf("receipt status must be 0 or 1")

// Preimage assembles the canonical byte string for one receipt.
// Integers are big-endian and the transaction hash is raw bytes, never
// hex text, so the layout is unambiguous across implementations.
func Preimage(chainID uint64, txHash common.Hash, blockNumber uint64, status uint8, gasUsed uint64) ([]byte, error) {
	if status > 1 {
		return nil, fmt.Errorf("%w: got %d", ErrStatusRange, status)
	}
	buf := make([]byte, 0, PreimageSize)
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], chainID)
	buf = append(buf, u64[:]...)
	buf = append(buf, txHash.Bytes()...)
	binary.BigEndian.PutUint64(u64[:], blockNumber)
	buf = append(buf, u64[:]...)
	buf = append(buf, status)
	binary.BigEndian.PutUint64(u64[:], gasUsed)
	buf = append(buf, u64[:]...)
	return buf, nil
}

// Derive returns the Keccak-256 commitment for one receipt.
func Derive(chainID uint64, txHash common.Hash, blockNumber uint64, status uint8, gasUsed uint64) (common.Hash, error) {
	preimage, err := Preimage(chainID, txHash, blockNumber, status, gasUsed)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(preimage), nil
}
