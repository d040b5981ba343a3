package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TxHashLength is the length of a canonical transaction hash string,
// 0x prefix plus 64 hex characters.
const TxHashLength = 66

// ParseTxHash validates raw as a transaction hash and returns it in
// canonical form: 0x prefix, lowercase hex. Surrounding whitespace is
// trimmed, but a missing prefix or a wrong length is never repaired.
func ParseTxHash(raw string) (common.Hash, error) {
	s := strings.TrimSpace(raw)
	if len(s) != TxHashLength || !strings.HasPrefix(s, "0x") {
		return common.Hash{}, fmt.Errorf("%w: %q", ErrInvalidHash, raw)
	}
	for _, c := range s[2:] {
		if !isHexDigit(c) {
			return common.Hash{}, fmt.Errorf("%w: %q", ErrInvalidHash, raw)
		}
	}
	return common.HexToHash(s), nil
}

func isHexDigit(c rune) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
