package commitment

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var testHash = common.HexToHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060")

func TestPreimageLayout(t *testing.T) {
	got, err := Preimage(1, testHash, 46147, 1, 21000)
	if err != nil {
		t.Fatalf("preimage failed: %v", err)
	}
	if len(got) != PreimageSize {
		t.Fatalf("expected %d bytes, got %d", PreimageSize, len(got))
	}

	if chainID := binary.BigEndian.Uint64(got[0:8]); chainID != 1 {
		t.Errorf("expected chain id 1 in bytes 0..8, got %d", chainID)
	}
	if !bytes.Equal(got[8:40], testHash.Bytes()) {
		t.Error("expected raw tx hash bytes in bytes 8..40")
	}
	if block := binary.BigEndian.Uint64(got[40:48]); block != 46147 {
		t.Errorf("expected block number 46147 in bytes 40..48, got %d", block)
	}
	if got[48] != 1 {
		t.Errorf("expected status byte 1 at offset 48, got %d", got[48])
	}
	if gas := binary.BigEndian.Uint64(got[49:57]); gas != 21000 {
		t.Errorf("expected gas used 21000 in bytes 49..57, got %d", gas)
	}
}

// Pins the exact bytes and digest for the first transaction on
// Ethereum mainnet (block 46147, 21000 gas). The digest holds only for
// Keccak-256 over the 57-byte big-endian preimage.
func TestDeriveKnownAnswer(t *testing.T) {
	wantPreimage := "0000000000000001" +
		"5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060" +
		"000000000000b443" +
		"01" +
		"0000000000005208"
	want := common.HexToHash("0x399fd09d8e081c46c2841c0839d206a58da0dd4a79650f3d98ab8e60a4065bdd")

	preimage, err := Preimage(1, testHash, 46147, 1, 21000)
	if err != nil {
		t.Fatalf("preimage failed: %v", err)
	}
	if got := hex.EncodeToString(preimage); got != wantPreimage {
		t.Errorf("expected preimage %s, got %s", wantPreimage, got)
	}

	got, err := Derive(1, testHash, 46147, 1, 21000)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if got != want {
		t.Errorf("expected commitment %s, got %s", want.Hex(), got.Hex())
	}
}

func TestDeriveDeterministic(t *testing.T) {
	a, err := Derive(1, testHash, 46147, 1, 21000)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	b, err := Derive(1, testHash, 46147, 1, 21000)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if a != b {
		t.Errorf("expected identical inputs to produce identical commitments, got %s and %s", a, b)
	}
	if a == (common.Hash{}) {
		t.Error("expected a non-zero commitment")
	}
}

func TestDeriveSensitivity(t *testing.T) {
	base, err := Derive(1, testHash, 46147, 1, 21000)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}

	variants := []struct {
		name    string
		chainID uint64
		block   uint64
		status  uint8
		gas     uint64
	}{
		{"chain id", 137, 46147, 1, 21000},
		{"block number", 1, 46148, 1, 21000},
		{"status", 1, 46147, 0, 21000},
		{"gas used", 1, 46147, 1, 21001},
	}
	for _, v := range variants {
		got, err := Derive(v.chainID, testHash, v.block, v.status, v.gas)
		if err != nil {
			t.Fatalf("%s variant failed: %v", v.name, err)
		}
		if got == base {
			t.Errorf("expected a %s change to change the commitment", v.name)
		}
	}
}

func TestDeriveRejectsBadStatus(t *testing.T) {
	if _, err := Derive(1, testHash, 46147, 2, 21000); !errors.Is(err, ErrStatusRange) {
		t.Errorf("expected ErrStatusRange for status 2, got %v", err)
	}
	if _, err := Preimage(1, testHash, 46147, 255, 21000); !errors.Is(err, ErrStatusRange) {
		t.Errorf("expected ErrStatusRange for status 255, got %v", err)
	}
}

// Status zero is a legal receipt outcome, a reverted transaction, and
// must derive cleanly rather than be treated as a range error.
func TestDeriveStatusZero(t *testing.T) {
	got, err := Derive(1, testHash, 46147, 0, 21000)
	if err != nil {
		t.Fatalf("derive failed for status 0: %v", err)
	}
	if got == (common.Hash{}) {
		t.Error("expected a non-zero commitment for status 0")
	}
}
