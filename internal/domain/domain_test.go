package domain

import (
	"errors"
	"math/big"
	"strings"
	"testing"
)

func TestParseTxHash_Canonicalizes(t *testing.T) {
	raw := "  0xAB00000000000000000000000000000000000000000000000000000000000Cd1 "
	h, err := ParseTxHash(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := "0xab00000000000000000000000000000000000000000000000000000000000cd1"
	if h.Hex() != want {
		t.Errorf("expected %s, got %s", want, h.Hex())
	}
}

func TestParseTxHash_Rejects(t *testing.T) {
	cases := []string{
		"",
		"0x",
		"ab00000000000000000000000000000000000000000000000000000000000cd1",    // no prefix
		"0xab00000000000000000000000000000000000000000000000000000000000cd",   // 63 hex chars
		"0xab00000000000000000000000000000000000000000000000000000000000cd12", // 65 hex chars
		"0xzz00000000000000000000000000000000000000000000000000000000000cd1",  // not hex
		"0xnotahash",
	}
	for _, raw := range cases {
		if _, err := ParseTxHash(raw); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("expected ErrInvalidHash for %q, got %v", raw, err)
		}
	}
}

func TestNetworkName(t *testing.T) {
	if got := NetworkName(1); got != "Ethereum Mainnet" {
		t.Errorf("expected Ethereum Mainnet, got %s", got)
	}
	if got := NetworkName(31337); !strings.Contains(got, "31337") {
		t.Errorf("expected unknown label to carry the chain id, got %s", got)
	}
}

func TestReceiptBundle_TotalFeeWei(t *testing.T) {
	b := &ReceiptBundle{GasUsed: 21000, GasPrice: big.NewInt(30_000_000_000)}
	want := big.NewInt(630_000_000_000_000)
	if got := b.TotalFeeWei(); got.Cmp(want) != 0 {
		t.Errorf("expected %s, got %s", want, got)
	}

	noPrice := &ReceiptBundle{GasUsed: 21000}
	if got := noPrice.TotalFeeWei(); got != nil {
		t.Errorf("expected nil fee without a gas price, got %s", got)
	}
}

func TestCrossCheckEqual(t *testing.T) {
	all := CrossCheck{ChainID: true, BlockNumber: true, Status: true, GasUsed: true, Commitment: true}
	if !all.Equal() {
		t.Error("expected full agreement to be equal")
	}
	all.GasUsed = false
	if all.Equal() {
		t.Error("expected one differing field to break equality")
	}
}
