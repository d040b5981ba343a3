package streaming

import (
	"strings"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	msg := Message{
		Type:                MessageTypeMismatch,
		ChainID:             1,
		TraceID:             "74726163652d69642d74657374000000",
		TxHash:              "0x" + strings.Repeat("ab", 32),
		Verdict:             "mismatch",
		BlockNumber:         19000000,
		CommitmentPrimary:   "0x" + strings.Repeat("11", 32),
		CommitmentSecondary: "0x" + strings.Repeat("22", 32),
		ElapsedMS:           412,
	}

	payload, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != msg {
		t.Errorf("round trip changed the message:\n got %+v\nwant %+v", decoded, msg)
	}
}

func TestEncode_Validates(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)

	if _, err := Encode(Message{ChainID: 1, TxHash: hash}); err == nil {
		t.Error("expected an error for a missing type")
	}
	if _, err := Encode(Message{Type: MessageTypeHistoryDrift, TxHash: hash}); err == nil {
		t.Error("expected an error for a missing chain id")
	}
	if _, err := Encode(Message{Type: MessageTypeHistoryDrift, ChainID: 1}); err == nil {
		t.Error("expected an error for a missing tx hash")
	}
}

func TestDecode_Validates(t *testing.T) {
	cases := map[string]string{
		"not json":        "{",
		"missing type":    `{"chain_id":1,"tx_hash":"0xab"}`,
		"missing chain":   `{"type":"mismatch","tx_hash":"0xab"}`,
		"missing tx hash": `{"type":"mismatch","chain_id":1}`,
	}
	for name, payload := range cases {
		if _, err := Decode([]byte(payload)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}
