package streaming

import (
	"encoding/json"
	"errors"
)

type MessageType string

const (
	MessageTypeMismatch      MessageType = "mismatch"
	MessageTypeProviderError MessageType = "provider_error"
	MessageTypeHistoryDrift  MessageType = "history_drift"
)

// Message is the alert envelope published for audits that need
// operator attention. CommitmentSecondary and Detail are set when the
// alert has a second commitment or a provider error to carry.
type Message struct {
	Type                MessageType `json:"type"`
	ChainID             uint64      `json:"chain_id"`
	TraceID             string      `json:"trace_id,omitempty"`
	TxHash              string      `json:"tx_hash"`
	Verdict             string      `json:"verdict"`
	BlockNumber         uint64      `json:"block_number,omitempty"`
	CommitmentPrimary   string      `json:"commitment_primary,omitempty"`
	CommitmentSecondary string      `json:"commitment_secondary,omitempty"`
	Detail              string      `json:"detail,omitempty"`
	ElapsedMS           int64       `json:"elapsed_ms"`
}

func Encode(msg Message) ([]byte, error) {
	if msg.Type == "" {
		return nil, errors.New("message type is required")
	}
	if msg.ChainID == 0 {
		return nil, errors.New("chain_id is required")
	}
	if msg.TxHash == "" {
		return nil, errors.New("tx_hash is required")
	}
	return json.Marshal(msg)
}

func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" {
		return Message{}, errors.New("message type is missing")
	}
	if msg.ChainID == 0 {
		return Message{}, errors.New("chain_id is missing")
	}
	if msg.TxHash == "" {
		return Message{}, errors.New("tx_hash is missing")
	}
	return msg, nil
}
