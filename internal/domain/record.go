package domain

import "time"

// AuditRecord is one journaled audit of a transaction hash. Commitment
// is empty when no provider produced a bundle. Matched is nil unless
// two providers were compared.
type AuditRecord struct {
	ID          int64
	ChainID     uint64
	TxHash      string
	Verdict     Verdict
	BlockNumber uint64
	Status      uint8
	GasUsed     uint64
	Commitment  string
	Matched     *bool
	Drift       bool
	Elapsed     time.Duration
	RecordedAt  time.Time
}
