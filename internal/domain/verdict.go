package domain

import "time"

// Verdict classifies the outcome of auditing one transaction hash.
type Verdict string

const (
	// VerdictOK means every configured provider returned a receipt and
	// all derived commitments agree.
	VerdictOK Verdict = "ok"
	// VerdictMismatch means the providers disagree, either on the
	// derived commitment or on whether the receipt exists at all.
	VerdictMismatch Verdict = "mismatch"
	// VerdictProviderError means at least one provider kept failing
	// after retries, so no soundness claim can be made.
	VerdictProviderError Verdict = "provider_error"
	// VerdictNotFound means no configured provider knows the receipt.
	VerdictNotFound Verdict = "not_found"
	// VerdictInvalidInput means the hash never reached a provider.
	VerdictInvalidInput Verdict = "invalid_input"
)

// OutcomeState classifies a single provider fetch.
type OutcomeState string

const (
	OutcomeOK       OutcomeState = "ok"
	OutcomeNotFound OutcomeState = "not_found"
	OutcomeError    OutcomeState = "error"
)

// FetchOutcome is the per-provider result of fetching one bundle.
// Bundle is set only when State is OutcomeOK. Err carries the terminal
// provider error rendered as text.
type FetchOutcome struct {
	Provider string
	State    OutcomeState
	Bundle   *ReceiptBundle
	Err      string
}

// CrossCheck records the field-by-field comparison of two bundles.
type CrossCheck struct {
	ChainID     bool
	BlockNumber bool
	Status      bool
	GasUsed     bool
	Commitment  bool
}

// Equal reports whether every compared field agreed.
func (c CrossCheck) Equal() bool {
	return c.ChainID && c.BlockNumber && c.Status && c.GasUsed && c.Commitment
}

// AuditResult is the full outcome of auditing one hash. Match is set
// only when both providers produced a bundle. Secondary and CrossCheck
// are nil in single-provider mode. HistoryDrift reports that the
// primary commitment differs from the last journaled one.
type AuditResult struct {
	TxHash       string
	Verdict      Verdict
	Primary      *FetchOutcome
	Secondary    *FetchOutcome
	Match        *bool
	CrossCheck   *CrossCheck
	HistoryDrift bool
	Elapsed      time.Duration
}

// Bundle returns the first available bundle, preferring the primary
// provider, or nil when no provider produced one.
func (r *AuditResult) Bundle() *ReceiptBundle {
	if r.Primary != nil && r.Primary.Bundle != nil {
		return r.Primary.Bundle
	}
	if r.Secondary != nil && r.Secondary.Bundle != nil {
		return r.Secondary.Bundle
	}
	return nil
}
