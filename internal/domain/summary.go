package domain

import "time"

// ProviderIdentity describes one connected provider for reporting.
type ProviderIdentity struct {
	Label   string
	RPC     string
	ChainID uint64
	Network string
}

// BatchSummary aggregates one audit run. Success counts transactions
// whose providers agree and whose status is 1; Failed counts agreed
// receipts with status 0. The six counters partition Results.
type BatchSummary struct {
	Primary        ProviderIdentity
	Secondary      *ProviderIdentity
	Results        []AuditResult
	Success        int
	Failed         int
	Mismatches     int
	NotFound       int
	ProviderErrors int
	InvalidInput   int
	HistoryDrifts  int
	Elapsed        time.Duration
}

// Total returns the number of audited hashes after dedup and capping.
func (s *BatchSummary) Total() int {
	return len(s.Results)
}

// Clean reports whether the whole batch succeeded with no failed,
// missing, mismatched or erroring transactions.
func (s *BatchSummary) Clean() bool {
	return s.Failed == 0 && s.Mismatches == 0 && s.NotFound == 0 &&
		s.ProviderErrors == 0 && s.InvalidInput == 0
}
