package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"txaudit/internal/domain"
)

// Journal persists audit outcomes and answers drift lookups. Both
// methods must be safe for concurrent use.
type Journal interface {
	Record(ctx context.Context, record domain.AuditRecord) error
	LastCommitment(ctx context.Context, chainID uint64, txHash string) (string, bool, error)
}

// AlertSink publishes audit results that need operator attention.
type AlertSink interface {
	PublishAuditAlert(ctx context.Context, result domain.AuditResult, chainID uint64) error
}

// Observer receives orchestration progress callbacks.
type Observer interface {
	OnAuditCompleted(verdict domain.Verdict, drift bool, elapsed time.Duration)
	OnBatchCompleted(total int, elapsed time.Duration)
}

// OrchestratorConfig bounds one batch run. MaxTransactions of zero
// means unlimited; Workers below two means sequential.
type OrchestratorConfig struct {
	MaxTransactions int
	Workers         int
}

// Orchestrator runs whole batches: dedup, cap, fan-out to the auditor,
// journaling, alerting and the final summary. Journal, alert sink and
// observer are all optional.
type Orchestrator struct {
	auditor  *Auditor
	journal  Journal
	alerts   AlertSink
	observer Observer
	cfg      OrchestratorConfig
}

// NewOrchestrator wires a batch runner around an auditor.
func NewOrchestrator(auditor *Auditor, journal Journal, alerts AlertSink, observer Observer, cfg OrchestratorConfig) (*Orchestrator, error) {
	if auditor == nil {
		return nil, errors.New("auditor is required")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxTransactions < 0 {
		cfg.MaxTransactions = 0
	}
	return &Orchestrator{
		auditor:  auditor,
		journal:  journal,
		alerts:   alerts,
		observer: observer,
		cfg:      cfg,
	}, nil
}

// Dedup trims each entry, drops empties and keeps the first occurrence
// of every hash, preserving input order. Dedup happens on the raw
// strings so malformed entries still surface as invalid_input verdicts
// instead of silently disappearing.
func Dedup(hashes []string) []string {
	seen := make(map[string]struct{}, len(hashes))
	out := make([]string, 0, len(hashes))
	for _, raw := range hashes {
		h := strings.TrimSpace(raw)
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Run audits every deduped hash and folds the outcomes into a summary.
// Results keep input order regardless of worker count. A cancelled
// context aborts the run with ctx.Err() and no partial summary.
func (o *Orchestrator) Run(ctx context.Context, rawHashes []string) (*domain.BatchSummary, error) {
	hashes := Dedup(rawHashes)
	if len(hashes) == 0 {
		return nil, ErrNoInput
	}
	if o.cfg.MaxTransactions > 0 && len(hashes) > o.cfg.MaxTransactions {
		slog.Warn("batch capped",
			"requested", len(hashes),
			"max", o.cfg.MaxTransactions)
		hashes = hashes[:o.cfg.MaxTransactions]
	}

	started := time.Now()
	results := make([]domain.AuditResult, len(hashes))

	workers := o.cfg.Workers
	if workers > len(hashes) {
		workers = len(hashes)
	}
	if workers <= 1 {
		for i, hash := range hashes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = o.auditor.Audit(ctx, hash)
		}
	} else {
		// Each worker writes into its job's slot, so result order is
		// input order without any post-sort.
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-ctx.Done():
						return
					case i, ok := <-jobs:
						if !ok {
							return
						}
						results[i] = o.auditor.Audit(ctx, hashes[i])
					}
				}
			}()
		}
		go func() {
			defer close(jobs)
			for i := range hashes {
				select {
				case <-ctx.Done():
					return
				case jobs <- i:
				}
			}
		}()
		wg.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chainID := o.auditor.Sessions()[0].ChainID
	for i := range results {
		o.journalize(ctx, chainID, &results[i])
		o.alert(ctx, chainID, results[i])
		if o.observer != nil {
			o.observer.OnAuditCompleted(results[i].Verdict, results[i].HistoryDrift, results[i].Elapsed)
		}
	}

	summary := o.summarize(results, time.Since(started))
	if o.observer != nil {
		o.observer.OnBatchCompleted(summary.Total(), summary.Elapsed)
	}
	slog.Info("audit batch completed",
		"total", summary.Total(),
		"success", summary.Success,
		"failed", summary.Failed,
		"mismatches", summary.Mismatches,
		"not_found", summary.NotFound,
		"provider_errors", summary.ProviderErrors,
		"invalid", summary.InvalidInput,
		"drifts", summary.HistoryDrifts,
		"duration", summary.Elapsed,
	)
	return summary, nil
}

// journalize records one result and flags drift against the last
// journaled commitment for the same transaction. Journal trouble is
// logged and never changes the verdict.
func (o *Orchestrator) journalize(ctx context.Context, chainID uint64, r *domain.AuditResult) {
	if o.journal == nil || r.Verdict == domain.VerdictInvalidInput {
		return
	}
	record := domain.AuditRecord{
		ChainID:    chainID,
		TxHash:     r.TxHash,
		Verdict:    r.Verdict,
		Matched:    r.Match,
		Elapsed:    r.Elapsed,
		RecordedAt: time.Now(),
	}
	if bundle := r.Bundle(); bundle != nil {
		record.BlockNumber = bundle.BlockNumber
		record.Status = bundle.Status
		record.GasUsed = bundle.GasUsed
		record.Commitment = bundle.Commitment.Hex()
	}
	if record.Commitment != "" {
		last, ok, err := o.journal.LastCommitment(ctx, chainID, r.TxHash)
		switch {
		case err != nil:
			slog.Warn("journal lookup failed", "tx", r.TxHash, "err", err)
		case ok && last != record.Commitment:
			r.HistoryDrift = true
			record.Drift = true
			slog.Warn("commitment drifted from journaled value",
				"tx", r.TxHash,
				"previous", last,
				"current", record.Commitment)
		}
	}
	if err := o.journal.Record(ctx, record); err != nil {
		slog.Warn("journal write failed", "tx", r.TxHash, "err", err)
	}
}

// alert forwards mismatch, provider_error and drift results to the
// sink. Publish failures are logged, never fatal.
func (o *Orchestrator) alert(ctx context.Context, chainID uint64, r domain.AuditResult) {
	if o.alerts == nil {
		return
	}
	switch {
	case r.Verdict == domain.VerdictMismatch:
	case r.Verdict == domain.VerdictProviderError:
	case r.HistoryDrift:
	default:
		return
	}
	if err := o.alerts.PublishAuditAlert(ctx, r, chainID); err != nil {
		slog.Warn("alert publish failed",
			"tx", r.TxHash,
			"verdict", r.Verdict,
			"err", err)
	}
}

func (o *Orchestrator) summarize(results []domain.AuditResult, elapsed time.Duration) *domain.BatchSummary {
	sessions := o.auditor.Sessions()
	summary := &domain.BatchSummary{
		Primary: sessions[0].Identity(),
		Results: results,
		Elapsed: elapsed,
	}
	if len(sessions) == 2 {
		identity := sessions[1].Identity()
		summary.Secondary = &identity
	}
	for i := range results {
		r := &results[i]
		switch r.Verdict {
		case domain.VerdictOK:
			if bundle := r.Bundle(); bundle != nil && bundle.Status == 1 {
				summary.Success++
			} else {
				summary.Failed++
			}
		case domain.VerdictMismatch:
			summary.Mismatches++
		case domain.VerdictNotFound:
			summary.NotFound++
		case domain.VerdictProviderError:
			summary.ProviderErrors++
		case domain.VerdictInvalidInput:
			summary.InvalidInput++
		}
		if r.HistoryDrift {
			summary.HistoryDrifts++
		}
	}
	return summary
}
