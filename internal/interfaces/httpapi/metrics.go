package httpapi

import (
	"sync"
	"time"

	"txaudit/internal/domain"
)

// Metrics aggregates process counters served by the /metrics endpoint.
// It satisfies the orchestrator observer and the retry executor hook,
// so batch runs and provider re-attempts feed the same snapshot.
type Metrics struct {
	mu               sync.RWMutex
	startTime        time.Time
	audits           uint64
	verdictCount     map[domain.Verdict]uint64
	historyDrifts    uint64
	retryAttempts    uint64
	retryByProvider  map[string]uint64
	batches          uint64
	lastBatchSize    int
	lastBatchElapsed time.Duration
	lastAuditElapsed time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime:       time.Now(),
		verdictCount:    make(map[domain.Verdict]uint64),
		retryByProvider: make(map[string]uint64),
	}
}

// OnAuditCompleted records the outcome of one audited hash.
func (m *Metrics) OnAuditCompleted(verdict domain.Verdict, drift bool, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits++
	m.verdictCount[verdict]++
	if drift {
		m.historyDrifts++
	}
	m.lastAuditElapsed = elapsed
}

// OnBatchCompleted records one finished batch run.
func (m *Metrics) OnBatchCompleted(total int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	m.lastBatchSize = total
	m.lastBatchElapsed = elapsed
}

// OnRetry counts provider re-attempts per provider label.
func (m *Metrics) OnRetry(provider, op string, attempt int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryAttempts++
	m.retryByProvider[provider]++
}

type Snapshot struct {
	StartTime        time.Time
	Audits           uint64
	VerdictCount     map[domain.Verdict]uint64
	HistoryDrifts    uint64
	RetryAttempts    uint64
	RetryByProvider  map[string]uint64
	Batches          uint64
	LastBatchSize    int
	LastBatchElapsed time.Duration
	LastAuditElapsed time.Duration
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		StartTime:        m.startTime,
		Audits:           m.audits,
		VerdictCount:     copyVerdictCounts(m.verdictCount),
		HistoryDrifts:    m.historyDrifts,
		RetryAttempts:    m.retryAttempts,
		RetryByProvider:  copyProviderCounts(m.retryByProvider),
		Batches:          m.batches,
		LastBatchSize:    m.lastBatchSize,
		LastBatchElapsed: m.lastBatchElapsed,
		LastAuditElapsed: m.lastAuditElapsed,
	}
}

func copyVerdictCounts(source map[domain.Verdict]uint64) map[domain.Verdict]uint64 {
	if len(source) == 0 {
		return nil
	}
	clone := make(map[domain.Verdict]uint64, len(source))
	for key, value := range source {
		clone[key] = value
	}
	return clone
}

func copyProviderCounts(source map[string]uint64) map[string]uint64 {
	if len(source) == 0 {
		return nil
	}
	clone := make(map[string]uint64, len(source))
	for key, value := range source {
		clone[key] = value
	}
	return clone
}
