package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"txaudit/internal/application"
	"txaudit/internal/domain"
	"txaudit/internal/report"
)

// BatchRunner executes one audit batch against the connected providers.
type BatchRunner interface {
	Run(ctx context.Context, hashes []string) (*domain.BatchSummary, error)
}

// JournalReader is the read side of the audit journal. The server runs
// without one; /history then reports the journal as not configured and
// /readyz skips the database check.
type JournalReader interface {
	History(ctx context.Context, filter application.JournalFilter) ([]domain.AuditRecord, error)
	Ping(ctx context.Context) error
}

// ChainProbe reports upstream provider liveness for readiness checks.
type ChainProbe interface {
	ChainID(ctx context.Context) (uint64, error)
}

type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

type Server struct {
	runner    BatchRunner
	journal   JournalReader
	probe     ChainProbe
	metrics   *Metrics
	buildInfo BuildInfo
}

func NewServer(runner BatchRunner, journal JournalReader, probe ChainProbe, metrics *Metrics, buildInfo BuildInfo) (*Server, error) {
	if runner == nil || probe == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{runner: runner, journal: journal, probe: probe, metrics: metrics, buildInfo: buildInfo}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/audit", s.handleAudit)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/version", s.handleVersion)
	return mux
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.journal != nil {
		if err := s.journal.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "journal not ready")
			return
		}
	}
	if _, err := s.probe.ChainID(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "rpc not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type auditRequest struct {
	Hashes []string `json:"hashes"`
	Max    int      `json:"max"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hashes := application.Dedup(req.Hashes)
	if req.Max > 0 && len(hashes) > req.Max {
		hashes = hashes[:req.Max]
	}

	summary, err := s.runner.Run(r.Context(), hashes)
	if err != nil {
		if errors.Is(err, application.ErrNoInput) {
			respondError(w, http.StatusBadRequest, "no transaction hashes provided")
			return
		}
		respondError(w, http.StatusInternalServerError, "audit failed")
		return
	}
	respondJSON(w, http.StatusOK, report.NewBatchPayload(summary))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		respondError(w, http.StatusNotFound, "journal not configured")
		return
	}

	filter, err := parseHistoryFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.journal.History(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	snap := s.metrics.Snapshot()

	uptime := time.Since(snap.StartTime).Seconds()

	fmt.Fprintf(w, "txaudit_uptime_seconds %.0f\n", uptime)
	fmt.Fprintf(w, "txaudit_audits_total %d\n", snap.Audits)
	fmt.Fprintf(w, "txaudit_audits_ok %d\n", snap.VerdictCount[domain.VerdictOK])
	fmt.Fprintf(w, "txaudit_audits_mismatch %d\n", snap.VerdictCount[domain.VerdictMismatch])
	fmt.Fprintf(w, "txaudit_audits_provider_error %d\n", snap.VerdictCount[domain.VerdictProviderError])
	fmt.Fprintf(w, "txaudit_audits_not_found %d\n", snap.VerdictCount[domain.VerdictNotFound])
	fmt.Fprintf(w, "txaudit_audits_invalid_input %d\n", snap.VerdictCount[domain.VerdictInvalidInput])
	fmt.Fprintf(w, "txaudit_history_drifts_total %d\n", snap.HistoryDrifts)
	fmt.Fprintf(w, "txaudit_retry_attempts_total %d\n", snap.RetryAttempts)
	fmt.Fprintf(w, "txaudit_batches_total %d\n", snap.Batches)
	fmt.Fprintf(w, "txaudit_last_batch_size %d\n", snap.LastBatchSize)
	fmt.Fprintf(w, "txaudit_last_batch_elapsed_seconds %.3f\n", snap.LastBatchElapsed.Seconds())
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

func parseHistoryFilter(r *http.Request) (application.JournalFilter, error) {
	limit, err := parseLimit(r)
	if err != nil {
		return application.JournalFilter{}, err
	}

	filter := application.JournalFilter{
		TxHash:  r.URL.Query().Get("tx_hash"),
		Verdict: r.URL.Query().Get("verdict"),
		Limit:   limit,
	}
	if raw := r.URL.Query().Get("chain_id"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return application.JournalFilter{}, errors.New("invalid chain_id")
		}
		filter.ChainID = &value
	}
	return filter, nil
}

func parseLimit(r *http.Request) (int, error) {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return 0, errors.New("invalid limit")
		}
		return value, nil
	}
	return 100, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
