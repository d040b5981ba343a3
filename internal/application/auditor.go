package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"txaudit/internal/commitment"
	"txaudit/internal/domain"
	"txaudit/internal/retry"
)

// Auditor audits one transaction hash at a time against the sessions
// it was built with. It is safe for concurrent use.
type Auditor struct {
	sessions []Session
	exec     *retry.Executor
}

// NewAuditor builds an Auditor over one or two connected sessions.
func NewAuditor(sessions []Session, exec *retry.Executor) (*Auditor, error) {
	if len(sessions) == 0 {
		return nil, errors.New("at least one session is required")
	}
	if len(sessions) > 2 {
		return nil, fmt.Errorf("at most two providers are supported, got %d", len(sessions))
	}
	if exec == nil {
		return nil, errors.New("retry executor is required")
	}
	return &Auditor{sessions: sessions, exec: exec}, nil
}

// Sessions returns the connected sessions, primary first.
func (a *Auditor) Sessions() []Session { return a.sessions }

// Audit validates raw, fetches a bundle from every session and folds
// the outcomes into a verdict. It never returns an error: every
// failure mode is a verdict. Timing covers provider work only, so an
// invalid hash reports zero elapsed time.
func (a *Auditor) Audit(ctx context.Context, raw string) domain.AuditResult {
	ctx, span := otel.Tracer("txaudit/application").Start(ctx, "audit.transaction")
	defer span.End()

	hash, err := domain.ParseTxHash(raw)
	if err != nil {
		span.SetAttributes(
			attribute.String("tx.hash", raw),
			attribute.String("audit.verdict", string(domain.VerdictInvalidInput)),
		)
		return domain.AuditResult{TxHash: raw, Verdict: domain.VerdictInvalidInput}
	}
	span.SetAttributes(attribute.String("tx.hash", hash.Hex()))

	started := time.Now()
	result := domain.AuditResult{TxHash: hash.Hex()}
	result.Primary = a.fetchOutcome(ctx, a.sessions[0], hash)
	if len(a.sessions) == 2 {
		result.Secondary = a.fetchOutcome(ctx, a.sessions[1], hash)
	}
	a.judge(&result)
	result.Elapsed = time.Since(started)
	span.SetAttributes(attribute.String("audit.verdict", string(result.Verdict)))
	return result
}

// fetchOutcome collects receipt, transaction and block header from one
// session and folds them into a bundle. Each call runs under the retry
// policy; the first terminal failure decides the outcome state.
func (a *Auditor) fetchOutcome(ctx context.Context, s Session, hash common.Hash) *domain.FetchOutcome {
	name := s.Provider.Name()
	outcome := &domain.FetchOutcome{Provider: name}

	var receipt *domain.Receipt
	err := a.exec.Do(ctx, name, "eth_getTransactionReceipt", func(ctx context.Context) error {
		var err error
		receipt, err = s.Provider.ReceiptByHash(ctx, hash)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		outcome.State = domain.OutcomeNotFound
		return outcome
	}
	if err != nil {
		outcome.State = domain.OutcomeError
		outcome.Err = err.Error()
		return outcome
	}
	if receipt.Status > 1 {
		outcome.State = domain.OutcomeError
		outcome.Err = fmt.Sprintf("%s: receipt status %d out of range", name, receipt.Status)
		return outcome
	}

	var tx *domain.Transaction
	err = a.exec.Do(ctx, name, "eth_getTransactionByHash", func(ctx context.Context) error {
		var err error
		tx, err = s.Provider.TransactionByHash(ctx, hash)
		return err
	})
	if err != nil {
		// The receipt exists, so a missing transaction is a provider
		// inconsistency rather than a pending hash.
		outcome.State = domain.OutcomeError
		outcome.Err = err.Error()
		return outcome
	}

	var timestamp uint64
	err = a.exec.Do(ctx, name, "eth_getBlockByNumber", func(ctx context.Context) error {
		var err error
		timestamp, err = s.Provider.BlockTimestamp(ctx, receipt.BlockNumber)
		return err
	})
	if err != nil {
		outcome.State = domain.OutcomeError
		outcome.Err = err.Error()
		return outcome
	}

	bundle := &domain.ReceiptBundle{
		ChainID:        s.ChainID,
		TxHash:         hash.Hex(),
		BlockNumber:    receipt.BlockNumber,
		BlockTimestamp: timestamp,
		Status:         uint8(receipt.Status),
		GasUsed:        receipt.GasUsed,
		From:           tx.From,
		To:             tx.To,
	}
	switch {
	case receipt.EffectiveGasPrice != nil:
		bundle.GasPrice = receipt.EffectiveGasPrice
		bundle.FeeSource = domain.FeeSourceReceipt
	case tx.GasPrice != nil:
		bundle.GasPrice = tx.GasPrice
		bundle.FeeSource = domain.FeeSourceTransaction
	}

	bundle.Commitment, err = commitment.Derive(s.ChainID, hash, bundle.BlockNumber, bundle.Status, bundle.GasUsed)
	if err != nil {
		outcome.State = domain.OutcomeError
		outcome.Err = err.Error()
		return outcome
	}

	outcome.State = domain.OutcomeOK
	outcome.Bundle = bundle
	return outcome
}

// judge folds the per-provider outcomes into the final verdict.
func (a *Auditor) judge(r *domain.AuditResult) {
	if r.Secondary == nil {
		switch r.Primary.State {
		case domain.OutcomeOK:
			r.Verdict = domain.VerdictOK
		case domain.OutcomeNotFound:
			r.Verdict = domain.VerdictNotFound
		default:
			r.Verdict = domain.VerdictProviderError
		}
		return
	}

	p, s := r.Primary.State, r.Secondary.State
	switch {
	case p == domain.OutcomeError || s == domain.OutcomeError:
		// No soundness claim is possible without both answers, even
		// when the other provider returned a clean bundle.
		r.Verdict = domain.VerdictProviderError
	case p == domain.OutcomeNotFound && s == domain.OutcomeNotFound:
		r.Verdict = domain.VerdictNotFound
	case p == domain.OutcomeOK && s == domain.OutcomeOK:
		check := crossCheck(r.Primary.Bundle, r.Secondary.Bundle)
		r.CrossCheck = &check
		match := check.Equal()
		r.Match = &match
		if match {
			r.Verdict = domain.VerdictOK
		} else {
			r.Verdict = domain.VerdictMismatch
		}
	default:
		// One provider has the receipt, the other does not. That is a
		// divergence between providers, not a missing transaction.
		match := false
		r.Match = &match
		r.Verdict = domain.VerdictMismatch
	}
}

func crossCheck(a, b *domain.ReceiptBundle) domain.CrossCheck {
	return domain.CrossCheck{
		ChainID:     a.ChainID == b.ChainID,
		BlockNumber: a.BlockNumber == b.BlockNumber,
		Status:      a.Status == b.Status,
		GasUsed:     a.GasUsed == b.GasUsed,
		Commitment:  a.Commitment == b.Commitment,
	}
}
