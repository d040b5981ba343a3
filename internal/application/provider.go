package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"txaudit/internal/domain"
	"txaudit/internal/retry"
)

// Provider is the read surface the auditor needs from one JSON-RPC
// endpoint. Object lookups return domain.ErrNotFound for null results.
type Provider interface {
	Name() string
	URL() string
	ChainID(ctx context.Context) (uint64, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*domain.Transaction, error)
	ReceiptByHash(ctx context.Context, hash common.Hash) (*domain.Receipt, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Session pairs a provider with the chain id it reported once at the
// start of a run, so per-transaction audits never re-ask.
type Session struct {
	Provider Provider
	ChainID  uint64
}

// Identity describes the session for reports.
func (s Session) Identity() domain.ProviderIdentity {
	return domain.ProviderIdentity{
		Label:   s.Provider.Name(),
		RPC:     s.Provider.URL(),
		ChainID: s.ChainID,
		Network: domain.NetworkName(s.ChainID),
	}
}

// ChainMismatchError reports that the configured providers serve
// different chains. Cross-auditing them would compare unrelated
// receipts, so the whole run is refused.
type ChainMismatchError struct {
	Primary   uint64
	Secondary uint64
}

func (e *ChainMismatchError) Error() string {
	return fmt.Sprintf("chain id mismatch: primary reports %d (%s), secondary reports %d (%s)",
		e.Primary, domain.NetworkName(e.Primary), e.Secondary, domain.NetworkName(e.Secondary))
}

// ErrNoInput reports an audit request without any transaction hashes.
var ErrNoInput = errors.New("no transaction hashes provided")

// Connect resolves each provider's chain id through the retry executor
// and refuses mismatched providers. The first provider is the primary.
func Connect(ctx context.Context, exec *retry.Executor, providers ...Provider) ([]Session, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	sessions := make([]Session, 0, len(providers))
	for _, p := range providers {
		var chainID uint64
		err := exec.Do(ctx, p.Name(), "eth_chainId", func(ctx context.Context) error {
			var err error
			chainID, err = p.ChainID(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", p.Name(), err)
		}
		slog.Info("provider connected",
			"provider", p.Name(),
			"chain_id", chainID,
			"network", domain.NetworkName(chainID))
		sessions = append(sessions, Session{Provider: p, ChainID: chainID})
	}
	for _, s := range sessions[1:] {
		if s.ChainID != sessions[0].ChainID {
			return nil, &ChainMismatchError{Primary: sessions[0].ChainID, Secondary: s.ChainID}
		}
	}
	return sessions, nil
}
