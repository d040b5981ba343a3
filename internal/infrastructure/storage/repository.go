package storage

import (
	"context"
	"fmt"

	"txaudit/internal/application"
	"txaudit/internal/config"
	"txaudit/internal/domain"
	"txaudit/internal/infrastructure/mysql"
	"txaudit/internal/infrastructure/sqlite"
)

// Journal is the full persistence surface the commands wire up: writes
// and drift lookups for the orchestrator, history and liveness for the
// HTTP API.
type Journal interface {
	Record(ctx context.Context, record domain.AuditRecord) error
	LastCommitment(ctx context.Context, chainID uint64, txHash string) (string, bool, error)
	History(ctx context.Context, filter application.JournalFilter) ([]domain.AuditRecord, error)
	Ping(ctx context.Context) error
}

// Open selects the journal backend from configuration: mysql when
// DB_DSN is set, cached through redis when REDIS_ADDR is set too;
// sqlite when DB_PATH is set; otherwise no journal at all. The label
// names the selected backend for logs.
func Open(cfg config.Config) (Journal, string, error) {
	switch {
	case cfg.DBDSN != "":
		base, err := mysql.NewRepository(cfg.DBDSN)
		if err != nil {
			return nil, "", fmt.Errorf("mysql journal: %w", err)
		}
		cached, err := mysql.NewCachedRepository(base, mysql.CacheConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, "", fmt.Errorf("redis cache: %w", err)
		}
		if cached.Cached() {
			return cached, "mysql+redis", nil
		}
		return cached, "mysql", nil
	case cfg.DBPath != "":
		repo, err := sqlite.NewRepository(cfg.DBPath)
		if err != nil {
			return nil, "", fmt.Errorf("sqlite journal: %w", err)
		}
		return repo, "sqlite", nil
	default:
		return nil, "", nil
	}
}
