package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"txaudit/internal/application"
	"txaudit/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	auditCacheVersionKey = "txaudit:audits:version"
	auditCacheKeyPrefix  = "txaudit:audits:v"
	defaultCacheTTL      = time.Hour
)

type CacheConfig struct {
	Addr string
	TTL  time.Duration
}

// CachedRepository caches history queries in redis in front of the
// mysql journal. Every journal write bumps a version key, so stale
// entries simply stop being addressed. LastCommitment is never cached:
// drift detection must see the latest journaled commitment.
type CachedRepository struct {
	*Repository
	cache *redis.Client
	ttl   time.Duration
}

func NewCachedRepository(base *Repository, cfg CacheConfig) (*CachedRepository, error) {
	if base == nil {
		return nil, errors.New("base repository is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return &CachedRepository{Repository: base}, nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &CachedRepository{Repository: base, cache: client, ttl: cfg.TTL}, nil
}

// Cached reports whether a live redis client backs this repository.
func (r *CachedRepository) Cached() bool {
	return r.cache != nil
}

func (r *CachedRepository) Record(ctx context.Context, record domain.AuditRecord) error {
	if err := r.Repository.Record(ctx, record); err != nil {
		return err
	}
	r.invalidateHistoryCache(ctx)
	return nil
}

func (r *CachedRepository) History(ctx context.Context, filter application.JournalFilter) ([]domain.AuditRecord, error) {
	if r.cache == nil {
		return r.Repository.History(ctx, filter)
	}
	version, ok := r.cacheVersion(ctx)
	if !ok {
		return r.Repository.History(ctx, filter)
	}
	key := historyCacheKey(version, filter)
	if cached, err := r.cache.Get(ctx, key).Result(); err == nil {
		var records []domain.AuditRecord
		if err := json.Unmarshal([]byte(cached), &records); err == nil {
			return records, nil
		}
	}

	records, err := r.Repository.History(ctx, filter)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return records, nil
	}
	_ = r.cache.Set(ctx, key, payload, r.ttl).Err()
	return records, nil
}

func (r *CachedRepository) cacheVersion(ctx context.Context) (string, bool) {
	version, err := r.cache.Get(ctx, auditCacheVersionKey).Result()
	if err == nil {
		return version, true
	}
	if errors.Is(err, redis.Nil) {
		return "0", true
	}
	return "", false
}

func (r *CachedRepository) invalidateHistoryCache(ctx context.Context) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Incr(ctx, auditCacheVersionKey).Err()
}

func historyCacheKey(version string, filter application.JournalFilter) string {
	var b strings.Builder
	b.Grow(96)
	b.WriteString(auditCacheKeyPrefix)
	b.WriteString(version)
	b.WriteString(":chain=")
	if filter.ChainID != nil {
		b.WriteString(strconv.FormatUint(*filter.ChainID, 10))
	} else {
		b.WriteString("all")
	}
	b.WriteString(":tx=")
	if filter.TxHash != "" {
		b.WriteString(filter.TxHash)
	} else {
		b.WriteString("any")
	}
	b.WriteString(":verdict=")
	if filter.Verdict != "" {
		b.WriteString(filter.Verdict)
	} else {
		b.WriteString("any")
	}
	b.WriteString(":limit=")
	b.WriteString(strconv.Itoa(normalizeHistoryLimit(filter.Limit)))
	return b.String()
}

func normalizeHistoryLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}
