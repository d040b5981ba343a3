package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"txaudit/internal/application"
	"txaudit/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dsn string) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("db dsn is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := createSchema(db); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS audits (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			chain_id BIGINT UNSIGNED NOT NULL,
			tx_hash VARCHAR(66) NOT NULL,
			verdict VARCHAR(16) NOT NULL,
			block_number BIGINT UNSIGNED NOT NULL,
			status TINYINT UNSIGNED NOT NULL,
			gas_used BIGINT UNSIGNED NOT NULL,
			commitment VARCHAR(66) NOT NULL,
			matched TINYINT(1) NULL,
			drift TINYINT(1) NOT NULL,
			elapsed_ms BIGINT NOT NULL,
			recorded_at BIGINT NOT NULL,
			PRIMARY KEY (id),
			KEY audits_chain_tx_idx (chain_id, tx_hash, id),
			KEY audits_verdict_idx (verdict)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, record domain.AuditRecord) error {
	ctx, span := startDBSpan(ctx, "mysql.RecordAudit",
		attribute.Int64("chain.id", int64(record.ChainID)),
		attribute.String("tx.hash", record.TxHash),
		attribute.String("audit.verdict", string(record.Verdict)))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var matched any
	if record.Matched != nil {
		if *record.Matched {
			matched = 1
		} else {
			matched = 0
		}
	}
	drift := 0
	if record.Drift {
		drift = 1
	}
	recordedAt := record.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO audits
		(chain_id, tx_hash, verdict, block_number, status, gas_used, commitment, matched, drift, elapsed_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ChainID,
		record.TxHash,
		string(record.Verdict),
		record.BlockNumber,
		record.Status,
		record.GasUsed,
		record.Commitment,
		matched,
		drift,
		record.Elapsed.Milliseconds(),
		recordedAt.Unix(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Repository) LastCommitment(ctx context.Context, chainID uint64, txHash string) (string, bool, error) {
	ctx, span := startDBSpan(ctx, "mysql.LastCommitment",
		attribute.Int64("chain.id", int64(chainID)),
		attribute.String("tx.hash", txHash))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var commitment string
	err := r.db.QueryRowContext(ctx, `SELECT commitment FROM audits
		WHERE chain_id = ? AND tx_hash = ? AND commitment != ''
		ORDER BY id DESC LIMIT 1`, chainID, txHash).Scan(&commitment)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", false, err
	}
	return commitment, true, nil
}

func (r *Repository) History(ctx context.Context, filter application.JournalFilter) ([]domain.AuditRecord, error) {
	ctx, span := startDBSpan(ctx, "mysql.AuditHistory")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	clauses := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if filter.ChainID != nil {
		clauses = append(clauses, "chain_id = ?")
		args = append(args, *filter.ChainID)
	}
	if filter.TxHash != "" {
		clauses = append(clauses, "tx_hash = ?")
		args = append(args, filter.TxHash)
	}
	if filter.Verdict != "" {
		clauses = append(clauses, "verdict = ?")
		args = append(args, filter.Verdict)
	}

	query := `SELECT id, chain_id, tx_hash, verdict, block_number, status, gas_used, commitment, matched, drift, elapsed_ms, recorded_at FROM audits`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("record.count", len(records)))
	return records, nil
}

func scanRecord(rows *sql.Rows) (domain.AuditRecord, error) {
	var (
		record     domain.AuditRecord
		verdict    string
		matched    sql.NullInt64
		drift      int
		elapsedMS  int64
		recordedAt int64
	)
	if err := rows.Scan(
		&record.ID,
		&record.ChainID,
		&record.TxHash,
		&verdict,
		&record.BlockNumber,
		&record.Status,
		&record.GasUsed,
		&record.Commitment,
		&matched,
		&drift,
		&elapsedMS,
		&recordedAt,
	); err != nil {
		return domain.AuditRecord{}, err
	}
	record.Verdict = domain.Verdict(verdict)
	if matched.Valid {
		value := matched.Int64 != 0
		record.Matched = &value
	}
	record.Drift = drift != 0
	record.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	record.RecordedAt = time.Unix(recordedAt, 0).UTC()
	return record, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

func startDBSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", "mysql"))
	return otel.Tracer("txaudit/mysql").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}
