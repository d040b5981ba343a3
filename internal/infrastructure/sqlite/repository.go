package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"txaudit/internal/application"
	"txaudit/internal/domain"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite is single-writer and :memory: databases live per
	// connection, so the pool is pinned to one.
	db.SetMaxOpenConns(1)
	if err := createSchema(db); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS audits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chain_id INTEGER NOT NULL,
			tx_hash TEXT NOT NULL,
			verdict TEXT NOT NULL,
			block_number INTEGER NOT NULL,
			status INTEGER NOT NULL,
			gas_used INTEGER NOT NULL,
			commitment TEXT NOT NULL,
			matched INTEGER,
			drift INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audits_chain_tx ON audits(chain_id, tx_hash, id)`,
		`CREATE INDEX IF NOT EXISTS idx_audits_verdict ON audits(verdict)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, record domain.AuditRecord) error {
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
	return err
}

func (r *Repository) LastCommitment(ctx context.Context, chainID uint64, txHash string) (string, bool, error) {
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
		return "", false, err
	}
	return commitment, true, nil
}

func (r *Repository) History(ctx context.Context, filter application.JournalFilter) ([]domain.AuditRecord, error) {
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
		return nil, err
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
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
