package patient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TableDDL creates the table the postgres source reads. Position keeps the
// fixture order so the picker lists patients the same way for every source.
const TableDDL = `CREATE TABLE IF NOT EXISTS fi_patient_records (
    hcn        TEXT PRIMARY KEY,
    position   INTEGER NOT NULL,
    record     JSONB NOT NULL,
    loaded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Querier is the part of *pgxpool.Pool the postgres source reads through.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Importer is the part of *pgxpool.Pool Import writes through.
type Importer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGSource reads records stored as JSONB documents.
type PGSource struct {
	db Querier
}

// NewPGSource creates a PGSource.
func NewPGSource(db Querier) *PGSource {
	return &PGSource{db: db}
}

func (s *PGSource) Name() string { return "postgres" }

func (s *PGSource) Load(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.Query(ctx, `SELECT record FROM fi_patient_records ORDER BY position, hcn`)
	if err != nil {
		return nil, fmt.Errorf("query fi_patient_records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Import replaces the table contents with records in a single transaction
// and returns the number of rows written.
func Import(ctx context.Context, db Importer, records []*Record) (int, error) {
	if _, err := db.Exec(ctx, TableDDL); err != nil {
		return 0, fmt.Errorf("create fi_patient_records: %w", err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE fi_patient_records`); err != nil {
		return 0, fmt.Errorf("truncate fi_patient_records: %w", err)
	}

	batch := &pgx.Batch{}
	for i, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("encode record %s: %w", rec.HCN, err)
		}
		batch.Queue(`INSERT INTO fi_patient_records (hcn, position, record) VALUES ($1, $2, $3)`,
			rec.HCN, i, raw)
	}
	br := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("insert record: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(records), nil
}
