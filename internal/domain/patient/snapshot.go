package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Snapshot is the immutable, ordered set of records loaded at startup. It is
// safe for concurrent readers because nothing writes to it after NewSnapshot.
type Snapshot struct {
	records []*Record
	byHCN   map[string]*Record
}

// NewSnapshot normalizes records and indexes them by HCN. Blank or duplicate
// HCNs are fatal; shape problems are repaired and returned as issues.
func NewSnapshot(records []*Record) (*Snapshot, []Issue, error) {
	s := &Snapshot{
		records: make([]*Record, 0, len(records)),
		byHCN:   make(map[string]*Record, len(records)),
	}
	var issues []Issue
	for i, rec := range records {
		if rec == nil {
			return nil, nil, fmt.Errorf("record %d is null", i)
		}
		rec.HCN = strings.TrimSpace(rec.HCN)
		if rec.HCN == "" {
			return nil, nil, fmt.Errorf("record %d has no hcn", i)
		}
		if _, dup := s.byHCN[rec.HCN]; dup {
			return nil, nil, fmt.Errorf("duplicate hcn %q at record %d", rec.HCN, i)
		}
		issues = append(issues, rec.Normalize()...)
		s.records = append(s.records, rec)
		s.byHCN[rec.HCN] = rec
	}
	return s, issues, nil
}

// LoadSnapshot reads src once and builds the snapshot, logging each repaired
// issue as a warning.
func LoadSnapshot(ctx context.Context, src Source, logger zerolog.Logger) (*Snapshot, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s source: %w", src.Name(), err)
	}
	snap, issues, err := NewSnapshot(records)
	if err != nil {
		return nil, fmt.Errorf("build snapshot from %s source: %w", src.Name(), err)
	}
	for _, is := range issues {
		logger.Warn().
			Str("hcn", is.HCN).
			Str("field", is.Field).
			Msg(is.Message)
	}
	logger.Info().
		Str("source", src.Name()).
		Int("patients", snap.Len()).
		Int("issues", len(issues)).
		Msg("patient snapshot loaded")
	return snap, nil
}

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// All returns the records in fixture order. Callers must not modify them.
func (s *Snapshot) All(_ context.Context) ([]*Record, error) {
	return s.records, nil
}

// List returns one page of records in fixture order plus the total count.
func (s *Snapshot) List(_ context.Context, limit, offset int) ([]*Record, int, error) {
	total := len(s.records)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*Record{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return s.records[offset:end], total, nil
}

// GetByHCN looks up a single record.
func (s *Snapshot) GetByHCN(_ context.Context, hcn string) (*Record, error) {
	rec, ok := s.byHCN[strings.TrimSpace(hcn)]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}
