package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// Summary is the picker-facing view of a record.
type Summary struct {
	HCN       string     `json:"hcn"`
	Age       int        `json:"age"`
	Sex       string     `json:"sex"`
	Deceased  bool       `json:"deceased"`
	DeathDate dates.Date `json:"death_date"`
}

// Summarize builds the list entry for a record.
func Summarize(r *Record) Summary {
	return Summary{
		HCN:       r.HCN,
		Age:       r.Age,
		Sex:       r.Sex,
		Deceased:  r.Deceased(),
		DeathDate: r.DeathDate(),
	}
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetPatient(ctx context.Context, hcn string) (*Record, error) {
	if strings.TrimSpace(hcn) == "" {
		return nil, fmt.Errorf("hcn is required")
	}
	return s.repo.GetByHCN(ctx, hcn)
}

func (s *Service) AllPatients(ctx context.Context) ([]*Record, error) {
	return s.repo.All(ctx)
}

func (s *Service) ListSummaries(ctx context.Context, limit, offset int) ([]Summary, int, error) {
	records, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Summary, 0, len(records))
	for _, r := range records {
		out = append(out, Summarize(r))
	}
	return out, total, nil
}
