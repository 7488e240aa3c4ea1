package chart

import (
	"context"

	"github.com/filab/fi-dashboard/internal/domain/patient"
)

// PatientLookup is the slice of patient.Service the chart needs.
type PatientLookup interface {
	GetPatient(ctx context.Context, hcn string) (*patient.Record, error)
}

type Service struct {
	patients PatientLookup
	opts     Options
}

func NewService(patients PatientLookup, opts Options) *Service {
	return &Service{patients: patients, opts: opts}
}

// Options returns the options every derivation of this service uses.
func (s *Service) Options() Options {
	return s.opts
}

func (s *Service) Spec(ctx context.Context, hcn string) (*Spec, error) {
	rec, err := s.patients.GetPatient(ctx, hcn)
	if err != nil {
		return nil, err
	}
	return Derive(rec, s.opts), nil
}

// Record resolves the patient behind a chart request.
func (s *Service) Record(ctx context.Context, hcn string) (*patient.Record, error) {
	return s.patients.GetPatient(ctx, hcn)
}

// Hover applies one pointer event to the current hover state.
func (s *Service) Hover(state HoverState, ev HoverEvent) HoverState {
	return ApplyHover(state, ev, s.opts.lookbackYears())
}
