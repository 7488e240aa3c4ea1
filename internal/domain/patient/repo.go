package patient

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record carries the requested HCN.
var ErrNotFound = errors.New("patient not found")

// Repository is read-only: records are loaded once and never mutated.
type Repository interface {
	All(ctx context.Context) ([]*Record, error)
	List(ctx context.Context, limit, offset int) ([]*Record, int, error)
	GetByHCN(ctx context.Context, hcn string) (*Record, error)
}
