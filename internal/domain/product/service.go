package product

import (
	"context"

	"github.com/go-faster/errors"
)

// Service finds or creates products by GTIN.
type Service struct {
	repo Repository
	opts FindOptions
}

// NewService creates a Service that looks products up with DefaultFindOptions.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, opts: DefaultFindOptions()}
}

// FindOrCreate returns the product stored for gtin or, when there is none, a
// new unsaved product. The caller persists it after mutation.
func (s *Service) FindOrCreate(ctx context.Context, gtin string) (*Product, error) {
	p, err := s.repo.FindByGTIN(ctx, gtin, s.opts)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, ErrNotFound):
		return New(gtin), nil
	default:
		return nil, errors.Wrapf(err, "find product %s", gtin)
	}
}

// Save persists p.
func (s *Service) Save(ctx context.Context, p *Product) error {
	if err := s.repo.Save(ctx, p); err != nil {
		return errors.Wrapf(err, "save product %s", p.GTIN)
	}
	return nil
}
