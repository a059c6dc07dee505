package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/harborview/timetable-api/internal/models"
	"github.com/harborview/timetable-api/internal/solver"
)

type catalogLoader interface {
	Load(ctx context.Context, termID string) (*models.Catalog, error)
}

// CatalogService loads and validates the solver catalog for a term. The
// catalog snapshot is taken once per run; the solver never goes back to the
// database mid-search.
type CatalogService struct {
	repo   catalogLoader
	logger *zap.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo catalogLoader, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, logger: logger}
}

// LoadProblem builds a validated solver problem for the term. Catalog and
// lock-set errors surface unchanged so callers can distinguish malformed
// input from conflicting pins.
func (s *CatalogService) LoadProblem(ctx context.Context, termID string, weights models.WeightSet) (*solver.Problem, error) {
	catalog, err := s.repo.Load(ctx, termID)
	if err != nil {
		return nil, err
	}

	problem, err := solver.NewProblem(catalog, weights)
	if err != nil {
		return nil, err
	}

	s.logger.Info("catalog loaded",
		zap.String("term_id", termID),
		zap.Int("units", len(catalog.Units)),
		zap.Int("teachers", len(catalog.Teachers)),
		zap.Int("rooms", len(catalog.Rooms)),
		zap.Int("locks", len(catalog.Locks)))
	return problem, nil
}
