package migrator

import (
	"github.com/skgchp/shoveover/internal/domain"
	"go.uber.org/zap"
)

// leafScanner yields eligible leaf directories for one mapping.
// Satisfied by *scanner.Scanner.
type leafScanner interface {
	Scan(mapping domain.Mapping) ([]domain.Candidate, error)
}

// Selector picks the globally oldest eligible leaf directory across all
// configured mappings.
type Selector struct {
	scanner leafScanner
	logger  *zap.Logger
}

// NewSelector creates a new Selector
func NewSelector(sc leafScanner, logger *zap.Logger) *Selector {
	return &Selector{scanner: sc, logger: logger}
}

// FindOldest scans every mapping and returns the candidate with the
// minimum modification time, ignoring paths in exclude (directories
// already handled this run). Ties go to the earlier mapping, then to
// traversal order, so the result is deterministic for a fixed
// filesystem state. A nil candidate with nil error means nothing is
// eligible anywhere, which ends the move loop normally.
func (s *Selector) FindOldest(mappings []domain.Mapping, exclude map[string]struct{}) (*domain.Candidate, error) {
	var best *domain.Candidate
	scanned := 0

	for _, m := range mappings {
		candidates, err := s.scanner.Scan(m)
		if err != nil {
			return nil, err
		}
		scanned += len(candidates)
		for i := range candidates {
			c := &candidates[i]
			if _, done := exclude[c.Path]; done {
				continue
			}
			if best == nil || c.ModTime.Before(best.ModTime) {
				best = c
			}
		}
	}

	if best == nil {
		s.logger.Info("no eligible leaf directories found",
			zap.Int("mappings", len(mappings)))
		return nil, nil
	}

	s.logger.Debug("selected oldest candidate",
		zap.String("path", best.Path),
		zap.Int("age_days", best.AgeDays),
		zap.Int("candidates", scanned))
	return best, nil
}
