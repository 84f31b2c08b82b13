package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skgchp/shoveover/internal/domain"
	"go.uber.org/zap"
)

// Config holds scanner configuration
type Config struct {
	MinAgeDays int // candidates younger than this are filtered out
	MaxDepth   int // 0 means unbounded
}

// Scanner finds migration candidates: leaf directories (no subdirectory
// children) under a mapping's source root, old enough to move.
//
// Symlinks are never followed, and dot-named directories are pruned
// entirely. A directory whose only children are hidden directories is
// not a leaf; hidden subdirectories still count as children.
type Scanner struct {
	config *Config
	logger *zap.Logger

	// now is swappable for tests
	now func() time.Time
}

// New creates a new Scanner
func New(cfg *Config, logger *zap.Logger) *Scanner {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Scanner{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Scan walks mapping's source root and returns eligible candidates in
// traversal order. Unreadable subtrees are skipped and logged; only a
// source root that cannot be read at all is an error.
func (s *Scanner) Scan(mapping domain.Mapping) ([]domain.Candidate, error) {
	root := filepath.Clean(mapping.SourceRoot)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &domain.ScanError{Path: root, Err: err}
	}

	now := s.now()
	var candidates []domain.Candidate
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		s.walk(mapping, filepath.Join(root, e.Name()), 1, now, &candidates)
	}
	return candidates, nil
}

// walk visits one real, non-hidden directory at the given depth. It
// emits the directory as a candidate when it is a leaf, otherwise
// recurses into its visible subdirectories up to the depth limit.
func (s *Scanner) walk(mapping domain.Mapping, dir string, depth int, now time.Time, out *[]domain.Candidate) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("skipping unreadable subtree",
			zap.String("path", dir),
			zap.Error(err))
		return
	}

	// IsDir is false for symlinks, so linked directories neither count
	// as children nor get expanded.
	var subdirs []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e)
		}
	}

	if len(subdirs) == 0 {
		s.emit(mapping, dir, now, out)
		return
	}

	if s.config.MaxDepth > 0 && depth >= s.config.MaxDepth {
		return
	}
	for _, e := range subdirs {
		if isHidden(e.Name()) {
			continue
		}
		s.walk(mapping, filepath.Join(dir, e.Name()), depth+1, now, out)
	}
}

// emit appends dir as a candidate unless it is too young.
func (s *Scanner) emit(mapping domain.Mapping, dir string, now time.Time, out *[]domain.Candidate) {
	info, err := os.Lstat(dir)
	if err != nil {
		s.logger.Warn("skipping unstatable leaf",
			zap.String("path", dir),
			zap.Error(err))
		return
	}

	age := domain.AgeDays(info.ModTime(), now)
	if age < s.config.MinAgeDays {
		s.logger.Debug("skipping leaf below minimum age",
			zap.String("path", dir),
			zap.Int("age_days", age),
			zap.Int("min_age_days", s.config.MinAgeDays))
		return
	}

	*out = append(*out, domain.Candidate{
		Path:       dir,
		SourceRoot: mapping.SourceRoot,
		DestRoot:   mapping.DestRoot,
		ModTime:    info.ModTime(),
		AgeDays:    age,
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
