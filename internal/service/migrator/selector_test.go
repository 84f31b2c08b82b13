package migrator

import (
	"errors"
	"testing"
	"time"

	"github.com/skgchp/shoveover/internal/domain"
	"go.uber.org/zap"
)

// stubScanner returns canned candidates per source root
type stubScanner struct {
	byRoot map[string][]domain.Candidate
	err    error
}

func (s *stubScanner) Scan(mapping domain.Mapping) ([]domain.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byRoot[mapping.SourceRoot], nil
}

func cand(root, path string, ageDays int) domain.Candidate {
	return domain.Candidate{
		Path:       path,
		SourceRoot: root,
		DestRoot:   "/slow" + root,
		ModTime:    time.Now().AddDate(0, 0, -ageDays),
		AgeDays:    ageDays,
	}
}

func TestSelector_OldestAcrossMappings(t *testing.T) {
	sc := &stubScanner{byRoot: map[string][]domain.Candidate{
		"/fast/a": {
			cand("/fast/a", "/fast/a/x", 11),
			cand("/fast/a", "/fast/a/y", 13),
		},
		"/fast/b": {
			cand("/fast/b", "/fast/b/z", 12),
			cand("/fast/b", "/fast/b/w", 6),
		},
	}}

	sel := NewSelector(sc, zap.NewNop())
	got, err := sel.FindOldest([]domain.Mapping{
		{SourceRoot: "/fast/a", DestRoot: "/slow/fast/a"},
		{SourceRoot: "/fast/b", DestRoot: "/slow/fast/b"},
	}, nil)
	if err != nil {
		t.Fatalf("FindOldest() error = %v", err)
	}
	if got == nil || got.Path != "/fast/a/y" {
		t.Errorf("FindOldest() = %+v, want the 13-day-old /fast/a/y", got)
	}
}

func TestSelector_TieBreakByMappingThenTraversalOrder(t *testing.T) {
	sameTime := time.Now().AddDate(0, 0, -20)
	mk := func(root, path string) domain.Candidate {
		return domain.Candidate{Path: path, SourceRoot: root, ModTime: sameTime, AgeDays: 20}
	}

	sc := &stubScanner{byRoot: map[string][]domain.Candidate{
		"/fast/a": {mk("/fast/a", "/fast/a/first"), mk("/fast/a", "/fast/a/second")},
		"/fast/b": {mk("/fast/b", "/fast/b/other")},
	}}

	sel := NewSelector(sc, zap.NewNop())
	got, err := sel.FindOldest([]domain.Mapping{
		{SourceRoot: "/fast/a"},
		{SourceRoot: "/fast/b"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Path != "/fast/a/first" {
		t.Errorf("FindOldest() = %+v, want first-encountered /fast/a/first", got)
	}
}

func TestSelector_ExcludesHandledPaths(t *testing.T) {
	sc := &stubScanner{byRoot: map[string][]domain.Candidate{
		"/fast/a": {
			cand("/fast/a", "/fast/a/old", 30),
			cand("/fast/a", "/fast/a/older", 40),
		},
	}}
	mappings := []domain.Mapping{{SourceRoot: "/fast/a"}}

	sel := NewSelector(sc, zap.NewNop())
	got, err := sel.FindOldest(mappings, map[string]struct{}{"/fast/a/older": {}})
	if err != nil {
		t.Fatalf("FindOldest() error = %v", err)
	}
	if got == nil || got.Path != "/fast/a/old" {
		t.Errorf("FindOldest() = %+v, want /fast/a/old with the oldest excluded", got)
	}

	got, err = sel.FindOldest(mappings, map[string]struct{}{
		"/fast/a/old": {}, "/fast/a/older": {},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("FindOldest() = %+v, want nil when everything is excluded", got)
	}
}

func TestSelector_NoneEligible(t *testing.T) {
	sel := NewSelector(&stubScanner{byRoot: map[string][]domain.Candidate{}}, zap.NewNop())
	got, err := sel.FindOldest([]domain.Mapping{{SourceRoot: "/fast/a"}}, nil)
	if err != nil {
		t.Fatalf("FindOldest() error = %v", err)
	}
	if got != nil {
		t.Errorf("FindOldest() = %+v, want nil", got)
	}
}

func TestSelector_ScanErrorPropagates(t *testing.T) {
	scanErr := &domain.ScanError{Path: "/fast/a", Err: errors.New("gone")}
	sel := NewSelector(&stubScanner{err: scanErr}, zap.NewNop())
	_, err := sel.FindOldest([]domain.Mapping{{SourceRoot: "/fast/a"}}, nil)
	if !errors.Is(err, scanErr) {
		t.Errorf("FindOldest() error = %v, want the scan error", err)
	}
}
