package migrator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/skgchp/shoveover/internal/domain"
	"github.com/skgchp/shoveover/internal/port"
)

// SizeVerifier checks a copied tree by file presence and byte size. No
// checksums: this trades certainty for speed, which is acceptable
// because the copy just happened and the source is only deleted after
// the check passes. Swap in a stronger Verifier if that tradeoff is
// wrong for your data.
type SizeVerifier struct{}

// Ensure SizeVerifier implements port.Verifier
var _ port.Verifier = (*SizeVerifier)(nil)

// NewSizeVerifier creates the default verifier.
func NewSizeVerifier() *SizeVerifier {
	return &SizeVerifier{}
}

// Verify walks source and checks that every non-hidden regular file
// exists at the mirrored destination path with the same size. Hidden
// entries at the top level of source are excluded from the comparison.
// Files that exist only at the destination are fine: transfers merge.
// An empty source passes trivially.
func (v *SizeVerifier) Verify(source, destination string) error {
	var mismatched []string

	walkErr := filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
		rel, relErr := filepath.Rel(source, path)
		if relErr != nil {
			rel = path
		}
		if err != nil {
			if rel == "." {
				// The source itself cannot be read; abort the walk.
				return err
			}
			// Unreadable source entries cannot be compared; count them
			// as mismatched rather than silently passing.
			mismatched = append(mismatched, rel)
			return nil
		}
		if rel == "." {
			return nil
		}
		if isTopLevelHidden(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		destInfo, statErr := os.Stat(filepath.Join(destination, rel))
		if statErr != nil || destInfo.Size() != info.Size() {
			mismatched = append(mismatched, rel)
		}
		return nil
	})
	if walkErr != nil {
		return &domain.VerificationError{
			Source:      source,
			Destination: destination,
			Mismatched:  append(mismatched, source),
		}
	}

	if len(mismatched) > 0 {
		return &domain.VerificationError{
			Source:      source,
			Destination: destination,
			Mismatched:  mismatched,
		}
	}
	return nil
}

// isTopLevelHidden reports whether rel's first path element is hidden.
func isTopLevelHidden(rel string) bool {
	first := rel
	if i := strings.IndexByte(rel, filepath.Separator); i >= 0 {
		first = rel[:i]
	}
	return strings.HasPrefix(first, ".")
}
