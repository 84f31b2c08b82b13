package migrator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/skgchp/shoveover/internal/domain"
)

func writeSized(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSizeVerifier_Pass(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeSized(t, filepath.Join(src, "a.dat"), 100)
	writeSized(t, filepath.Join(src, "sub", "b.dat"), 200)
	writeSized(t, filepath.Join(dst, "a.dat"), 100)
	writeSized(t, filepath.Join(dst, "sub", "b.dat"), 200)

	if err := NewSizeVerifier().Verify(src, dst); err != nil {
		t.Errorf("Verify() error = %v, want pass", err)
	}
}

func TestSizeVerifier_EmptySourcePasses(t *testing.T) {
	if err := NewSizeVerifier().Verify(t.TempDir(), t.TempDir()); err != nil {
		t.Errorf("Verify() of empty source error = %v, want pass", err)
	}
}

func TestSizeVerifier_MissingFile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeSized(t, filepath.Join(src, "a.dat"), 100)
	writeSized(t, filepath.Join(src, "b.dat"), 100)
	writeSized(t, filepath.Join(dst, "a.dat"), 100)

	err := NewSizeVerifier().Verify(src, dst)
	var verr *domain.VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("Verify() error = %v, want VerificationError", err)
	}
	if len(verr.Mismatched) != 1 || verr.Mismatched[0] != "b.dat" {
		t.Errorf("Mismatched = %v, want [b.dat]", verr.Mismatched)
	}
}

func TestSizeVerifier_UnreadableSource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "gone")
	err := NewSizeVerifier().Verify(src, t.TempDir())

	var verr *domain.VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("Verify() error = %v, want VerificationError", err)
	}
	if len(verr.Mismatched) != 1 || verr.Mismatched[0] != src {
		t.Errorf("Mismatched = %v, want the source root itself", verr.Mismatched)
	}
}

func TestSizeVerifier_SizeMismatch(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeSized(t, filepath.Join(src, "sub", "a.dat"), 100)
	writeSized(t, filepath.Join(dst, "sub", "a.dat"), 99)

	err := NewSizeVerifier().Verify(src, dst)
	var verr *domain.VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("Verify() error = %v, want VerificationError", err)
	}
	want := filepath.Join("sub", "a.dat")
	if len(verr.Mismatched) != 1 || verr.Mismatched[0] != want {
		t.Errorf("Mismatched = %v, want [%s]", verr.Mismatched, want)
	}
}

func TestSizeVerifier_ExtraDestinationFilesAllowed(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeSized(t, filepath.Join(src, "a.dat"), 100)
	writeSized(t, filepath.Join(dst, "a.dat"), 100)
	writeSized(t, filepath.Join(dst, "unrelated.txt"), 5)
	writeSized(t, filepath.Join(dst, "extra", "more.txt"), 5)

	if err := NewSizeVerifier().Verify(src, dst); err != nil {
		t.Errorf("Verify() error = %v; extra destination files must not fail", err)
	}
}

func TestSizeVerifier_TopLevelHiddenExcluded(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeSized(t, filepath.Join(src, "a.dat"), 100)
	writeSized(t, filepath.Join(src, ".hidden.cfg"), 10)
	writeSized(t, filepath.Join(src, ".cache", "blob"), 10)
	// Hidden names below the top level still take part in comparison.
	writeSized(t, filepath.Join(src, "sub", ".keep"), 3)

	writeSized(t, filepath.Join(dst, "a.dat"), 100)
	writeSized(t, filepath.Join(dst, "sub", ".keep"), 3)

	if err := NewSizeVerifier().Verify(src, dst); err != nil {
		t.Errorf("Verify() error = %v; top-level hidden entries must be excluded", err)
	}

	// But the nested hidden file is compared.
	os.Remove(filepath.Join(dst, "sub", ".keep"))
	if err := NewSizeVerifier().Verify(src, dst); err == nil {
		t.Error("Verify() should fail when a nested hidden file is missing")
	}
}
