package migrator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/skgchp/shoveover/internal/adapter/filesystem"
	"github.com/skgchp/shoveover/internal/domain"
	"github.com/skgchp/shoveover/internal/port"
	"go.uber.org/zap"
)

const defaultCopyBufferSize = 8 * 1024 * 1024 // 8MB

// TransferEngine moves one leaf directory to its mapped destination:
// copy the tree, verify the copy, then delete the source. The copy
// merges into an existing destination; unrelated files already there
// are preserved, same-named files are overwritten.
type TransferEngine struct {
	dryRun     bool
	verifier   port.Verifier
	bufferSize int
	logger     *zap.Logger
}

// NewTransferEngine creates a transfer engine. A nil verifier gets the
// size-based default.
func NewTransferEngine(dryRun bool, verifier port.Verifier, logger *zap.Logger) *TransferEngine {
	if verifier == nil {
		verifier = NewSizeVerifier()
	}
	return &TransferEngine{
		dryRun:     dryRun,
		verifier:   verifier,
		bufferSize: defaultCopyBufferSize,
		logger:     logger,
	}
}

// Move relocates candidate's directory under its destination root,
// preserving the relative subtree path.
//
// The copy step is safe to re-invoke after an interruption: every file
// lands via temp-write plus rename, so a partially copied destination
// never holds a torn file and completed files are simply rewritten.
// On verification failure the source is left untouched. A source that
// verifies but cannot be deleted returns a TransferError with
// CopyValid set; the data at the destination remains good.
func (t *TransferEngine) Move(c domain.Candidate) (*domain.MoveResult, error) {
	rel, err := filepath.Rel(c.SourceRoot, c.Path)
	if err != nil {
		return nil, &domain.TransferError{
			Source: c.Path, Destination: c.DestRoot,
			Reason: "resolve destination", Err: err,
		}
	}
	dest := filepath.Join(c.DestRoot, rel)

	size, err := filesystem.TreeSize(c.Path)
	if err != nil {
		return nil, &domain.TransferError{
			Source: c.Path, Destination: dest,
			Reason: "measure source", Err: err,
		}
	}
	sizeKB := (size + 1023) / 1024

	if t.dryRun {
		t.logger.Info("dry run: would move directory",
			zap.String("source", c.Path),
			zap.String("destination", dest),
			zap.Int64("size_kb", sizeKB),
			zap.Int("age_days", c.AgeDays))
		return &domain.MoveResult{
			Source: c.Path, Destination: dest,
			SizeKB: sizeKB, Succeeded: true, DryRun: true,
		}, nil
	}

	t.logger.Info("moving directory",
		zap.String("source", c.Path),
		zap.String("destination", dest),
		zap.Int64("size_kb", sizeKB),
		zap.Int("age_days", c.AgeDays))

	if err := t.copyTree(c.Path, dest); err != nil {
		return nil, &domain.TransferError{
			Source: c.Path, Destination: dest,
			Reason: "copy failed", Err: err,
		}
	}

	if err := t.verifier.Verify(c.Path, dest); err != nil {
		return nil, err
	}

	if err := os.RemoveAll(c.Path); err != nil {
		return nil, &domain.TransferError{
			Source: c.Path, Destination: dest,
			Reason: "source delete failed", CopyValid: true, Err: err,
		}
	}

	t.logger.Info("directory moved",
		zap.String("source", c.Path),
		zap.String("destination", dest),
		zap.Int64("size_kb", sizeKB))

	return &domain.MoveResult{
		Source: c.Path, Destination: dest,
		SizeKB: sizeKB, Succeeded: true,
	}, nil
}

// copyTree mirrors src into dst, creating missing parents and merging
// with whatever already exists under dst. Directory and file modes are
// preserved; mtimes are restored after the contents land, deepest
// directories last so parent updates don't clobber them.
func (t *TransferEngine) copyTree(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination parent: %w", err)
	}

	type dirStamp struct {
		path string
		info os.FileInfo
	}
	var dirs []dirStamp
	buf := make([]byte, t.bufferSize)

	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to create %s: %w", target, err)
			}
			dirs = append(dirs, dirStamp{path: target, info: info})
			return nil
		case info.Mode()&os.ModeSymlink != 0:
			return copySymlink(path, target)
		case info.Mode().IsRegular():
			return copyFile(path, target, info, buf)
		default:
			t.logger.Warn("skipping irregular file",
				zap.String("path", path),
				zap.String("mode", info.Mode().String()))
			return nil
		}
	})
	if err != nil {
		return err
	}

	// Deepest first: Walk appended parents before children.
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		if err := os.Chtimes(d.path, d.info.ModTime(), d.info.ModTime()); err != nil {
			return fmt.Errorf("failed to restore mtime on %s: %w", d.path, err)
		}
	}
	return nil
}

// copyFile writes src's contents to a temp file next to dst, then
// renames it into place. The rename makes per-file copies atomic, which
// is what keeps a retried copy from corrupting finished files.
func copyFile(src, dst string, info os.FileInfo, buf []byte) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	tmp := dst + ".copying"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to set mtime on %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize %s: %w", dst, err)
	}
	return nil
}

// copySymlink recreates a symlink at dst, replacing any existing entry.
func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", src, err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("failed to create link %s: %w", dst, err)
	}
	return nil
}
