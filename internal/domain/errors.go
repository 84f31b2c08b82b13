package domain

import (
	"errors"
	"fmt"
	"time"
)

// Common domain errors
var (
	ErrNoMappings       = errors.New("no source mappings configured")
	ErrDuplicateSource  = errors.New("duplicate source root")
	ErrLockHeld         = errors.New("another instance is running")
	ErrStaleLockRefused = errors.New("stale lock present and policy refuses to break it")
)

// AlreadyRunningError means a live process holds the lock and it is not
// yet stale.
type AlreadyRunningError struct {
	PID int
	Age time.Duration
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("already running: pid %d holds the lock (age %s)", e.PID, e.Age.Round(time.Second))
}

func (e *AlreadyRunningError) Unwrap() error {
	return ErrLockHeld
}

// ConfigError reports an invalid or unusable configuration value. Path
// names the offending file or directory when one is involved.
type ConfigError struct {
	Field string
	Path  string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// SpaceQueryError means the filesystem backing a path could not be
// statted, so the free-space gate cannot be evaluated.
type SpaceQueryError struct {
	Path string
	Err  error
}

func (e *SpaceQueryError) Error() string {
	return fmt.Sprintf("cannot query free space for %s: %v", e.Path, e.Err)
}

func (e *SpaceQueryError) Unwrap() error {
	return e.Err
}

// ScanError marks a source root that could not be read at all.
// Unreadable subtrees below the root are logged and skipped during the
// walk; only the root itself surfaces as an error.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan skipped %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// TransferError is fatal for the run: a copy or source-delete failed.
// CopyValid is set when the destination copy completed and verified but
// the source could not be reclaimed (data is safe, space is not).
type TransferError struct {
	Source      string
	Destination string
	Reason      string
	CopyValid   bool
	Err         error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s -> %s failed (%s): %v", e.Source, e.Destination, e.Reason, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// VerificationError is fatal for the run: the destination copy is
// missing files or has size mismatches. The source is left untouched.
type VerificationError struct {
	Source      string
	Destination string
	Mismatched  []string // relative paths missing or differing in size
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification of %s against %s failed: %d file(s) missing or mismatched", e.Source, e.Destination, len(e.Mismatched))
}
