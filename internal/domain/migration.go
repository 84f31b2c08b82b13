package domain

import "time"

// Mapping pairs a fast source root with its slow destination root.
// Relative layout under the source is mirrored under the destination.
type Mapping struct {
	SourceRoot string
	DestRoot   string
}

// Candidate is a leaf directory eligible for migration.
type Candidate struct {
	Path       string // absolute path of the leaf
	SourceRoot string
	DestRoot   string
	ModTime    time.Time
	AgeDays    int
}

// MoveResult records the outcome of one directory move.
type MoveResult struct {
	Source      string
	Destination string
	SizeKB      int64
	Succeeded   bool
	DryRun      bool
}

// RunSummary describes one complete migration run.
type RunSummary struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	MovedCount   int
	TotalFreedKB int64
	FinalFreePct int
	MovedPaths   []string
	DryRun       bool
}

// ErrorReport describes an aborted run for notification.
type ErrorReport struct {
	Message        string
	OccurredAt     time.Time
	RecentLogLines []string
}

// LockState is the on-disk single-instance lock record.
type LockState struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Age returns how long the lock has been held as of now.
func (s LockState) Age(now time.Time) time.Duration {
	return now.Sub(s.AcquiredAt)
}

// AgeDays returns the number of whole days between modTime and now,
// rounding toward negative infinity so a future modTime comes out
// negative rather than zero.
func AgeDays(modTime, now time.Time) int {
	secs := int64(now.Sub(modTime) / time.Second)
	days := secs / 86400
	if secs < 0 && secs%86400 != 0 {
		days--
	}
	return int(days)
}
