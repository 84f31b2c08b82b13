package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAlreadyRunningError(t *testing.T) {
	err := &AlreadyRunningError{PID: 4242, Age: 90 * time.Second}

	if !errors.Is(err, ErrLockHeld) {
		t.Error("AlreadyRunningError should unwrap to ErrLockHeld")
	}

	wrapped := fmt.Errorf("acquire: %w", err)
	var target *AlreadyRunningError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find AlreadyRunningError through wrapping")
	}
	if target.PID != 4242 {
		t.Errorf("PID = %d, want 4242", target.PID)
	}
}

func TestScanErrorUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	scanErr := &ScanError{Path: "/fast/a", Err: cause}

	if !errors.Is(fmt.Errorf("during scan: %w", scanErr), cause) {
		t.Error("ScanError should unwrap to its cause")
	}
	var target *ScanError
	if !errors.As(fmt.Errorf("x: %w", scanErr), &target) || target.Path != "/fast/a" {
		t.Error("errors.As should find ScanError through wrapping")
	}
}

func TestTransferErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &TransferError{
		Source:      "/fast/a",
		Destination: "/slow/a",
		Reason:      "copy failed",
		Err:         cause,
	}
	if !errors.Is(err, cause) {
		t.Error("TransferError should unwrap to its cause")
	}
}

func TestVerificationErrorMessage(t *testing.T) {
	err := &VerificationError{
		Source:      "/fast/a",
		Destination: "/slow/a",
		Mismatched:  []string{"x.dat", "sub/y.dat"},
	}
	want := "verification of /fast/a against /slow/a failed: 2 file(s) missing or mismatched"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		modTime time.Time
		want    int
	}{
		{"same instant", now, 0},
		{"under one day", now.Add(-23 * time.Hour), 0},
		{"exactly one day", now.Add(-24 * time.Hour), 1},
		{"eleven and a half days", now.Add(-276 * time.Hour), 11},
		{"thirteen days", now.AddDate(0, 0, -13), 13},
		{"future mtime", now.Add(12 * time.Hour), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AgeDays(tt.modTime, now); got != tt.want {
				t.Errorf("AgeDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLockStateAge(t *testing.T) {
	now := time.Now()
	state := LockState{PID: 1, AcquiredAt: now.Add(-3 * time.Hour)}
	if got := state.Age(now); got != 3*time.Hour {
		t.Errorf("Age() = %v, want 3h", got)
	}
}
