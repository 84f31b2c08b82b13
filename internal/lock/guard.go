package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/skgchp/shoveover/internal/domain"
	"github.com/skgchp/shoveover/internal/port"
	"go.uber.org/zap"
)

// DefaultStaleTimeout is how long a live lock owner may hold the lock
// before it is treated as hung.
const DefaultStaleTimeout = 2 * time.Hour

// Guard is the single-instance execution lock. It persists a
// {pid, acquired_at} record at a fixed path and probes the recorded pid
// for liveness before deciding whether an existing record blocks us.
type Guard struct {
	path         string
	staleTimeout time.Duration
	policy       port.StalePolicy
	logger       *zap.Logger

	// now and alive are swappable for tests
	now   func() time.Time
	alive func(pid int) bool

	held bool
}

// New creates a lock guard for the record at path. A zero staleTimeout
// falls back to DefaultStaleTimeout; a nil policy terminates stale
// owners.
func New(path string, staleTimeout time.Duration, policy port.StalePolicy, logger *zap.Logger) *Guard {
	if staleTimeout <= 0 {
		staleTimeout = DefaultStaleTimeout
	}
	if policy == nil {
		policy = NewTerminatePolicy(logger)
	}
	return &Guard{
		path:         path,
		staleTimeout: staleTimeout,
		policy:       policy,
		logger:       logger,
		now:          time.Now,
		alive:        processAlive,
	}
}

// Acquire takes the lock or explains why it cannot.
//
// The record is installed with an exclusive create, so two racing
// starts cannot both succeed. When a record already exists: a live
// owner younger than the stale timeout fails the acquire with
// *domain.AlreadyRunningError; a live owner past the timeout is handed
// to the staleness policy and, if the policy allows, its record is
// removed; a dead owner's record is removed. After a removal the
// exclusive create is retried once. Losing that retry means another
// instance grabbed the lock in the window, which counts as already
// running.
func (g *Guard) Acquire() error {
	for attempt := 0; attempt < 2; attempt++ {
		err := g.write()
		if err == nil {
			g.held = true
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return err
		}

		state, rerr := g.read()
		if rerr != nil {
			return rerr
		}
		if state != nil {
			if g.alive(state.PID) {
				age := state.Age(g.now())
				if age < g.staleTimeout {
					return &domain.AlreadyRunningError{PID: state.PID, Age: age}
				}
				g.logger.Warn("lock owner exceeded stale timeout",
					zap.Int("pid", state.PID),
					zap.Duration("age", age),
					zap.Duration("stale_timeout", g.staleTimeout))
				if perr := g.policy.HandleStale(*state); perr != nil {
					return perr
				}
			} else {
				g.logger.Info("removing lock left by dead process",
					zap.Int("pid", state.PID),
					zap.Time("acquired_at", state.AcquiredAt))
			}
		}
		// Unparseable records fall through here too: read() has already
		// logged them as abandoned garbage.
		if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock %s: %w", g.path, err)
		}
	}

	if state, err := g.read(); err == nil && state != nil {
		return &domain.AlreadyRunningError{PID: state.PID, Age: state.Age(g.now())}
	}
	return domain.ErrLockHeld
}

// Release removes the lock record. Idempotent; safe to call on every
// exit path. A guard that never acquired the lock leaves the record
// alone, so a failed Acquire cannot clobber another instance's lock.
func (g *Guard) Release() error {
	if !g.held {
		return nil
	}
	g.held = false
	if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock %s: %w", g.path, err)
	}
	return nil
}

// Held reports whether this guard currently owns the lock.
func (g *Guard) Held() bool {
	return g.held
}

// Path returns the lock record path.
func (g *Guard) Path() string {
	return g.path
}

// read loads the existing record, if any. A record that cannot be
// parsed is treated as abandoned garbage: logged and reported as
// absent so acquisition replaces it.
func (g *Guard) read() (*domain.LockState, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lock %s: %w", g.path, err)
	}

	var state domain.LockState
	if err := json.Unmarshal(data, &state); err != nil || state.PID <= 0 {
		g.logger.Warn("discarding unreadable lock record",
			zap.String("path", g.path),
			zap.Error(err))
		return nil, nil
	}
	return &state, nil
}

// write installs our record with an exclusive create. An existing
// record makes this fail with fs.ErrExist instead of clobbering the
// current owner.
func (g *Guard) write() error {
	state := domain.LockState{PID: os.Getpid(), AcquiredAt: g.now()}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode lock record: %w", err)
	}

	dir := filepath.Dir(g.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create lock directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(g.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return err
		}
		return fmt.Errorf("failed to create lock record: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(g.path)
		return fmt.Errorf("failed to write lock record: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(g.path)
		return fmt.Errorf("failed to write lock record: %w", err)
	}
	return nil
}
