package migrator

import (
	"context"
	"time"

	"github.com/skgchp/shoveover/internal/domain"
	"github.com/skgchp/shoveover/internal/port"
	"go.uber.org/zap"
)

// Config holds migration loop configuration
type Config struct {
	LowFreePercent    int    // enter the move loop below this free %
	TargetFreePercent int    // stop moving at or above this free %
	MaxMoves          int    // per-run move budget
	DryRun            bool
	LogTarget         string // what the monitoring session is told to watch
}

// oldestFinder picks the next candidate. Satisfied by *Selector.
type oldestFinder interface {
	FindOldest(mappings []domain.Mapping, exclude map[string]struct{}) (*domain.Candidate, error)
}

// mover performs one directory move. Satisfied by *TransferEngine.
type mover interface {
	Move(c domain.Candidate) (*domain.MoveResult, error)
}

// locker is the single-instance lock. Satisfied by *lock.Guard.
type locker interface {
	Acquire() error
	Release() error
}

// Loop orchestrates one migration run: lock, gate on free space, move
// oldest leaves until the target watermark or the budget is reached,
// then report and clean up. Runs single-threaded; the lock file is the
// only concurrency control, and it is between invocations.
type Loop struct {
	config   *Config
	mappings []domain.Mapping
	space    port.SpaceMonitor
	selector oldestFinder
	engine   mover
	guard    locker
	notifier port.Notifier
	monitor  port.Monitor
	history  port.History // optional
	logger   *zap.Logger

	// logTail supplies recent log lines for error reports; may be nil
	logTail func() []string
}

// New creates a migration loop. notifier, monitor, history and logTail
// may be nil; the loop treats all of them as best effort.
func New(cfg *Config, mappings []domain.Mapping, space port.SpaceMonitor, selector oldestFinder, engine mover, guard locker, logger *zap.Logger) *Loop {
	return &Loop{
		config:   cfg,
		mappings: mappings,
		space:    space,
		selector: selector,
		engine:   engine,
		guard:    guard,
		logger:   logger,
	}
}

// WithNotifier attaches the notification collaborator.
func (l *Loop) WithNotifier(n port.Notifier) *Loop {
	l.notifier = n
	return l
}

// WithMonitor attaches the terminal-monitoring collaborator.
func (l *Loop) WithMonitor(m port.Monitor) *Loop {
	l.monitor = m
	return l
}

// WithHistory attaches the run-history collaborator.
func (l *Loop) WithHistory(h port.History) *Loop {
	l.history = h
	return l
}

// WithLogTail attaches a provider of recent log lines for error reports.
func (l *Loop) WithLogTail(tail func() []string) *Loop {
	l.logTail = tail
	return l
}

// Run executes one migration run. A non-nil error means the run aborted
// (lock contention, space query failure, or a fatal transfer error); a
// failure notification has already been attempted and cleanup has run.
// ctx is only observed between top-level steps: a move in flight always
// runs to completion.
func (l *Loop) Run(ctx context.Context) (summary *domain.RunSummary, err error) {
	summary = &domain.RunSummary{
		StartedAt: time.Now(),
		DryRun:    l.config.DryRun,
	}

	// Every abort path below reports the failure before the deferred
	// cleanup releases the lock and stops monitoring.
	defer func() {
		if err != nil {
			l.reportFailure(err)
		}
	}()

	if err = l.guard.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if rerr := l.guard.Release(); rerr != nil {
			l.logger.Error("failed to release lock", zap.Error(rerr))
		}
	}()

	if l.monitor != nil {
		if merr := l.monitor.Start(l.config.LogTarget); merr != nil {
			l.logger.Warn("monitoring session failed to start", zap.Error(merr))
		}
		defer func() {
			if merr := l.monitor.Stop(); merr != nil {
				l.logger.Warn("monitoring session failed to stop", zap.Error(merr))
			}
		}()
	}

	gatePath := l.mappings[0].SourceRoot
	freePct, err := l.space.FreePercent(gatePath)
	if err != nil {
		return nil, err
	}

	if freePct >= l.config.LowFreePercent {
		l.logger.Info("free space above low watermark, nothing to do",
			zap.Int("free_pct", freePct),
			zap.Int("low_free_pct", l.config.LowFreePercent))
		summary.FinalFreePct = freePct
		l.finish(summary, nil)
		return summary, nil
	}

	l.logger.Info("free space below low watermark, starting move loop",
		zap.Int("free_pct", freePct),
		zap.Int("low_free_pct", l.config.LowFreePercent),
		zap.Int("target_free_pct", l.config.TargetFreePercent),
		zap.Int("max_moves", l.config.MaxMoves),
		zap.Bool("dry_run", l.config.DryRun))

	var moves []domain.MoveResult
	// A live move deletes its source, so the scanner naturally stops
	// finding it. Dry runs leave everything in place; excluding moved
	// paths from later selections keeps a dry run walking down the age
	// order instead of reporting the same oldest directory MaxMoves
	// times.
	moved := make(map[string]struct{})
	for summary.MovedCount < l.config.MaxMoves {
		if cerr := ctx.Err(); cerr != nil {
			err = cerr
			return nil, err
		}

		freePct, err = l.space.FreePercent(gatePath)
		if err != nil {
			return nil, err
		}
		if freePct >= l.config.TargetFreePercent {
			l.logger.Info("target watermark reached",
				zap.Int("free_pct", freePct),
				zap.Int("target_free_pct", l.config.TargetFreePercent))
			break
		}

		var candidate *domain.Candidate
		candidate, err = l.selector.FindOldest(l.mappings, moved)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			l.logger.Info("no eligible directories, ending move loop",
				zap.Int("moved", summary.MovedCount))
			break
		}

		// A failed move is fatal for the whole run. Continuing with the
		// next candidate would mask systemic problems like a full or
		// unwritable destination behind an endless retry parade.
		var result *domain.MoveResult
		result, err = l.engine.Move(*candidate)
		if err != nil {
			return nil, err
		}

		moves = append(moves, *result)
		moved[result.Source] = struct{}{}
		summary.MovedCount++
		summary.TotalFreedKB += result.SizeKB
		summary.MovedPaths = append(summary.MovedPaths, result.Source)
	}

	if finalPct, serr := l.space.FreePercent(gatePath); serr == nil {
		summary.FinalFreePct = finalPct
	} else {
		l.logger.Warn("could not compute final free space", zap.Error(serr))
		summary.FinalFreePct = freePct
	}

	l.finish(summary, moves)
	return summary, nil
}

// finish stamps the summary and hands it to the collaborators, all best
// effort.
func (l *Loop) finish(summary *domain.RunSummary, moves []domain.MoveResult) {
	summary.FinishedAt = time.Now()

	l.logger.Info("run finished",
		zap.Int("moved", summary.MovedCount),
		zap.Int64("total_freed_kb", summary.TotalFreedKB),
		zap.Int("final_free_pct", summary.FinalFreePct),
		zap.Bool("dry_run", summary.DryRun))

	if l.notifier != nil {
		if err := l.notifier.NotifySummary(summary); err != nil {
			l.logger.Warn("summary notification failed", zap.Error(err))
		}
	}
	if l.history != nil {
		if err := l.history.RecordRun(summary, moves); err != nil {
			l.logger.Warn("failed to record run history", zap.Error(err))
		}
	}
}

// reportFailure logs the abort and attempts a failure notification.
func (l *Loop) reportFailure(runErr error) {
	l.logger.Error("run aborted", zap.Error(runErr))
	if l.notifier == nil {
		return
	}
	report := &domain.ErrorReport{
		Message:    runErr.Error(),
		OccurredAt: time.Now(),
	}
	if l.logTail != nil {
		report.RecentLogLines = l.logTail()
	}
	if nerr := l.notifier.NotifyError(report); nerr != nil {
		l.logger.Warn("failure notification failed", zap.Error(nerr))
	}
}
