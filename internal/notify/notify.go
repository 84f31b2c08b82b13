package notify

import (
	"github.com/skgchp/shoveover/internal/domain"
	"github.com/skgchp/shoveover/internal/port"
	"go.uber.org/zap"
)

// LogNotifier renders run outcomes to the structured log. Formatting
// for richer channels (email and the like) belongs in whatever consumes
// these log lines or replaces this implementation.
type LogNotifier struct {
	logger *zap.Logger
}

// Ensure LogNotifier implements port.Notifier
var _ port.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifySummary(summary *domain.RunSummary) error {
	n.logger.Info("run summary",
		zap.Time("started_at", summary.StartedAt),
		zap.Time("finished_at", summary.FinishedAt),
		zap.Int("moved_count", summary.MovedCount),
		zap.Int64("total_freed_kb", summary.TotalFreedKB),
		zap.Int("final_free_pct", summary.FinalFreePct),
		zap.Strings("moved_paths", summary.MovedPaths),
		zap.Bool("dry_run", summary.DryRun))
	return nil
}

func (n *LogNotifier) NotifyError(report *domain.ErrorReport) error {
	n.logger.Error("run failure report",
		zap.String("message", report.Message),
		zap.Time("occurred_at", report.OccurredAt),
		zap.Strings("recent_log_lines", report.RecentLogLines))
	return nil
}
