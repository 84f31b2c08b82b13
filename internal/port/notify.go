package port

import "github.com/skgchp/shoveover/internal/domain"

// Notifier receives the outcome of a run. Formatting and delivery are
// the collaborator's concern; the engine only produces the values.
type Notifier interface {
	NotifySummary(summary *domain.RunSummary) error
	NotifyError(report *domain.ErrorReport) error
}

// Monitor is the terminal-monitoring session collaborator. The engine
// tells it what to watch at run start and tears it down at run end; its
// failures never affect the run.
type Monitor interface {
	Start(logTarget string) error
	Stop() error
}

// History persists run outcomes for later inspection. Optional; the
// engine treats recording failures as best-effort.
type History interface {
	RecordRun(summary *domain.RunSummary, moves []domain.MoveResult) error
	Close() error
}
