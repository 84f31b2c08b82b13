package lock

import (
	"os"

	"github.com/skgchp/shoveover/internal/domain"
	"github.com/skgchp/shoveover/internal/port"
	"go.uber.org/zap"
)

// TerminatePolicy kills a hung lock owner so the run can proceed. The
// signal is best effort: a failed kill is logged and acquisition still
// goes ahead, since the owner already blew its staleness budget.
type TerminatePolicy struct {
	logger *zap.Logger
}

// Ensure TerminatePolicy implements port.StalePolicy
var _ port.StalePolicy = (*TerminatePolicy)(nil)

// NewTerminatePolicy creates the default staleness policy.
func NewTerminatePolicy(logger *zap.Logger) *TerminatePolicy {
	return &TerminatePolicy{logger: logger}
}

func (p *TerminatePolicy) HandleStale(state domain.LockState) error {
	proc, err := os.FindProcess(state.PID)
	if err != nil {
		p.logger.Warn("stale lock owner not found", zap.Int("pid", state.PID), zap.Error(err))
		return nil
	}
	if err := proc.Kill(); err != nil {
		p.logger.Warn("failed to terminate stale lock owner",
			zap.Int("pid", state.PID),
			zap.Error(err))
	} else {
		p.logger.Warn("terminated stale lock owner", zap.Int("pid", state.PID))
	}
	return nil
}

// RefusePolicy never breaks a stale lock held by a live process; it
// aborts the run instead so an operator can investigate.
type RefusePolicy struct {
	logger *zap.Logger
}

// Ensure RefusePolicy implements port.StalePolicy
var _ port.StalePolicy = (*RefusePolicy)(nil)

// NewRefusePolicy creates the conservative staleness policy.
func NewRefusePolicy(logger *zap.Logger) *RefusePolicy {
	return &RefusePolicy{logger: logger}
}

func (p *RefusePolicy) HandleStale(state domain.LockState) error {
	p.logger.Error("refusing to break stale lock held by live process",
		zap.Int("pid", state.PID),
		zap.Time("acquired_at", state.AcquiredAt))
	return domain.ErrStaleLockRefused
}
