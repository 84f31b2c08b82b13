package notify

import (
	"github.com/skgchp/shoveover/internal/port"
	"go.uber.org/zap"
)

// Session is the terminal-monitoring collaborator. This implementation
// only announces what to watch; an operator-side wrapper can attach a
// real viewer to the announced target. The engine ignores its failures
// either way.
type Session struct {
	logger *zap.Logger

	target string
	active bool
}

// Ensure Session implements port.Monitor
var _ port.Monitor = (*Session)(nil)

// NewSession creates a new monitoring session
func NewSession(logger *zap.Logger) *Session {
	return &Session{logger: logger}
}

func (s *Session) Start(logTarget string) error {
	s.target = logTarget
	s.active = true
	s.logger.Info("start monitoring", zap.String("target", logTarget))
	return nil
}

func (s *Session) Stop() error {
	if !s.active {
		return nil
	}
	s.active = false
	s.logger.Info("stop monitoring", zap.String("target", s.target))
	return nil
}
