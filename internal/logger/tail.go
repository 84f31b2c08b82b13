package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

const defaultTailLines = 50

// tailBuffer is a bounded, thread-safe ring of formatted log lines.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func (b *tailBuffer) append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

// Lines returns a copy of the retained lines, oldest first.
func (b *tailBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// tailCore is a zapcore.Core that keeps the last N formatted log lines
// in memory so an error report can include recent context. With-derived
// cores share the same buffer.
type tailCore struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
	buf *tailBuffer
}

func newTailCore(enc zapcore.Encoder, enab zapcore.LevelEnabler, maxLines int) *tailCore {
	return &tailCore{
		LevelEnabler: enab,
		enc:          enc,
		buf:          &tailBuffer{max: maxLines},
	}
}

func (c *tailCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &tailCore{
		LevelEnabler: c.LevelEnabler,
		enc:          c.enc.Clone(),
		buf:          c.buf,
	}
	for i := range fields {
		fields[i].AddTo(clone.enc)
	}
	return clone
}

func (c *tailCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *tailCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	line := strings.TrimRight(buf.String(), "\n")
	buf.Free()
	c.buf.append(line)
	return nil
}

func (c *tailCore) Sync() error { return nil }

// Lines returns the retained lines, oldest first.
func (c *tailCore) Lines() []string {
	return c.buf.Lines()
}
