// Package progress carries status and progress reports from the segmentation
// algorithms to whatever host is running them.
package progress

import (
	"sync"

	"go.uber.org/zap"
)

// Sink receives fire-and-forget progress notifications. Implementations must
// be safe for concurrent use and must never block the caller for long.
type Sink interface {
	ReportProgress(current, total int)
	ReportStatus(text string)
}

type nopSink struct{}

func (nopSink) ReportProgress(int, int) {}
func (nopSink) ReportStatus(string)     {}

// Nop discards every report.
var Nop Sink = nopSink{}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop
	}
	return s
}

// LogSink writes status lines at info level and progress at debug level,
// emitting at most one progress line per step percent.
type LogSink struct {
	logger *zap.SugaredLogger
	step   int

	mu      sync.Mutex
	status  string
	lastPct int
}

// NewLogSink returns a sink that logs to logger in 10% progress steps.
func NewLogSink(logger *zap.SugaredLogger) *LogSink {
	return &LogSink{logger: logger, step: 10, lastPct: -1}
}

// ReportStatus logs text and resets the progress throttle.
func (s *LogSink) ReportStatus(text string) {
	s.mu.Lock()
	s.status = text
	s.lastPct = -1
	s.mu.Unlock()
	s.logger.Info(text)
}

// ReportProgress logs current/total when it crosses a new step.
func (s *LogSink) ReportProgress(current, total int) {
	if total <= 0 {
		return
	}
	pct := current * 100 / total
	s.mu.Lock()
	if pct/s.step == s.lastPct/s.step && s.lastPct >= 0 {
		s.mu.Unlock()
		return
	}
	s.lastPct = pct
	status := s.status
	s.mu.Unlock()
	s.logger.Debugw("progress", "stage", status, "current", current, "total", total, "percent", pct)
}

// Counter turns completed work units into progress reports against a fixed
// total. It is safe for concurrent use.
type Counter struct {
	sink  Sink
	total int

	mu   sync.Mutex
	done int
}

// NewCounter starts a counter at zero.
func NewCounter(sink Sink, total int) *Counter {
	return &Counter{sink: OrNop(sink), total: total}
}

// Add records n more completed units and reports the new position.
func (c *Counter) Add(n int) {
	c.mu.Lock()
	c.done += n
	done := c.done
	c.mu.Unlock()
	c.sink.ReportProgress(done, c.total)
}
