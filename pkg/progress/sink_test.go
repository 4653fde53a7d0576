package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedSink() (*LogSink, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLogSink(zap.New(core).Sugar()), logs
}

func TestLogSinkThrottlesProgress(t *testing.T) {
	sink, logs := observedSink()

	sink.ReportStatus("Minimum filter 3x3x3...")
	for i := 0; i <= 100; i++ {
		sink.ReportProgress(i, 100)
	}

	assert.Equal(t, 1, logs.FilterMessage("Minimum filter 3x3x3...").Len())
	// one line per 10% step: 0,10,...,100
	assert.Equal(t, 11, logs.FilterMessage("progress").Len())
}

func TestLogSinkStatusResetsThrottle(t *testing.T) {
	sink, logs := observedSink()

	sink.ReportStatus("first")
	sink.ReportProgress(5, 10)
	sink.ReportStatus("second")
	sink.ReportProgress(5, 10)

	entries := logs.FilterMessage("progress").All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "second", entries[1].ContextMap()["stage"])
	}
}

func TestLogSinkIgnoresEmptyTotal(t *testing.T) {
	sink, logs := observedSink()
	sink.ReportProgress(0, 0)
	assert.Equal(t, 0, logs.Len())
}

type recordingSink struct {
	mu   sync.Mutex
	last int
	n    int
}

func (r *recordingSink) ReportProgress(current, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current > r.last {
		r.last = current
	}
	r.n++
}

func (r *recordingSink) ReportStatus(string) {}

func TestCounterConcurrentAdds(t *testing.T) {
	rec := &recordingSink{}
	c := NewCounter(rec, 64)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 64, rec.last)
	assert.Equal(t, 64, rec.n)
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop, OrNop(nil))
	rec := &recordingSink{}
	assert.Equal(t, Sink(rec), OrNop(rec))
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := t.TempDir() + "/watershed.log"
	logger := NewLogger(LogConfig{Verbose: true, Logfile: path, MaxSize: 1, MaxAge: 1})
	logger.Infow("segmented", "basins", 3)
	_ = logger.Sync()

	assert.FileExists(t, path)
}
