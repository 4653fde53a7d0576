package progress

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig selects the log level and an optional rotating log file.
type LogConfig struct {
	Verbose bool
	Logfile string
	MaxSize int // megabytes
	MaxAge  int // days
}

// NewLogger builds a console logger on stderr, tee'd into a rotating file
// when Logfile is set.
func NewLogger(c LogConfig) *zap.SugaredLogger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if c.Verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	if c.Logfile != "" {
		file := &lumberjack.Logger{
			Filename: c.Logfile,
			MaxSize:  c.MaxSize,
			MaxAge:   c.MaxAge,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(file),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...)).Sugar()
}
