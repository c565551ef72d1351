package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogDir holds one log file per process.
const LogDir = "/tmp/deploybench"

type loggerContextKey struct{}

var (
	logFile    *os.File
	logFileErr error
	once       sync.Once
)

func getLogFile() (*os.File, error) {
	once.Do(func() {
		if err := os.MkdirAll(LogDir, 0o755); err != nil {
			logFileErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}

		timestamp := time.Now().Format("2006-01-02-15-04-05")
		logPath := filepath.Join(LogDir, fmt.Sprintf("deploybench-%s.log", timestamp))

		//nolint:gosec // G302: valid perm
		logFile, logFileErr = os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if logFileErr != nil {
			logFileErr = fmt.Errorf("failed to open log file: %w", logFileErr)
		}
	})

	return logFile, logFileErr
}

func CloseLogFile() {
	if logFile != nil {
		_ = logFile.Sync()
		_ = logFile.Close()
	}
}

// DefaultLogger tees to stdout and the process log file. When the log file
// cannot be opened it falls back to a stdout-only logger.
func DefaultLogger(devLogging bool, options ...zap.Option) (*zap.Logger, error) {
	var encoder zapcore.Encoder
	var logLevel zapcore.Level

	if devLogging {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
		logLevel = zap.DebugLevel
	} else {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
		logLevel = zap.InfoLevel
	}

	stdoutCore := zapcore.NewCore(
		encoder,
		zapcore.AddSync(os.Stdout),
		logLevel,
	)

	logFile, err := getLogFile()
	if err != nil {
		return zap.New(stdoutCore, options...), err
	}

	fileCore := zapcore.NewCore(
		encoder,
		zapcore.AddSync(logFile),
		logLevel,
	)

	core := zapcore.NewTee(stdoutCore, fileCore)

	logger := zap.New(core, options...)

	return logger, nil
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

func FromContext(ctx context.Context) *zap.Logger {
	logger, ok := ctx.Value(loggerContextKey{}).(*zap.Logger)
	if ok {
		return logger
	}

	return zap.NewNop()
}
