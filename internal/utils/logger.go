// internal/utils/logger.go
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig controls where and how much the global logger writes.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Pretty bool   // console writer instead of JSON on stdout
	File   string // optional JSON log file, appended to
	Output io.Writer
}

// Logger wraps zerolog with the map-of-fields API used across the services.
type Logger struct {
	zlog zerolog.Logger
	file *os.File
}

var (
	globalLogger *Logger
	loggerMu     sync.Mutex
)

// GetLogger returns the global logger, creating a console logger at info level on first use.
func GetLogger() *Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if globalLogger == nil {
		globalLogger = newLogger(LogConfig{Level: "info", Pretty: true}, nil)
	}
	return globalLogger
}

// InitLogger replaces the global logger. The previous log file, if any, is closed.
func InitLogger(cfg LogConfig) error {
	var file *os.File
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()

	if globalLogger != nil && globalLogger.file != nil {
		globalLogger.file.Close()
	}
	globalLogger = newLogger(cfg, file)
	return nil
}

func newLogger(cfg LogConfig, file *os.File) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if file != nil {
		out = zerolog.MultiLevelWriter(out, file)
	}

	zlog := zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "psychopedia").
		Logger()

	return &Logger{zlog: zlog, file: file}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// With returns a child logger tagged with a component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", component).Logger()}
}

// Zerolog exposes the underlying logger for callers that want the event API.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

func (l *Logger) log(event *zerolog.Event, message string, fields map[string]interface{}) {
	if len(fields) > 0 {
		event = event.Fields(fields)
	}
	event.Msg(message)
}

func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(l.zlog.Debug(), message, fields)
}

func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(l.zlog.Info(), message, fields)
}

func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(l.zlog.Warn(), message, fields)
}

func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(l.zlog.Error(), message, fields)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(message string, fields map[string]interface{}) {
	l.log(l.zlog.Fatal(), message, fields)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.zlog.Fatal().Msgf(format, args...)
}
