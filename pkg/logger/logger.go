package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"htbwriteups/pkg/config"
)

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})

	// Zerolog returns the underlying zerolog instance
	Zerolog() *zerolog.Logger
}

// zlogger keeps bound fields in the zerolog context, so derived loggers
// share the writer and level of their parent.
type zlogger struct {
	zl zerolog.Logger
}

// New creates a Logger writing human-readable lines to stderr and, when
// configured, JSON lines to a log file.
func New(cfg *config.LoggingConfig) (Logger, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit console writer
func NewWithWriter(cfg *config.LoggingConfig, console io.Writer) (Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zerolog.TimeFieldFormat = time.RFC3339

	out := io.Writer(consoleWriter(console))
	if cfg.File != "" {
		file, err := openLogFile(cfg.File)
		if err != nil {
			return nil, err
		}
		out = zerolog.MultiLevelWriter(out, file)
	}

	return &zlogger{
		zl: zerolog.New(out).Level(level).With().Timestamp().Str("app", "htbwriteups").Logger(),
	}, nil
}

var levelTags = map[string]string{
	"debug": "\033[37mDEBG\033[0m",
	"info":  "\033[32mINFO\033[0m",
	"warn":  "\033[33mWARN\033[0m",
	"error": "\033[31mERRO\033[0m",
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           out,
		TimeFormat:    "15:04:05",
		FieldsExclude: []string{"app"},
		FormatLevel: func(i interface{}) string {
			level, _ := i.(string)
			if tag, ok := levelTags[level]; ok {
				return tag
			}
			return strings.ToUpper(level)
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("| %s", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("\033[36m%s\033[0m:", i)
		},
	}
}

// openLogFile appends JSON lines to path, creating its directory
func openLogFile(path string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// parseLogLevel accepts the configured level names plus "warning".
// An empty level means info.
func parseLogLevel(level string) (zerolog.Level, error) {
	switch level = strings.ToLower(level); level {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "debug", "info", "warn", "error", "disabled":
		return zerolog.ParseLevel(level)
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}

func (l *zlogger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *zlogger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *zlogger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *zlogger) Error(msg string) { l.zl.Error().Msg(msg) }

func (l *zlogger) WithField(key string, value interface{}) Logger {
	return &zlogger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *zlogger) WithFields(fields map[string]interface{}) Logger {
	return &zlogger{zl: l.zl.With().Fields(fields).Logger()}
}

func (l *zlogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return &zlogger{zl: l.zl.With().Err(err).Logger()}
}

func (l *zlogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *zlogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *zlogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *zlogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.zl.Error().Fields(fields).Msg(msg)
}

func (l *zlogger) Zerolog() *zerolog.Logger {
	return &l.zl
}

var globalLogger Logger

// Initialize sets up the global logger and points zerolog's global at it
func Initialize(cfg *config.LoggingConfig) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	globalLogger = l
	log.Logger = *l.Zerolog()
	return nil
}

// GetLogger returns the global logger, a warn-level stderr logger until
// Initialize runs.
func GetLogger() Logger {
	if globalLogger == nil {
		globalLogger, _ = New(&config.LoggingConfig{Level: "warn"})
	}
	return globalLogger
}

func Info(msg string)  { GetLogger().Info(msg) }
func Warn(msg string)  { GetLogger().Warn(msg) }
func Error(msg string) { GetLogger().Error(msg) }

func WithField(key string, value interface{}) Logger {
	return GetLogger().WithField(key, value)
}

func WithFields(fields map[string]interface{}) Logger {
	return GetLogger().WithFields(fields)
}

func WithError(err error) Logger {
	return GetLogger().WithError(err)
}
