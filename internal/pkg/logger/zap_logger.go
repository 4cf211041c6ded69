package logger

import (
	"bufio"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

type ZapLogger struct {
	logger   *zap.Logger
	filePath string
}

// Options selects where entries go. The JSON file is always written; the
// console stream is only attached for processes that own their stderr.
type Options struct {
	FilePath string
	Level    zapcore.Level
	// Console mirrors entries to stderr.
	Console bool
	// ConsoleJSON keeps the console stream machine readable.
	ConsoleJSON bool
}

// ParseLevel maps LOG_LEVEL values onto zap levels, falling back to info.
func ParseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func fileEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.LevelKey = "level"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// New builds a logger writing JSON lines to a size rotated file.
func New(opts Options) *ZapLogger {
	rotator := &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	cores := []zapcore.Core{zapcore.NewCore(fileEncoder(), zapcore.AddSync(rotator), opts.Level)}

	if opts.Console {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		if opts.ConsoleJSON {
			enc = fileEncoder()
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), opts.Level))
	}

	return &ZapLogger{
		logger:   zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2)),
		filePath: opts.FilePath,
	}
}

// NewNopLogger discards everything.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func (l *ZapLogger) write(level zapcore.Level, module, message string, details map[string]interface{}) {
	ce := l.logger.Check(level, message)
	if ce == nil {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}
	fields := []zap.Field{zap.String("module", module), zap.Any("details", details)}
	if err, ok := details["error"]; ok && level >= zapcore.ErrorLevel {
		fields = append(fields, zap.Any("error_ref", err))
	}
	ce.Write(fields...)
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.write(zapcore.DebugLevel, module, message, details)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.write(zapcore.InfoLevel, module, message, details)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.write(zapcore.WarnLevel, module, message, details)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.write(zapcore.ErrorLevel, module, message, details)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// LogEntry is one decoded line of the JSON log file.
type LogEntry struct {
	Id        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Module    string                 `json:"module,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// LogFilter narrows ReadLogs. Zero values match everything.
type LogFilter struct {
	Level  string // CapitalLevelEncoder form, e.g. "WARN"
	Module string
	Since  time.Time
	Limit  int
}

func (f LogFilter) match(e LogEntry) bool {
	if f.Level != "" && e.Level != f.Level {
		return false
	}
	if f.Module != "" && e.Module != f.Module {
		return false
	}
	if !f.Since.IsZero() {
		at, err := time.Parse(iso8601, e.Timestamp)
		if err != nil || at.Before(f.Since) {
			return false
		}
	}
	return true
}

// layout written by zapcore.ISO8601TimeEncoder
const iso8601 = "2006-01-02T15:04:05.000Z0700"

// ReadLogs returns matching entries of the JSON log file, newest first.
// A missing file reads as empty. With a limit only the newest entries are
// held in memory while scanning.
func ReadLogs(filePath string, filter LogFilter) ([]LogEntry, error) {
	file, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return []LogEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var tail []LogEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry LogEntry
		if json.Unmarshal(scanner.Bytes(), &entry) != nil || !filter.match(entry) {
			continue
		}
		if entry.Id == "" {
			entry.Id = fmt.Sprintf("%x", md5.Sum(scanner.Bytes()))
		}
		tail = append(tail, entry)
		if filter.Limit > 0 && len(tail) > filter.Limit {
			tail = tail[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	newest := make([]LogEntry, len(tail))
	for i, e := range tail {
		newest[len(tail)-1-i] = e
	}
	return newest, nil
}

// FilePath returns the rotated log file, empty for the nop logger.
func (l *ZapLogger) FilePath() string {
	return l.filePath
}
