// Package log provides a small leveled logger shared by every package in the
// engine. The level is stored atomically so the audio callback can emit debug
// lines without taking a lock.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// Level defines the severity of a log message.
type Level uint32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the fixed-width tag used as the line prefix.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a Level.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var currentLevel atomic.Uint32

// logger carries date and time with microseconds; useful when eyeballing
// callback timing from the log alone.
var logger = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level.
func SetLevel(level Level) {
	currentLevel.Store(uint32(level))
}

// GetLevel returns the current global logging level.
func GetLevel() Level {
	return Level(currentLevel.Load())
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func enabled(level Level) bool {
	return level >= GetLevel()
}

// Debugf logs a formatted debug message.
func Debugf(format string, v ...any) {
	if enabled(LevelDebug) {
		logger.Printf("[%-5s] %s", LevelDebug, fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted info message.
func Infof(format string, v ...any) {
	if enabled(LevelInfo) {
		logger.Printf("[%-5s] %s", LevelInfo, fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted warning message.
func Warnf(format string, v ...any) {
	if enabled(LevelWarn) {
		logger.Printf("[%-5s] %s", LevelWarn, fmt.Sprintf(format, v...))
	}
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...any) {
	if enabled(LevelError) {
		logger.Printf("[%-5s] %s", LevelError, fmt.Sprintf(format, v...))
	}
}

// Fatalf logs a formatted fatal message and exits. Fatal messages bypass the
// level check.
func Fatalf(format string, v ...any) {
	logger.Fatalf("[%-5s] %s", LevelFatal, fmt.Sprintf(format, v...))
}

// Debug logs a debug message.
func Debug(v ...any) {
	if enabled(LevelDebug) {
		logger.Printf("[%-5s] %s", LevelDebug, fmt.Sprint(v...))
	}
}

// Info logs an info message.
func Info(v ...any) {
	if enabled(LevelInfo) {
		logger.Printf("[%-5s] %s", LevelInfo, fmt.Sprint(v...))
	}
}

// Warn logs a warning message.
func Warn(v ...any) {
	if enabled(LevelWarn) {
		logger.Printf("[%-5s] %s", LevelWarn, fmt.Sprint(v...))
	}
}

// Error logs an error message.
func Error(v ...any) {
	if enabled(LevelError) {
		logger.Printf("[%-5s] %s", LevelError, fmt.Sprint(v...))
	}
}

// Fatal logs a fatal message and exits.
func Fatal(v ...any) {
	logger.Fatalf("[%-5s] %s", LevelFatal, fmt.Sprint(v...))
}
