// Package logger is the process-wide diagnostic logger. Messages go to
// stderr so that command output on stdout stays clean.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	testOutput   io.Writer
	testOutputMu sync.Mutex
)

// Fields carries structured key/value pairs.
type Fields = logrus.Fields

var logger *logrus.Logger

// SetTestOutput redirects log output for tests.
func SetTestOutput(w io.Writer) {
	testOutputMu.Lock()
	defer testOutputMu.Unlock()
	testOutput = w
}

// UnsetTestOutput restores the default output.
func UnsetTestOutput() {
	testOutputMu.Lock()
	defer testOutputMu.Unlock()
	testOutput = nil
}

func getOutput() io.Writer {
	testOutputMu.Lock()
	defer testOutputMu.Unlock()
	if testOutput != nil {
		return testOutput
	}
	return os.Stderr
}

// InitLogger initializes the global logger. Unknown levels fall back to info.
func InitLogger(logLevel string, noColor bool) {
	l := logrus.New()
	l.SetOutput(getOutput())

	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    noColor,
		DisableTimestamp: true,
	})
	logger = l
}

// GetLogger returns the configured logger, initializing it on first use.
func GetLogger() *logrus.Logger {
	if logger == nil {
		InitLogger("info", false)
	}
	return logger
}

// IsDebug reports whether debug messages are emitted.
func IsDebug() bool {
	return GetLogger().IsLevelEnabled(logrus.DebugLevel)
}

// Info logs an info message.
func Info(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Info(msg)
}

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) {
	GetLogger().Info(fmt.Sprintf(format, args...))
}

// Debug logs a debug message.
func Debug(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Debug(msg)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func Warn(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Warn(msg)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(fmt.Sprintf(format, args...))
}

// Error logs an error message.
func Error(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Error(msg)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(fmt.Sprintf(format, args...))
}

// Success logs an info message tagged with status=success.
func Success(msg string, fields ...Fields) {
	merged := mergeFields(fields...)
	merged["status"] = "success"
	GetLogger().WithFields(merged).Info(msg)
}

func mergeFields(fields ...Fields) Fields {
	result := make(Fields)
	for _, field := range fields {
		for k, v := range field {
			result[k] = v
		}
	}
	return result
}
