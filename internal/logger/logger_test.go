package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	logger = nil
	InitLogger(level, true)
	defer func() { logger = nil }()

	fn()
	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:     "info log",
			level:    "info",
			logFn:    func() { Info("test info message") },
			contains: []string{"test info message", "level=info"},
		},
		{
			name:     "debug log with debug level",
			level:    "debug",
			logFn:    func() { Debug("test debug message") },
			contains: []string{"test debug message", "level=debug"},
		},
		{
			name:     "debug log with info level",
			level:    "info",
			logFn:    func() { Debug("test debug message") },
			excludes: []string{"test debug message"},
		},
		{
			name:     "warn log with fields",
			level:    "warn",
			logFn:    func() { Warn("test warning", Fields{"key1": "value1", "key2": 42}) },
			contains: []string{"test warning", "level=warning", "key1=value1", "key2=42"},
		},
		{
			name:     "info suppressed at error level",
			level:    "error",
			logFn:    func() { Info("hidden"); Error("shown") },
			contains: []string{"shown", "level=error"},
			excludes: []string{"hidden"},
		},
		{
			name:     "success log",
			level:    "info",
			logFn:    func() { Success("done", Fields{"repo": "main"}) },
			contains: []string{"done", "status=success", "repo=main"},
		},
		{
			name:     "formatted",
			level:    "debug",
			logFn:    func() { Debugf("progress %d%%", 40); Warnf("skip %s", "x") },
			contains: []string{"progress 40%", "skip x"},
		},
		{
			name:     "invalid level falls back to info",
			level:    "chatty",
			logFn:    func() { Debug("not shown"); Infof("shown %d", 1) },
			contains: []string{"shown 1"},
			excludes: []string{"not shown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(t, tt.level, tt.logFn)
			for _, s := range tt.contains {
				assert.Contains(t, output, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, output, s)
			}
		})
	}
}

func TestIsDebug(t *testing.T) {
	captureOutput(t, "debug", func() { assert.True(t, IsDebug()) })
	captureOutput(t, "info", func() { assert.False(t, IsDebug()) })
}

func TestMergeFields(t *testing.T) {
	merged := mergeFields(Fields{"a": 1, "b": 2}, Fields{"b": 3})
	assert.Equal(t, Fields{"a": 1, "b": 3}, merged)
}
