package logger

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/harrison/destclean/internal/cleaner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Logger         = (*ConsoleLogger)(nil)
	_ Logger         = (*FileLogger)(nil)
	_ Logger         = (*NoOpLogger)(nil)
	_ Logger         = MultiLogger(nil)
	_ cleaner.Logger = (*ConsoleLogger)(nil)
)

var tsPrefix = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] `)

func TestConsoleLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{level: "debug", want: []string{"[DEBUG] d", "[INFO] i", "[WARN] w", "[ERROR] e"}},
		{level: "info", want: []string{"[INFO] i", "[WARN] w", "[ERROR] e"}},
		{level: "warn", want: []string{"[WARN] w", "[ERROR] e"}},
		{level: "error", want: []string{"[ERROR] e"}},
		{level: "bogus", want: []string{"[INFO] i", "[WARN] w", "[ERROR] e"}},
		{level: " WARN ", want: []string{"[WARN] w", "[ERROR] e"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			cl := NewConsoleLogger(&buf, tt.level)
			cl.LogDebug("d")
			cl.LogInfo("i")
			cl.LogWarn("w")
			cl.LogError("e")

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, len(tt.want))
			for i, line := range lines {
				assert.Regexp(t, tsPrefix, line)
				assert.Equal(t, tt.want[i], tsPrefix.ReplaceAllString(line, ""))
			}
		})
	}
}

func TestConsoleLoggerNilWriter(t *testing.T) {
	cl := NewConsoleLogger(nil, "debug")
	assert.NotPanics(t, func() {
		cl.LogInfo("x")
		cl.LogPatterns([]string{"lib/**"})
		cl.LogDeleted(1)
		cl.LogDeletedPaths([]string{"lib/a"})
	})
}

func TestConsoleLoggerBufferIsNotColored(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	assert.False(t, cl.colorOutput)

	cl.LogDeleted(3)
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "destclean Deleted 3 files and/or directories")
}

func TestConsoleLoggerPatternDump(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	cl.LogPatterns([]string{"lib/**", "!lib", "!lib/a.js"})

	out := buf.String()
	assert.Contains(t, out, "Patterns for deletion:")
	assert.Contains(t, out, "  lib/**\n  !lib\n  !lib/a.js\n")
}

func TestConsoleLoggerDeletedPaths(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.LogDeletedPaths(nil)
	assert.Empty(t, buf.String())

	cl.LogDeletedPaths([]string{"lib/old.js", "lib/stale"})
	assert.Equal(t, "  lib/old.js\n  lib/stale\n", buf.String())
}

func TestConsoleLoggerRespectsLevelForRunOutput(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "error")
	cl.LogPatterns([]string{"lib/**"})
	cl.LogDeleted(2)
	cl.LogDeletedPaths([]string{"lib/a"})

	assert.Empty(t, buf.String())
}
