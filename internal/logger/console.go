// Package logger provides logging implementations for destclean runs.
//
// Every logger satisfies cleaner.Logger, so it can be handed straight to a
// cleaner.Stage, and adds leveled free-form messages for the CLI.
// Implementations are safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/destclean/internal/cleaner"
	"github.com/mattn/go-isatty"
)

// Tag is the prefix used on completion messages.
const Tag = "destclean"

// Logger is the full logging surface used by the CLI.
type Logger interface {
	cleaner.Logger
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// ConsoleLogger writes [HH:MM:SS] prefixed messages to a writer.
// Color output is enabled for terminals unless NO_COLOR is set.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to writer.
// A nil writer discards everything; an unknown level falls back to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a TTY that should receive ANSI colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor && (f == os.Stdout || f == os.Stderr) {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// LogPatterns dumps the pattern list handed to the deleter, one per line.
func (cl *ConsoleLogger) LogPatterns(patterns []string) {
	if !cl.enabled("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Patterns for deletion:\n", ts)
	for _, p := range patterns {
		if cl.colorOutput {
			if cleaner.IsKeep(p) {
				p = color.New(color.FgGreen).Sprint(p)
			} else {
				p = color.New(color.FgRed).Sprint(p)
			}
		}
		fmt.Fprintf(&b, "  %s\n", p)
	}
	cl.writer.Write([]byte(b.String()))
}

// LogDeleted logs the completion message with the number of removed entries.
// Format: "[HH:MM:SS] destclean Deleted <n> files and/or directories"
func (cl *ConsoleLogger) LogDeleted(count int) {
	if !cl.enabled("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	tag := Tag
	if cl.colorOutput {
		tag = color.New(color.FgMagenta).Sprint(Tag)
	}
	fmt.Fprintf(cl.writer, "[%s] %s Deleted %d files and/or directories\n", timestamp(), tag, count)
}

// LogDeletedPaths lists the paths a dry run would remove.
func (cl *ConsoleLogger) LogDeletedPaths(paths []string) {
	if !cl.enabled("info") || len(paths) == 0 {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	var b strings.Builder
	for _, p := range paths {
		if cl.colorOutput {
			p = color.New(color.FgYellow).Sprint(p)
		}
		fmt.Fprintf(&b, "  %s\n", p)
	}
	cl.writer.Write([]byte(b.String()))
}

func (cl *ConsoleLogger) enabled(level string) bool {
	return cl.writer != nil && shouldLog(cl.logLevel, level)
}

// logWithLevel writes message if the configured level allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if !cl.enabled(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		cl.writer.Write([]byte(fmt.Sprintf("[%s] [%s] %s\n", ts, colorLevel(level), message)))
		return
	}
	cl.writer.Write([]byte(fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)))
}

func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// timestamp returns the current time formatted as "15:04:05".
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// NoOpLogger discards all messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogDebug(string)          {}
func (n *NoOpLogger) LogInfo(string)           {}
func (n *NoOpLogger) LogWarn(string)           {}
func (n *NoOpLogger) LogError(string)          {}
func (n *NoOpLogger) LogPatterns([]string)     {}
func (n *NoOpLogger) LogDeleted(int)           {}
func (n *NoOpLogger) LogDeletedPaths([]string) {}
