package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileLogger appends plain-text run logs to a directory.
// Each logger owns one run-YYYYMMDD-HHMMSS.log file and points latest.log at it.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates logDir if needed and opens a fresh run log.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", stamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}
	fl.write(fmt.Sprintf("=== destclean run log ===\nStarted at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of the log file being written.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) LogDebug(message string) { fl.logWithLevel("DEBUG", message) }
func (fl *FileLogger) LogInfo(message string)  { fl.logWithLevel("INFO", message) }
func (fl *FileLogger) LogWarn(message string)  { fl.logWithLevel("WARN", message) }
func (fl *FileLogger) LogError(message string) { fl.logWithLevel("ERROR", message) }

// LogPatterns records the full pattern list.
func (fl *FileLogger) LogPatterns(patterns []string) {
	if !shouldLog(fl.logLevel, "info") {
		return
	}
	fl.write(fmt.Sprintf("[%s] Patterns for deletion:\n  %s\n", timestamp(), strings.Join(patterns, "\n  ")))
}

// LogDeleted records the completion count.
func (fl *FileLogger) LogDeleted(count int) {
	fl.logWithLevel("INFO", fmt.Sprintf("%s Deleted %d files and/or directories", Tag, count))
}

// LogDeletedPaths records the dry-run path list.
func (fl *FileLogger) LogDeletedPaths(paths []string) {
	if !shouldLog(fl.logLevel, "info") || len(paths) == 0 {
		return
	}
	fl.write("  " + strings.Join(paths, "\n  ") + "\n")
}

func (fl *FileLogger) logWithLevel(level, message string) {
	if !shouldLog(fl.logLevel, strings.ToLower(level)) {
		return
	}
	fl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

func (fl *FileLogger) write(s string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog != nil {
		fl.runLog.WriteString(s)
	}
}

// Close flushes and closes the run log.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog == nil {
		return nil
	}
	err := fl.runLog.Close()
	fl.runLog = nil
	return err
}

// MultiLogger fans every message out to several loggers.
type MultiLogger []Logger

func (m MultiLogger) LogDebug(message string) {
	for _, l := range m {
		l.LogDebug(message)
	}
}

func (m MultiLogger) LogInfo(message string) {
	for _, l := range m {
		l.LogInfo(message)
	}
}

func (m MultiLogger) LogWarn(message string) {
	for _, l := range m {
		l.LogWarn(message)
	}
}

func (m MultiLogger) LogError(message string) {
	for _, l := range m {
		l.LogError(message)
	}
}

func (m MultiLogger) LogPatterns(patterns []string) {
	for _, l := range m {
		l.LogPatterns(patterns)
	}
}

func (m MultiLogger) LogDeleted(count int) {
	for _, l := range m {
		l.LogDeleted(count)
	}
}

func (m MultiLogger) LogDeletedPaths(paths []string) {
	for _, l := range m {
		l.LogDeletedPaths(paths)
	}
}
