package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"kioskcam/internal/config"
)

// Log file names served and truncated by the log endpoints.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		logDir: config.LogDirectory,
	}

	infoWriter := io.MultiWriter(os.Stdout, logger.openLogFile(InfoFile))
	warningWriter := io.MultiWriter(os.Stdout, logger.openLogFile(WarningFile))
	errorWriter := io.MultiWriter(os.Stderr, logger.openLogFile(ErrorFile))

	logger.setupLoggers(infoWriter, warningWriter, errorWriter)
	return logger
}

// NewWithWriters builds a Logger that writes each level to the given writer.
// It has no log directory, so CleanLogs is a no-op.
func NewWithWriters(info, warning, errs io.Writer) *Logger {
	logger := &Logger{}
	logger.setupLoggers(info, warning, errs)
	return logger
}

// NewDiscard returns a Logger that drops everything. Used by tests.
func NewDiscard() *Logger {
	return NewWithWriters(io.Discard, io.Discard, io.Discard)
}

func (l *Logger) setupLoggers(info, warning, errs io.Writer) {
	l.infoLog = log.New(info, "ℹ️  INFO    ", log.Ldate|log.Ltime|log.Lmicroseconds)
	l.warningLog = log.New(warning, "⚠️  WARNING ", log.Ldate|log.Ltime|log.Lmicroseconds)
	l.errorLog = log.New(errs, "❌ ERROR   ", log.Ldate|log.Ltime|log.Lmicroseconds)
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(name string) *os.File {
	filename := filepath.Join(l.logDir, name)
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", filename, err)
	}
	return file
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Printf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Printf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}

// Dir returns the directory the log files live in.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return nil
	}

	filePath := filepath.Join(l.logDir, fileName)
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return err
	}
	defer file.Close()

	l.Info("Log file %s has been cleared.", fileName)
	return nil
}
