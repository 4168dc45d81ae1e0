// Package logger is the gateway's ambient logging sink: an in-memory
// ring buffer of the most recent entries plus a background goroutine
// that appends them to a file under the app's log directory, named for
// the date Init ran and truncated once it grows past 5MB. Secrets are redacted before an entry ever reaches memory
// or disk.
package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// LogEntry represents a single log record.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

var (
	mu          sync.RWMutex
	logEntries  []LogEntry
	maxEntries  = 1000                  // Keep last 1000 in memory
	maxFileSize = int64(5 * 1024 * 1024) // 5MB limit
	logFilePath string
	logFile     *os.File
	logChan     = make(chan LogEntry, 100)
	done        chan struct{}
	workerDone  chan struct{}
	subscribers = make(map[chan LogEntry]bool)
	subsMu      sync.RWMutex
	debugLevel  bool

	// Redaction regexes: OAuth access/refresh tokens and full
	// Authorization: Bearer headers must never reach a log line, whether
	// they appear as a JSON field or a raw header string.
	accessTokenRegex  = regexp.MustCompile(`("?access_token"?\s*[:=]\s*"?)[^"\s,}]+`)
	refreshTokenRegex = regexp.MustCompile(`("?refresh_token"?\s*[:=]\s*"?)[^"\s,}]+`)
	bearerHeaderRegex = regexp.MustCompile(`(?i)(Authorization:\s*Bearer\s+)\S+`)
)

// Init initializes the logging system. appDir is the gateway's config
// directory (e.g. ~/.please); logs are written under appDir/logs.
// MCP_GATEWAY_DEBUG=true raises the minimum logged level to include
// Debug lines.
func Init(appDir string) error {
	mu.Lock()
	defer mu.Unlock()

	logDir := filepath.Join(appDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("logger: create log directory: %w", err)
	}

	logFilePath = filepath.Join(logDir, time.Now().Format("2006-01-02")+".log")

	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("logger: open log file: %w", err)
	}
	logFile = f
	debugLevel = os.Getenv("MCP_GATEWAY_DEBUG") == "true"

	done = make(chan struct{})
	workerDone = make(chan struct{})
	go logWorker()

	return nil
}

// Redact strips OAuth access tokens, refresh tokens, and bearer
// credentials from msg. Exported so callers building error messages
// from upstream responses can redact before ever calling AddLog.
func Redact(msg string) string {
	msg = accessTokenRegex.ReplaceAllString(msg, "${1}REDACTED")
	msg = refreshTokenRegex.ReplaceAllString(msg, "${1}REDACTED")
	msg = bearerHeaderRegex.ReplaceAllString(msg, "${1}REDACTED")
	return msg
}

// AddLog adds a new log entry. Debug-level entries are dropped unless
// MCP_GATEWAY_DEBUG=true was set at Init time.
func AddLog(level, message string) {
	mu.RLock()
	skip := level == "DEBUG" && !debugLevel
	mu.RUnlock()
	if skip {
		return
	}

	message = Redact(message)

	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Message:   message,
	}

	mu.Lock()
	logEntries = append(logEntries, entry)
	if len(logEntries) > maxEntries {
		logEntries = logEntries[len(logEntries)-maxEntries:]
	}
	mu.Unlock()

	select {
	case logChan <- entry:
	default:
		// Drop log if channel is full to avoid blocking the caller.
	}

	subsMu.RLock()
	for sub := range subscribers {
		select {
		case sub <- entry:
		default:
			// Drop if subscriber is slow.
		}
	}
	subsMu.RUnlock()
}

// Debug logs a debug-level line, visible only when MCP_GATEWAY_DEBUG=true.
func Debug(format string, args ...interface{}) { AddLog("DEBUG", fmt.Sprintf(format, args...)) }

// Info logs an info-level line.
func Info(format string, args ...interface{}) { AddLog("INFO", fmt.Sprintf(format, args...)) }

// Warn logs a warning-level line.
func Warn(format string, args ...interface{}) { AddLog("WARN", fmt.Sprintf(format, args...)) }

// Error logs an error-level line.
func Error(format string, args ...interface{}) { AddLog("ERROR", fmt.Sprintf(format, args...)) }

// Subscribe returns a channel that receives new log entries.
func Subscribe() chan LogEntry {
	subsMu.Lock()
	defer subsMu.Unlock()
	ch := make(chan LogEntry, 100)
	subscribers[ch] = true
	return ch
}

// Unsubscribe removes a log subscriber.
func Unsubscribe(ch chan LogEntry) {
	subsMu.Lock()
	defer subsMu.Unlock()
	delete(subscribers, ch)
	close(ch)
}

// GetLogs returns a copy of every log entry currently in memory.
func GetLogs() []LogEntry {
	mu.RLock()
	defer mu.RUnlock()

	res := make([]LogEntry, len(logEntries))
	copy(res, logEntries)
	return res
}

// ClearLogs wipes both memory and file logs.
func ClearLogs() error {
	mu.Lock()
	defer mu.Unlock()

	logEntries = []LogEntry{}

	if logFile != nil {
		logFile.Close()
	}

	f, err := os.OpenFile(logFilePath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	logFile = f

	return nil
}

// GetLogFilePath returns the path to the current log file.
func GetLogFilePath() string {
	mu.RLock()
	defer mu.RUnlock()
	return logFilePath
}

// Close flushes and closes the log file.
func Close() {
	if done != nil {
		close(done)
		if workerDone != nil {
			<-workerDone // Wait for worker to finish.
		}
	}

	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func logWorker() {
	defer close(workerDone)
	for {
		select {
		case entry := <-logChan:
			writeEntry(entry)
		case <-done:
			for {
				select {
				case entry := <-logChan:
					writeEntry(entry)
				default:
					return
				}
			}
		}
	}
}

func writeEntry(entry LogEntry) {
	mu.Lock()
	defer mu.Unlock()

	f := logFile
	if f == nil {
		return
	}

	if info, err := f.Stat(); err == nil && info.Size() > maxFileSize {
		f.Close()
		reopened, err := os.OpenFile(logFilePath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			logFile = reopened
			f = reopened
			truncateEntry := LogEntry{
				Timestamp: time.Now().Format(time.RFC3339),
				Level:     "INFO",
				Message:   "Log file reached 5MB limit and was truncated.",
			}
			data, _ := json.Marshal(truncateEntry)
			f.Write(data)
			f.Write([]byte("\n"))
		} else {
			return
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	f.Write(data)
	f.Write([]byte("\n"))
}
