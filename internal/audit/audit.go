// Package audit provides security audit logging for FastGithub.
// It records every change FastGithub makes to CA material and to the
// operating system trust stores so the changes can be reviewed later.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType represents the type of audit event
type EventType string

const (
	// CA lifecycle
	EventCAGenerated   EventType = "CA_GENERATED"
	EventCAPublished   EventType = "CA_PUBLISHED"
	EventCAUninstalled EventType = "CA_UNINSTALLED"

	// Trust store changes
	EventCAInstalled      EventType = "CA_INSTALLED"
	EventCAAlreadyTrusted EventType = "CA_ALREADY_TRUSTED"
	EventCAStaleRemoved   EventType = "CA_STALE_REMOVED"

	// Host configuration
	EventGitConfigured EventType = "GIT_CONFIGURED"

	// Service lifecycle
	EventServiceStart EventType = "SERVICE_START"
	EventServiceStop  EventType = "SERVICE_STOP"
)

// Event represents an audit log entry
type Event struct {
	Timestamp   time.Time              `json:"timestamp"`
	Type        EventType              `json:"type"`
	Severity    string                 `json:"severity"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	User        string                 `json:"user,omitempty"`
	ProcessID   int                    `json:"process_id"`
	ProcessName string                 `json:"process_name"`
}

// Logger handles audit logging
type Logger struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
	logPath string
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// DefaultDir returns the audit directory used when none is configured
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".fastgithub", "audit")
	}
	return filepath.Join(home, ".fastgithub", "audit")
}

// NewLogger opens the audit log for today inside dir
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	logFile := fmt.Sprintf("audit-%s.log", time.Now().Format("2006-01-02"))
	logPath := filepath.Join(dir, logFile)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	return &Logger{
		file:    file,
		encoder: json.NewEncoder(file),
		logPath: logPath,
	}, nil
}

// Initialize sets up the process-wide audit logger. Calling it again
// replaces the previous logger.
func Initialize(dir string) error {
	if dir == "" {
		dir = DefaultDir()
	}

	logger, err := NewLogger(dir)
	if err != nil {
		return err
	}

	defaultMu.Lock()
	previous := defaultLogger
	defaultLogger = logger
	defaultMu.Unlock()

	if previous != nil {
		previous.file.Close()
	}

	Log(EventServiceStart, "info", "Audit logging initialized", nil)
	return nil
}

// Write records an event in this logger
func (l *Logger) Write(eventType EventType, severity string, message string, details map[string]interface{}) error {
	event := Event{
		Timestamp:   time.Now(),
		Type:        eventType,
		Severity:    severity,
		Message:     message,
		Details:     details,
		ProcessID:   os.Getpid(),
		ProcessName: filepath.Base(os.Args[0]),
	}

	// Add user if available
	if user := os.Getenv("USER"); user != "" {
		event.User = user
	} else if user := os.Getenv("USERNAME"); user != "" {
		event.User = user
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.encoder.Encode(event)
}

// Log records an audit event
func Log(eventType EventType, severity string, message string, details map[string]interface{}) {
	defaultMu.Lock()
	logger := defaultLogger
	defaultMu.Unlock()

	if logger != nil {
		if err := logger.Write(eventType, severity, message, details); err != nil {
			logrus.WithError(err).Error("Failed to write audit log")
		}
	}

	// Also log to standard logger for real-time monitoring
	logrus.WithFields(logrus.Fields{
		"audit_type": eventType,
		"severity":   severity,
		"details":    details,
	}).Debug(message)
}

// LogCAGenerated logs creation of a new root CA
func LogCAGenerated(subject string, serial string, notAfter time.Time, duration time.Duration) {
	Log(EventCAGenerated, "info", fmt.Sprintf("CA certificate for %s", subject), map[string]interface{}{
		"subject":   subject,
		"serial":    serial,
		"not_after": notAfter.Format(time.RFC3339),
		"duration":  duration.String(),
	})
}

// LogGitConfigured logs a change to the global git configuration
func LogGitConfigured(setting, value string, success bool) {
	severity := "info"
	if !success {
		severity = "warning"
	}

	Log(EventGitConfigured, severity, fmt.Sprintf("git %s", setting), map[string]interface{}{
		"setting": setting,
		"value":   value,
		"success": success,
	})
}

// Close closes the audit logger
func Close() error {
	defaultMu.Lock()
	logger := defaultLogger
	defaultMu.Unlock()

	if logger == nil {
		return nil
	}

	Log(EventServiceStop, "info", "Audit logging stopped", nil)

	defaultMu.Lock()
	defaultLogger = nil
	defaultMu.Unlock()
	return logger.file.Close()
}

// GetLogPath returns the current audit log path
func GetLogPath() string {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger != nil {
		return defaultLogger.logPath
	}
	return ""
}
