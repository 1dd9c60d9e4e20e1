// Package logging keeps CA private keys and cloud credentials out of the
// FastGithub logs.
package logging

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// redactions are applied in order to every message and string field
var redactions = []redaction{
	// PEM private keys, including the CA key
	{regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`), "[REDACTED-PRIVATE-KEY]"},
	// AWS Access Key ID (20 characters, starts with AKIA or ASIA)
	{regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`), "[REDACTED-AWS-KEY]"},
	// AWS Secret Access Key following its name
	{regexp.MustCompile(`(?i)(secret[_ -]?(?:access[_ -]?)?key["']?\s*[:=]\s*["']?)[A-Za-z0-9/+=]{40}`), "${1}[REDACTED]"},
}

// SensitiveFieldNames are field names that should be redacted
var SensitiveFieldNames = map[string]bool{
	"password":        true,
	"secret":          true,
	"token":           true,
	"accesskeyid":     true,
	"secretkey":       true,
	"secretaccesskey": true,
	"privatekey":      true,
	"private_key":     true,
	"keypem":          true,
	"credentials":     true,
}

// SanitizeString removes sensitive patterns from a string
func SanitizeString(s string) string {
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// SanitizeFields removes sensitive data from log fields
func SanitizeFields(fields logrus.Fields) logrus.Fields {
	sanitized := make(logrus.Fields, len(fields))

	for k, v := range fields {
		if SensitiveFieldNames[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
			continue
		}

		switch val := v.(type) {
		case string:
			sanitized[k] = SanitizeString(val)
		case []byte:
			sanitized[k] = SanitizeString(string(val))
		case error:
			// Keep the error type for logrus' error key
			if clean := SanitizeString(val.Error()); clean != val.Error() {
				sanitized[k] = fmt.Errorf("%s", clean)
			} else {
				sanitized[k] = val
			}
		default:
			sanitized[k] = v
		}
	}

	return sanitized
}

// SanitizingHook redacts every entry before it is written
type SanitizingHook struct{}

// NewSanitizingHook creates a new sanitizing hook
func NewSanitizingHook() *SanitizingHook {
	return &SanitizingHook{}
}

// Levels returns all log levels
func (h *SanitizingHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire sanitizes log entries before they're written
func (h *SanitizingHook) Fire(entry *logrus.Entry) error {
	entry.Message = SanitizeString(entry.Message)
	if entry.Data != nil {
		entry.Data = SanitizeFields(entry.Data)
	}
	return nil
}

// Setup configures the standard logger: level, text formatter with full
// timestamps and the sanitizing hook. Unknown levels fall back to info.
func Setup(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if !hasSanitizingHook(logrus.StandardLogger()) {
		logrus.AddHook(NewSanitizingHook())
	}

	if err != nil && level != "" {
		logrus.Warnf("Unknown log level %q, using info", level)
	}
}

func hasSanitizingHook(logger *logrus.Logger) bool {
	for _, hook := range logger.Hooks[logrus.InfoLevel] {
		if _, ok := hook.(*SanitizingHook); ok {
			return true
		}
	}
	return false
}
