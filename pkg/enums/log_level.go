package enums

import "fmt"

// LogLevel classifies audit log entries.
type LogLevel string

const (
	LogLevelError LogLevel = "error"
	LogLevelWarn  LogLevel = "warn"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

var validLogLevels = []LogLevel{
	LogLevelError,
	LogLevelWarn,
	LogLevelInfo,
	LogLevelDebug,
}

// IsValid reports whether the value matches the canonical log level enum.
func (l LogLevel) IsValid() bool {
	for _, candidate := range validLogLevels {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLogLevel converts the raw string to LogLevel.
func ParseLogLevel(value string) (LogLevel, error) {
	for _, candidate := range validLogLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid log level %q", value)
}

// LogLevelForStatus derives the audit level from an HTTP status code.
func LogLevelForStatus(status int) LogLevel {
	switch {
	case status >= 500:
		return LogLevelError
	case status >= 400:
		return LogLevelWarn
	default:
		return LogLevelInfo
	}
}
