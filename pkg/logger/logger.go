package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// ParseLevel converts a config string ("debug", "info", ...) into a LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Process-wide defaults applied to every logger created after Configure.
var (
	defaultOutput io.Writer = os.Stdout
	defaultLevel            = LevelInfo
)

// Configure sets the output and minimum level used by New and NewWithComponent.
func Configure(out io.Writer, level LogLevel) {
	if out != nil {
		defaultOutput = out
	}
	defaultLevel = level
}

// Logger provides structured JSON logging without exposing sensitive information
type Logger struct {
	base      *logrus.Logger
	component string
}

// New creates a new logger instance
func New() *Logger {
	return NewWithComponent("app")
}

// NewWithComponent creates a new logger instance with a specific component name
func NewWithComponent(component string) *Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	base.SetOutput(defaultOutput)
	base.SetLevel(defaultLevel.logrusLevel())
	return &Logger{base: base, component: component}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.base.SetLevel(level.logrusLevel())
}

// SetOutput redirects log output (tests use a buffer)
func (l *Logger) SetOutput(out io.Writer) {
	l.base.SetOutput(out)
}

// Component returns the component name attached to every entry
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}, err error, operation string) {
	if !l.base.IsLevelEnabled(level.logrusLevel()) {
		return
	}

	entry := l.base.WithField("component", l.component)

	_, file, line, ok := runtime.Caller(2)
	if ok {
		parts := strings.Split(file, "/")
		entry = entry.WithField("file", parts[len(parts)-1]).WithField("line", line)
	}

	if operation != "" {
		entry = entry.WithField("operation", operation)
	}
	if sanitized := sanitizeFields(fields); len(sanitized) > 0 {
		entry = entry.WithField("fields", sanitized)
	}
	if err != nil {
		entry = entry.WithField("error", sanitizeError(err).Error())
	}

	entry.Log(level.logrusLevel(), message)
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log(LevelDebug, message, nil, nil, "")
}

// DebugWithFields logs a debug message with additional fields
func (l *Logger) DebugWithFields(message string, fields map[string]interface{}) {
	l.log(LevelDebug, message, fields, nil, "")
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(LevelInfo, message, nil, nil, "")
}

// InfoWithFields logs an info message with additional fields
func (l *Logger) InfoWithFields(message string, fields map[string]interface{}) {
	l.log(LevelInfo, message, fields, nil, "")
}

// InfoWithOperation logs an info message with operation context
func (l *Logger) InfoWithOperation(operation, message string) {
	l.log(LevelInfo, message, nil, nil, operation)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(LevelWarn, message, nil, nil, "")
}

// WarnWithFields logs a warning message with additional fields
func (l *Logger) WarnWithFields(message string, fields map[string]interface{}) {
	l.log(LevelWarn, message, fields, nil, "")
}

// WarnWithError logs a warning message with an error
func (l *Logger) WarnWithError(message string, err error) {
	l.log(LevelWarn, message, nil, err, "")
}

// Error logs an error message
func (l *Logger) Error(message string) {
	l.log(LevelError, message, nil, nil, "")
}

// ErrorWithFields logs an error message with additional fields
func (l *Logger) ErrorWithFields(message string, fields map[string]interface{}) {
	l.log(LevelError, message, fields, nil, "")
}

// ErrorWithError logs an error message with an error
func (l *Logger) ErrorWithError(message string, err error) {
	l.log(LevelError, message, nil, err, "")
}

// ErrorWithOperation logs an error message with operation context
func (l *Logger) ErrorWithOperation(operation, message string, err error) {
	l.log(LevelError, message, nil, err, operation)
}

// LogOperation logs the start and completion of an operation
func (l *Logger) LogOperation(operation string, fn func() error) error {
	l.log(LevelDebug, "Operation started", nil, nil, operation)

	start := time.Now()
	err := fn()
	fields := map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	}

	if err != nil {
		l.log(LevelError, "Operation failed", fields, err, operation)
	} else {
		l.log(LevelInfo, "Operation completed successfully", fields, nil, operation)
	}

	return err
}

// sanitizeFields removes or masks sensitive information from log fields
func sanitizeFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	sensitiveKeys := []string{
		"password",
		"secret",
		"token",
		"credential",
		"access_key",
		"presigned_url",
		"share_link",
	}

	sanitized := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		lowerKey := strings.ToLower(k)

		isSensitive := false
		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(lowerKey, sensitiveKey) {
				isSensitive = true
				break
			}
		}

		if isSensitive {
			sanitized[k] = "[REDACTED]"
			continue
		}
		if str, ok := v.(string); ok {
			sanitized[k] = sanitizeStringValue(str)
		} else {
			sanitized[k] = v
		}
	}

	return sanitized
}

// sanitizeStringValue masks potentially sensitive string values
func sanitizeStringValue(value string) interface{} {
	// AWS access key ids start with AKIA and are 20 characters long
	if strings.HasPrefix(value, "AKIA") && len(value) == 20 {
		return "[AWS_ACCESS_KEY]"
	}

	if strings.Contains(value, "?") && (strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")) {
		parts := strings.SplitN(value, "?", 2)
		return parts[0] + "?[QUERY_PARAMS_REDACTED]"
	}

	return value
}

// sanitizeError removes credentials and signed URLs from error messages
func sanitizeError(err error) error {
	errMsg := err.Error()

	if strings.Contains(errMsg, "AKIA") {
		errMsg = strings.ReplaceAll(errMsg, "AKIA", "[AWS_ACCESS_KEY]")
	}

	if strings.Contains(errMsg, "amazonaws.com") && strings.Contains(errMsg, "X-Amz-Signature") {
		errMsg = "AWS S3 operation error (URL details redacted for security)"
	}

	return fmt.Errorf("%s", errMsg)
}
