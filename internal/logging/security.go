package logging

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent represents a security-relevant event for audit logging.
type SecurityEvent struct {
	// Event is the type of event (e.g., "auth_failure", "rate_limit_blocked").
	Event string
	// ClientIP is the resolved client IP address.
	ClientIP string
	// Success indicates if the operation was successful.
	Success bool
	// Error is the error message if the operation failed.
	Error string
	// Details contains additional sanitized details.
	Details map[string]string
}

// SecurityLogger provides secure logging for authentication and rate-limit
// events. It automatically sanitizes sensitive data before logging.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a new security logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "auth").Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// LogEvent logs a security event with automatic sanitization.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Warn().Str("event", event.Event)

	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}

	if event.ClientIP != "" {
		e = e.Str("ip", event.ClientIP)
	}

	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}

	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// LogAuthFailure logs a failed bearer-token authentication attempt.
func (l *SecurityLogger) LogAuthFailure(clientIP, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:    "auth_failure",
		ClientIP: clientIP,
		Success:  false,
		Error:    reason,
	})
}

// LogRateLimitBlocked logs a request rejected because the client IP is
// currently inside a rate-limit block window.
func (l *SecurityLogger) LogRateLimitBlocked(clientIP string, retryAfterSeconds int) {
	l.LogEvent(&SecurityEvent{
		Event:    "rate_limit_blocked",
		ClientIP: clientIP,
		Success:  false,
		Details: map[string]string{
			"retry_after_s": strconv.Itoa(retryAfterSeconds),
		},
	})
}

// ============================================================
// Sanitization Functions
// ============================================================

// SanitizeToken masks a token, showing only first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeError removes potentially sensitive information from error messages.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"password",
		"secret",
		"token",
		"key",
		"bearer",
		"authorization",
		"cookie",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}

	return truncateString(err, 200)
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := map[string]bool{
		"token":         true,
		"password":      true,
		"secret":        true,
		"api_key":       true,
		"apikey":        true,
		"authorization": true,
		"bearer":        true,
	}

	if sensitiveKeys[lowerKey] {
		return SanitizeToken(value)
	}

	return value
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
