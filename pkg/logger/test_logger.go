package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures log messages for assertions in tests
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{messages: make([]LogMessage, 0)}
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields, nil)
}
func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields, nil)
}
func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields, nil)
}
func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields, nil)
}

// WithField adds a field to the logger context
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return &testLoggerContext{parent: l, fields: map[string]interface{}{key: value}}
}

// WithFields adds multiple fields to the logger context
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return &testLoggerContext{parent: l, fields: fields}
}

// WithError adds an error to the logger context
func (l *TestLogger) WithError(err error) Logger {
	return &testLoggerContext{parent: l, err: err}
}

// GetZerolog returns a nop zerolog instance
func (l *TestLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   err,
	})
}

// Messages returns a copy of all captured log messages
func (l *TestLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// MessagesByLevel returns all messages of a specific level
func (l *TestLogger) MessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.Messages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.Messages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// testLoggerContext carries fields and errors accumulated via With* calls
type testLoggerContext struct {
	parent *TestLogger
	fields map[string]interface{}
	err    error
}

func (c *testLoggerContext) Debug(msg string) { c.parent.log("DEBUG", msg, c.fields, c.err) }
func (c *testLoggerContext) Info(msg string)  { c.parent.log("INFO", msg, c.fields, c.err) }
func (c *testLoggerContext) Warn(msg string)  { c.parent.log("WARN", msg, c.fields, c.err) }
func (c *testLoggerContext) Error(msg string) { c.parent.log("ERROR", msg, c.fields, c.err) }
func (c *testLoggerContext) Fatal(msg string) { c.parent.log("FATAL", msg, c.fields, c.err) }

func (c *testLoggerContext) DebugWithFields(msg string, fields map[string]interface{}) {
	c.parent.log("DEBUG", msg, c.merge(fields), c.err)
}
func (c *testLoggerContext) InfoWithFields(msg string, fields map[string]interface{}) {
	c.parent.log("INFO", msg, c.merge(fields), c.err)
}
func (c *testLoggerContext) WarnWithFields(msg string, fields map[string]interface{}) {
	c.parent.log("WARN", msg, c.merge(fields), c.err)
}
func (c *testLoggerContext) ErrorWithFields(msg string, fields map[string]interface{}) {
	c.parent.log("ERROR", msg, c.merge(fields), c.err)
}

func (c *testLoggerContext) WithField(key string, value interface{}) Logger {
	return &testLoggerContext{
		parent: c.parent,
		fields: c.merge(map[string]interface{}{key: value}),
		err:    c.err,
	}
}

func (c *testLoggerContext) WithFields(fields map[string]interface{}) Logger {
	return &testLoggerContext{parent: c.parent, fields: c.merge(fields), err: c.err}
}

func (c *testLoggerContext) WithError(err error) Logger {
	return &testLoggerContext{parent: c.parent, fields: c.fields, err: err}
}

func (c *testLoggerContext) GetZerolog() *zerolog.Logger {
	return c.parent.GetZerolog()
}

func (c *testLoggerContext) merge(additional map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(c.fields)+len(additional))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range additional {
		merged[k] = v
	}
	return merged
}
