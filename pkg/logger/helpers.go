package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogAPICall logs the outcome of a single product API call attempt
func LogAPICall(log Logger, productID, outcome string, latency time.Duration) {
	fields := map[string]interface{}{
		"product_id": productID,
		"outcome":    outcome,
		"latency_ms": latency.Milliseconds(),
	}

	if outcome == "success" {
		log.InfoWithFields("API call completed", fields)
	} else {
		log.WarnWithFields("API call failed", fields)
	}
}

// LogDownload logs an image download operation
func LogDownload(log Logger, productID, url string, success bool, err error) {
	fields := map[string]interface{}{
		"product_id": productID,
		"url":        url,
		"success":    success,
	}

	l := log.WithFields(fields)
	if err != nil {
		l.WithError(err).Error("image download failed")
	} else if success {
		l.Debug("image downloaded")
	} else {
		l.Debug("image skipped")
	}
}

// LogRowCompleted logs the terminal state of one input row
func LogRowCompleted(log Logger, index int, status string, images int) {
	log.InfoWithFields("row completed", map[string]interface{}{
		"row":    index,
		"status": status,
		"images": images,
	})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
