// Package netx holds the HTTP plumbing shared by the uploader: a retrying
// client factory and a PUT helper for presigned object-store URLs.
package netx

import (
	"context"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/logging"
	"github.com/hashicorp/go-retryablehttp"
)

// NewRetryClient returns a retryablehttp client that makes up to retries
// additional attempts on connection errors, 5xx and 429 responses. The last
// response is passed through when attempts run out so callers can read its
// status and body.
func NewRetryClient(retries int, logger logging.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = max(retries, 0)
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = leveledLogger{l: logger}
	return c
}

// leveledLogger adapts logging.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l logging.Logger
}

func (a leveledLogger) Error(msg string, kv ...interface{}) {
	a.l.Error(context.Background(), msg, kv...)
}

func (a leveledLogger) Info(msg string, kv ...interface{}) {
	a.l.Debug(context.Background(), msg, kv...)
}

func (a leveledLogger) Debug(msg string, kv ...interface{}) {
	a.l.Debug(context.Background(), msg, kv...)
}

func (a leveledLogger) Warn(msg string, kv ...interface{}) {
	a.l.Warn(context.Background(), msg, kv...)
}

var _ retryablehttp.LeveledLogger = leveledLogger{}
