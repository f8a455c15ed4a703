package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

const sentryFlushTimeout = 2 * time.Second

// InitSentry wires error reporting when a DSN is configured. An empty
// DSN disables reporting without making the noop hub an error.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

// FlushSentry drains buffered events, bounded so shutdown never hangs
// on a dead collector.
func FlushSentry() {
	sentry.Flush(sentryFlushTimeout)
}
