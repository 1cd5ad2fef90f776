package reporting

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter is the operational error sink. The purge runner and the CDQ relay
// report here when the caller can no longer be told (response already sent,
// or the failure is upstream's, not the caller's).
type Reporter interface {
	CaptureError(err error, tags map[string]string)
	CaptureMessage(message string, extra map[string]interface{})
}

// SentryReporter forwards to Sentry.
type SentryReporter struct{}

// InitSentry configures the global Sentry client and returns a reporter
// backed by it. An empty DSN yields a NopReporter so local environments
// don't need Sentry at all.
func InitSentry(dsn, environment, release string) (Reporter, func(), error) {
	if dsn == "" {
		slog.Info("Sentry disabled, operational errors go to the log only")
		return NopReporter{}, func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	flush := func() {
		sentry.Flush(2 * time.Second)
	}
	return SentryReporter{}, flush, nil
}

func (SentryReporter) CaptureError(err error, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for key, value := range tags {
			scope.SetTag(key, value)
		}
		sentry.CaptureException(err)
	})
}

func (SentryReporter) CaptureMessage(message string, extra map[string]interface{}) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetExtras(extra)
		sentry.CaptureMessage(message)
	})
}

// NopReporter drops everything. Used when no Sentry DSN is configured and in
// tests.
type NopReporter struct{}

func (NopReporter) CaptureError(error, map[string]string)         {}
func (NopReporter) CaptureMessage(string, map[string]interface{}) {}
