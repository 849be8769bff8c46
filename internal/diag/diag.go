// Package diag reports unexpected errors. Every report is logged; when a
// Rollbar token is configured it is also sent to Rollbar.
package diag

import (
	"log"
	"net/http"

	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
)

// Reporter logs errors and forwards them to Rollbar when enabled. A nil
// Reporter only logs.
type Reporter struct {
	std     *log.Logger
	enabled bool
}

// NewReporter configures the Rollbar client. Reporting is disabled when
// token is empty.
func NewReporter(std *log.Logger, token, env, version string) *Reporter {
	if std == nil {
		std = log.Default()
	}

	enabled := token != ""
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetCodeVersion(version)
	rollbar.SetStackTracer(rollbarerrors.StackTracer)
	rollbar.SetEnabled(enabled)

	return &Reporter{std: std, enabled: enabled}
}

// Enabled reports whether errors are sent to Rollbar.
func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// Error records an unexpected error. req may be nil.
func (r *Reporter) Error(req *http.Request, msg string, err error) {
	r.logger().Printf("%s: %v", msg, err)
	if !r.Enabled() {
		return
	}

	args := []interface{}{msg}
	if err != nil {
		args = append(args, err)
	}
	if req != nil {
		args = append(args, req)
	}
	rollbar.Error(args...)
}

// Warn records a recoverable problem.
func (r *Reporter) Warn(msg string, err error) {
	r.logger().Printf("Warning: %s: %v", msg, err)
	if !r.Enabled() {
		return
	}
	rollbar.Warning(msg, err)
}

// Close flushes queued reports.
func (r *Reporter) Close() {
	if r.Enabled() {
		rollbar.Wait()
	}
}

func (r *Reporter) logger() *log.Logger {
	if r == nil || r.std == nil {
		return log.Default()
	}
	return r.std
}
