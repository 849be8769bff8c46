package diag

import (
	"bytes"
	"errors"
	"log"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporterLogsWithoutToken(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(log.New(&buf, "", 0), "", "test", "dev")

	assert.False(t, r.Enabled())

	req := httptest.NewRequest("GET", "/student-portal", nil)
	r.Error(req, "Error loading bills", errors.New("boom"))

	assert.Contains(t, buf.String(), "Error loading bills: boom")
}

func TestReporterWarn(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(log.New(&buf, "", 0), "", "test", "dev")

	r.Warn("logout failed", errors.New("timeout"))

	assert.Contains(t, buf.String(), "Warning: logout failed: timeout")
}

func TestNilReporterFallsBackToDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.Default()
	original := logger.Writer()
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	var r *Reporter
	r.Error(nil, "unexpected", errors.New("nil reporter"))
	r.Close()

	assert.False(t, r.Enabled())
	assert.Contains(t, buf.String(), "unexpected: nil reporter")
}
