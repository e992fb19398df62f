package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlMetrics(t *testing.T) {
	m := NewControlMetrics()

	m.CommandHandled("write", "ok")
	m.CommandHandled("write", "ok")
	m.CommandHandled("read", "value")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("write", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("read", "value")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions))
}

func TestControlMetrics_Handler(t *testing.T) {
	m := NewControlMetrics()
	m.CommandHandled("write", "fail")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dutbench_control_commands_total{op="write",result="fail"} 1`)
	assert.Contains(t, string(body), "dutbench_control_sessions 0")
}

func TestControlMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewControlMetrics()
		NewControlMetrics()
	})
}
