package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncRestoreOutcome("envelope", OutcomeSuccess)
	pr.IncRestoreOutcome("envelope", OutcomeSuccess)
	pr.IncRestoreOutcome("virtual", OutcomeFailed)
	pr.ObserveRestoreDuration("envelope", 150*time.Millisecond)
	pr.IncCommands(OutcomeSuccess)
	pr.IncCheckOutcome(OutcomeFailed)
	pr.IncBackupsPruned(3)
	pr.IncBackupsPruned(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.restoreOutcome.WithLabelValues("envelope", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.restoreOutcome.WithLabelValues("virtual", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.commands.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.checkOutcome.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(pr.backupsPruned))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestNilPrometheusRecorder(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncRestoreOutcome("sequence", OutcomeSuccess)
		pr.ObserveRestoreDuration("sequence", time.Second)
		pr.IncCommands(OutcomeFailed)
		pr.IncCheckOutcome(OutcomeSuccess)
		pr.IncBackupsPruned(1)
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncCheckOutcome(OutcomeSuccess)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "focus_device_check_outcomes_total")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.IncRestoreOutcome("virtual", OutcomeSuccess)
		r.IncBackupsPruned(5)
	})
}
