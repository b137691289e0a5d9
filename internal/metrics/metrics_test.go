package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/modlint/internal/ir"
)

func TestObserveRun(t *testing.T) {
	m := New(false)
	r := &ir.Report{
		StartedAt: time.Unix(1700000000, 0),
		Totals:    ir.Totals{Files: 4, Errors: 2, Warnings: 3, Infos: 1, Cycles: 1, Missing: 5},
	}
	m.ObserveRun(r, 250*time.Millisecond)
	r.Valid = true
	r.Totals = ir.Totals{Files: 1}
	m.ObserveRun(r, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("true")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.files))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.findings.WithLabelValues("ERROR")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.findings.WithLabelValues("WARNING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.missing))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastRun))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(true)
	m.ObserveRun(&ir.Report{Totals: ir.Totals{Files: 2}}, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "modlint_documents_total 2"))
	assert.Contains(t, body, "modlint_run_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
