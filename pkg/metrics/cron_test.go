package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func labelsOf(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func TestCronJobMetricsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveRun("stock-reconcile", OutcomeSuccess, 200*time.Millisecond)
	m.ObserveRun("stock-reconcile", OutcomeFailure, time.Second)
	m.ObserveRun("", OutcomeTimeout, time.Second)
	m.IncSkipped()

	families := gather(t, reg)

	runs := map[string]float64{}
	for _, metric := range families["store_cron_job_runs_total"].GetMetric() {
		l := labelsOf(metric)
		runs[l["job"]+"/"+l["outcome"]] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"stock-reconcile/success": 1,
		"stock-reconcile/failure": 1,
		"unknown/timeout":         1,
	}, runs)

	last := families["store_cron_job_last_success_timestamp_seconds"].GetMetric()
	require.Len(t, last, 1)
	assert.Equal(t, "stock-reconcile", labelsOf(last[0])["job"])
	assert.Positive(t, last[0].GetGauge().GetValue())

	assert.Equal(t, 1.0, families["store_cron_cycles_skipped_total"].GetMetric()[0].GetCounter().GetValue())
}

func TestNilCronMetricsAreSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("x", OutcomeSuccess, time.Second)
	m.IncSkipped()
	NewCronJobMetrics(nil).ObserveRun("x", OutcomeFailure, 0)
}
