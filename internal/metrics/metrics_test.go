package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Execution("trade", "success")
	m.Execution("trade", "success")
	m.Retry("network")
	m.TradeClosed("take_profit")
	m.SetKillSwitch(true)
	m.ObserveScan(3.5, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Executions.WithLabelValues("trade", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Retries.WithLabelValues("network")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesClosed.WithLabelValues("take_profit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KillSwitch))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Candidates))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Execution("scan", "failure")
		m.TradeOpened()
		m.BetSkipped("loss_streak")
		m.SetOpenPositions(2)
	})
}
