// Package metrics exposes Prometheus collectors for the trading loops.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Executions    *prometheus.CounterVec
	Retries       *prometheus.CounterVec
	TradesOpened  prometheus.Counter
	TradesFailed  prometheus.Counter
	TradesClosed  *prometheus.CounterVec
	BetsPlaced    prometheus.Counter
	BetsSkipped   *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	Candidates    prometheus.Gauge
	OpenPositions prometheus.Gauge
	KillSwitch    prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Executions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepilot_executions_total",
			Help: "External executions by action and outcome.",
		}, []string{"action", "outcome"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepilot_execution_retries_total",
			Help: "Retries by classified error type.",
		}, []string{"error_type"}),
		TradesOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "tradepilot_trades_opened_total",
			Help: "Positions opened by the scanner.",
		}),
		TradesFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "tradepilot_trades_failed_total",
			Help: "Buy attempts that failed.",
		}),
		TradesClosed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepilot_trades_closed_total",
			Help: "Positions closed by the monitor.",
		}, []string{"reason"}),
		BetsPlaced: f.NewCounter(prometheus.CounterOpts{
			Name: "tradepilot_bets_placed_total",
			Help: "Prediction-market bets placed.",
		}),
		BetsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepilot_bets_skipped_total",
			Help: "Prediction-market cycles that did not bet.",
		}, []string{"reason"}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradepilot_scan_duration_seconds",
			Help:    "Wall time of a market scan.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		Candidates: f.NewGauge(prometheus.GaugeOpts{
			Name: "tradepilot_scan_candidates",
			Help: "Candidates parsed in the latest scan.",
		}),
		OpenPositions: f.NewGauge(prometheus.GaugeOpts{
			Name: "tradepilot_open_positions",
			Help: "Open positions after the latest scan or monitor cycle.",
		}),
		KillSwitch: f.NewGauge(prometheus.GaugeOpts{
			Name: "tradepilot_kill_switch",
			Help: "1 when the drawdown kill switch is latched.",
		}),
	}
}

func (m *Metrics) Execution(action, outcome string) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) Retry(errType string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(errType).Inc()
}

func (m *Metrics) TradeOpened() {
	if m == nil {
		return
	}
	m.TradesOpened.Inc()
}

func (m *Metrics) TradeFailed() {
	if m == nil {
		return
	}
	m.TradesFailed.Inc()
}

func (m *Metrics) TradeClosed(reason string) {
	if m == nil {
		return
	}
	m.TradesClosed.WithLabelValues(reason).Inc()
}

func (m *Metrics) BetPlaced() {
	if m == nil {
		return
	}
	m.BetsPlaced.Inc()
}

func (m *Metrics) BetSkipped(reason string) {
	if m == nil {
		return
	}
	m.BetsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveScan(seconds float64, candidates int) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(seconds)
	m.Candidates.Set(float64(candidates))
}

func (m *Metrics) SetOpenPositions(n int) {
	if m == nil {
		return
	}
	m.OpenPositions.Set(float64(n))
}

func (m *Metrics) SetKillSwitch(killed bool) {
	if m == nil {
		return
	}
	v := 0.0
	if killed {
		v = 1
	}
	m.KillSwitch.Set(v)
}
