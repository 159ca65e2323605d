package trader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"TradePilot/internal/memory"
	"TradePilot/internal/model"
	"TradePilot/internal/notifier"
	"TradePilot/internal/parser"
	"TradePilot/internal/recorder"
	"TradePilot/internal/safety"

	"go.uber.org/zap"
)

// MsgMonitorInProgress is returned when a check is requested while one is running.
const MsgMonitorInProgress = "⏳ Position check already in progress"

// Exit sizes as a percent of the position.
const (
	TakeProfitSellPct = 50
	StopLossSellPct   = 100
)

// Monitor checks open positions against the take-profit and stop-loss thresholds.
type Monitor struct {
	Deps
	Pause   time.Duration // wait between positions
	running atomic.Bool
	now     func() time.Time
}

// NewMonitor creates a Monitor.
func NewMonitor(d Deps, pause time.Duration) *Monitor {
	d.fill()
	d.Log = d.Log.With(zap.String("module", "monitor"))
	return &Monitor{Deps: d, Pause: pause, now: time.Now}
}

// Running reports whether a check is in flight.
func (m *Monitor) Running() bool { return m.running.Load() }

// Run checks every open position once.
func (m *Monitor) Run(ctx context.Context) string {
	if !m.running.CompareAndSwap(false, true) {
		return MsgMonitorInProgress
	}
	defer m.running.Store(false)

	open := m.Store.OpenTrades()
	if len(open) == 0 {
		m.Metrics.SetOpenPositions(0)
		return "📭 No open positions"
	}

	settings := m.Store.Settings()
	cycle := cycleID(m.now())
	var checked, closed int
	for i, t := range open {
		if i > 0 && !sleep(ctx, m.Pause) {
			break
		}
		ok, n := m.check(ctx, t, settings, cycle)
		if ok {
			checked++
		}
		closed += n
	}

	m.Metrics.SetOpenPositions(len(m.Store.OpenTrades()))
	m.Metrics.SetKillSwitch(m.Guard.Killed())
	m.Log.Info("positions checked", zap.Int("open", len(open)), zap.Int("priced", checked), zap.Int("closed", closed))
	return fmt.Sprintf("✅ Checked %d/%d positions, closed %d", checked, len(open), closed)
}

// check prices one position and applies the exits. It reports whether the position was
// priced and how many exits fired.
func (m *Monitor) check(ctx context.Context, t model.TradeEntry, s model.Settings, cycle string) (bool, int) {
	log := m.Log.With(zap.String("trade_id", t.ID), zap.String("symbol", t.Symbol))
	if t.Price <= 0 {
		log.Warn("position has no entry price")
		return false, 0
	}

	res := m.prompt(ctx, safety.ActionResearch, map[string]any{
		"step": "price", "trade": t.ID, "symbol": t.Symbol, "cycle": cycle,
	}, pricePrompt(t))
	if !res.Success {
		log.Warn("price check failed", zap.Error(res.Err()))
		return false, 0
	}
	price := parser.ExtractPrice(res.Output)
	if !price.OK {
		log.Warn("could not parse price", zap.String("response", res.Output))
		return false, 0
	}

	pnlPct := (price.Value - t.Price) / t.Price * 100
	log.Debug("position priced", zap.Float64("entry", t.Price), zap.Float64("current", price.Value), zap.Float64("pnl_pct", pnlPct))

	var fired int
	if pnlPct >= s.TakeProfitPct && m.exit(ctx, t, price.Value, pnlPct, TakeProfitSellPct, cycle) {
		fired++
	}
	// a take-profit close in this cycle must not also trigger the stop-loss
	if !m.Store.IsOpen(t.ID) {
		return true, fired
	}
	if pnlPct <= -s.StopLossPct && m.exit(ctx, t, price.Value, pnlPct, StopLossSellPct, cycle) {
		fired++
	}
	return true, fired
}

func (m *Monitor) exit(ctx context.Context, t model.TradeEntry, current, pnlPct float64, sellPct int, cycle string) bool {
	kind, reason := "TAKE_PROFIT", "take_profit"
	if sellPct == StopLossSellPct {
		kind, reason = "STOP_LOSS", "stop_loss"
	}
	log := m.Log.With(zap.String("trade_id", t.ID), zap.String("symbol", t.Symbol), zap.String("exit", kind))

	res := m.prompt(ctx, safety.ActionTrade, map[string]any{
		"side": "sell", "trade": t.ID, "percent": sellPct, "cycle": cycle,
	}, sellPrompt(t, sellPct))
	if !res.Success {
		log.Error("sell failed", zap.Error(res.Err()))
		return false
	}

	closed, err := m.Store.CloseTrade(t.ID, pnlPct, current)
	switch {
	case errors.Is(err, memory.ErrTradeNotFound), errors.Is(err, memory.ErrTradeNotOpen):
		log.Error("close trade", zap.Error(err))
		return false
	case err != nil:
		// closed in memory; only the save failed
		log.Error("persist closed trade", zap.Error(err))
	}
	realized := *closed.PnL

	pnlUSD := parser.ParseAmount(t.Amount) * realized / 100 * float64(sellPct) / 100
	m.Guard.RecordTrade(pnlUSD, m.PortfolioUSD)

	if err := m.Store.AddLearning(fmt.Sprintf("%s %s at %+.2f%% (entry $%g, exit $%g): %s",
		t.Symbol, reason, realized, t.Price, current, t.Reason)); err != nil {
		log.Error("add learning", zap.Error(err))
	}
	m.recordTrade(&recorder.TradeEvent{
		TradeID: t.ID, Symbol: t.Symbol, EventType: kind, Amount: t.Amount,
		Price: current, PnLPct: realized, Note: fmt.Sprintf("sold %d%%", sellPct),
	})
	m.Metrics.TradeClosed(reason)
	log.Info("position closed", zap.Float64("pnl_pct", realized), zap.Float64("pnl_usd", pnlUSD))

	msg := notifier.FormatTakeProfit(closed, current, realized)
	if sellPct == StopLossSellPct {
		msg = notifier.FormatStopLoss(closed, current, realized)
	}
	m.Notifier.Notify(ctx, msg)
	return true
}
