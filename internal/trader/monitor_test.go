package trader

import (
	"context"
	"fmt"
	"os"
	"testing"

	"TradePilot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_TakeProfitSellsHalfAndCloses(t *testing.T) {
	h := newHarness(t)
	entry := h.openTrade(t, "PEPE2", 1.00)
	h.agent.
		On("current price of", "PEPE2 is trading at $2.10 right now").
		On("Sell 50%", "Sold half of PEPE2")

	out := NewMonitor(h.deps, 0).Run(context.Background())

	assert.Equal(t, "✅ Checked 1/1 positions, closed 1", out)
	assert.Len(t, h.agent.CallsMatching("Sell 50%"), 1)
	assert.Empty(t, h.agent.CallsMatching("Sell 100%"))

	var closed model.TradeEntry
	for _, tr := range h.store.Snapshot().Trades {
		if tr.ID == entry.ID {
			closed = tr
		}
	}
	require.Equal(t, model.StatusClosed, closed.Status)
	require.NotNil(t, closed.PnL)
	assert.Equal(t, "110.00", fmt.Sprintf("%.2f", *closed.PnL))
	assert.Equal(t, 2.10, *closed.ExitPrice)

	msgs := h.notify.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Take Profit")
	assert.Contains(t, msgs[0], "+110.00%")

	assert.Len(t, h.store.Snapshot().Learnings, 1)
	assert.Equal(t, 0, h.guard.Status().ConsecutiveLosses)
}

func TestMonitor_StopLossSellsAll(t *testing.T) {
	h := newHarness(t)
	h.openTrade(t, "DEAD", 1.00)
	h.agent.
		On("current price of", "$0.40").
		On("Sell 100%", "Sold all DEAD")

	NewMonitor(h.deps, 0).Run(context.Background())

	assert.Len(t, h.agent.CallsMatching("Sell 100%"), 1)
	assert.Empty(t, h.store.OpenTrades())

	st := h.guard.Status()
	assert.Equal(t, 1, st.ConsecutiveLosses)
	assert.InDelta(t, 3.0, st.DailyLoss, 1e-9, "60% of a $5 position")
	require.Len(t, h.notify.Messages(), 1)
	assert.Contains(t, h.notify.Messages()[0], "Stop Loss")
}

func TestMonitor_UnparseablePriceSkipsPosition(t *testing.T) {
	h := newHarness(t)
	h.openTrade(t, "PEPE2", 1.00)
	h.openTrade(t, "ABC", 1.00)
	h.agent.On("current price of", "price unavailable")

	out := NewMonitor(h.deps, 0).Run(context.Background())

	assert.Equal(t, "✅ Checked 0/2 positions, closed 0", out)
	assert.Len(t, h.store.OpenTrades(), 2)
	assert.Empty(t, h.agent.CallsMatching("Sell"))
}

func TestMonitor_FailedSellKeepsPositionOpen(t *testing.T) {
	h := newHarness(t)
	h.openTrade(t, "PEPE2", 1.00)
	h.agent.
		On("current price of", "$3").
		OnError("Sell 50%", fmt.Errorf("market is closed"))

	NewMonitor(h.deps, 0).Run(context.Background())

	assert.Len(t, h.store.OpenTrades(), 1)
	assert.Empty(t, h.notify.Messages())
}

func TestMonitor_WithinBandDoesNothing(t *testing.T) {
	h := newHarness(t)
	h.openTrade(t, "PEPE2", 1.00)
	h.agent.On("current price of", "$1.20")

	NewMonitor(h.deps, 0).Run(context.Background())

	assert.Len(t, h.store.OpenTrades(), 1)
	assert.Empty(t, h.agent.CallsMatching("Sell"))
}

func TestMonitor_NoPositions(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "📭 No open positions", NewMonitor(h.deps, 0).Run(context.Background()))
	assert.Empty(t, h.agent.Calls())
}

func TestMonitor_NoEntryPriceSkipsPriceCheck(t *testing.T) {
	h := newHarness(t)
	h.openTrade(t, "NOPRICE", 0)

	out := NewMonitor(h.deps, 0).Run(context.Background())

	assert.Equal(t, "✅ Checked 0/1 positions, closed 0", out)
	assert.Empty(t, h.agent.Calls())
	assert.Len(t, h.store.OpenTrades(), 1)
}

func TestMonitor_SaveFailureStillUpdatesRiskAndNotifies(t *testing.T) {
	h := newHarness(t)
	h.openTrade(t, "DEAD", 1.00)
	h.agent.
		On("current price of", "$0.40").
		On("Sell 100%", "Sold all DEAD")
	// a directory at the temp-file path makes every save fail
	require.NoError(t, os.Mkdir(h.path+".tmp", 0755))

	out := NewMonitor(h.deps, 0).Run(context.Background())

	assert.Equal(t, "✅ Checked 1/1 positions, closed 1", out)
	assert.Empty(t, h.store.OpenTrades())
	st := h.guard.Status()
	assert.Equal(t, 1, st.ConsecutiveLosses)
	assert.InDelta(t, 3.0, st.DailyLoss, 1e-9)
	require.Len(t, h.notify.Messages(), 1)
	assert.Contains(t, h.notify.Messages()[0], "Stop Loss")
}
