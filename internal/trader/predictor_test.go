package trader

import (
	"context"
	"fmt"
	"testing"

	"TradePilot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const placedBet = "Placed the bet.\nMARKET: Will ETH close above $4k on Friday?\nOUTCOME: YES\nODDS: 0.42\nAMOUNT: $10"

func newPredictor(h *harness) *Predictor {
	return NewPredictor(h.deps, DefaultPredictorConfig())
}

func settleLosses(t *testing.T, h *harness, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		b, err := h.store.AddBet(model.PolymarketTrade{Market: fmt.Sprintf("m%d", i), Amount: 2})
		require.NoError(t, err)
		_, err = h.store.SettleBet(b.ID, model.BetLoss, -2)
		require.NoError(t, err)
	}
}

func TestPredictor_PausesAfterFourLosses(t *testing.T) {
	h := newHarness(t)
	settleLosses(t, h, 4)
	p := newPredictor(h)
	require.NoError(t, p.SetStrategy("buy underpriced favourites"))

	out := p.Run(context.Background())

	assert.Contains(t, out, "paused")
	assert.Len(t, h.store.Snapshot().PolymarketBets, 4)
	assert.Empty(t, h.agent.Calls(), "no balance or bet prompt may be sent")
	assert.Equal(t, []string{out}, h.notify.Messages())
}

func TestPredictor_NeverRunsWithoutStrategy(t *testing.T) {
	h := newHarness(t)
	p := newPredictor(h)

	assert.Equal(t, MsgNoStrategy, p.Run(context.Background()))
	assert.ErrorIs(t, p.SetStrategy("   "), ErrEmptyStrategy)
	assert.Empty(t, h.agent.Calls())
}

func TestPredictor_PlacesSizedBetAndRecordsLearning(t *testing.T) {
	h := newHarness(t)
	h.agent.
		On("Reflect on this bet", "Favourites under 0.5 were mispriced.").
		On("available USDC balance", "$200.00").
		On("Polymarket bet", placedBet)
	p := newPredictor(h)
	require.NoError(t, p.SetStrategy("buy underpriced favourites"))

	out := p.Run(context.Background())

	bets := h.store.Snapshot().PolymarketBets
	require.Len(t, bets, 1)
	assert.Equal(t, model.BetPending, bets[0].Result)
	assert.Equal(t, 10.0, bets[0].Amount, "floor(200*0.1)=20 clamped to 5% of 200")
	assert.Equal(t, "Will ETH close above $4k on Friday?", bets[0].Market)
	assert.Equal(t, "YES", bets[0].Outcome)
	assert.Equal(t, 1, h.store.BetStats().TotalBets)

	betCalls := h.agent.CallsMatching("Polymarket bet")
	require.Len(t, betCalls, 1)
	assert.Contains(t, betCalls[0], "bet exactly $10.00")
	assert.Contains(t, betCalls[0], "Only use USDC already on Polygon")
	assert.Contains(t, betCalls[0], "SKIP: no clear edge")

	assert.Equal(t, []string{"Favourites under 0.5 were mispriced."}, h.store.BetLearnings(0))
	assert.Contains(t, out, "Prediction Bet Placed")
}

func TestPredictor_SkipRecordsNothing(t *testing.T) {
	h := newHarness(t)
	h.agent.
		On("available USDC balance", "$200").
		On("Polymarket bet", "SKIP: no clear edge")
	p := newPredictor(h)
	require.NoError(t, p.SetStrategy("only bet on sure things"))

	out := p.Run(context.Background())
	out2 := p.Run(context.Background())

	assert.Contains(t, out, "skipped")
	assert.Contains(t, out2, "skipped")
	assert.Empty(t, h.store.Snapshot().PolymarketBets)
	assert.Empty(t, h.agent.CallsMatching("Reflect on this bet"))
	assert.Len(t, h.agent.CallsMatching("available USDC balance"), 1, "balance is cached between cycles")
}

func TestPredictor_HalvesBetAfterTwoLosses(t *testing.T) {
	h := newHarness(t)
	settleLosses(t, h, 2)
	h.agent.
		On("Reflect on this bet", "ok").
		On("available USDC balance", "$200").
		On("Polymarket bet", placedBet)
	p := newPredictor(h)
	require.NoError(t, p.SetStrategy("fade the crowd"))

	p.Run(context.Background())

	betCalls := h.agent.CallsMatching("Polymarket bet")
	require.Len(t, betCalls, 1)
	assert.Contains(t, betCalls[0], "bet exactly $5.00")
	assert.Contains(t, betCalls[0], "CAUTION: 2 consecutive losses")

	bets := h.store.RecentBets(1)
	require.Len(t, bets, 1)
	assert.Equal(t, 5.0, bets[0].Amount)
}

func TestPredictor_SettleUpdatesStats(t *testing.T) {
	h := newHarness(t)
	p := newPredictor(h)
	b, err := h.store.AddBet(model.PolymarketTrade{Market: "m", Amount: 4})
	require.NoError(t, err)

	settled, err := p.Settle(b.ID, model.BetWin, 5.5)
	require.NoError(t, err)
	assert.Equal(t, model.BetWin, settled.Result)
	assert.Equal(t, 1, h.store.BetStats().Wins)
	assert.InDelta(t, 5.5, h.store.BetStats().TotalPnL, 1e-9)
}

func TestPredictor_ClearStrategyDisablesLoop(t *testing.T) {
	h := newHarness(t)
	p := newPredictor(h)
	require.NoError(t, p.SetStrategy("x"))
	p.ClearStrategy()

	assert.Equal(t, "", p.Strategy())
	assert.Equal(t, MsgNoStrategy, p.Run(context.Background()))
}
