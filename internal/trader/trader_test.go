package trader

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"TradePilot/internal/agentapi"
	"TradePilot/internal/memory"
	"TradePilot/internal/model"
	"TradePilot/internal/risk"
	"TradePilot/internal/safety"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureNotifier) Notify(_ context.Context, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
}

func (c *captureNotifier) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

type harness struct {
	path   string
	deps   Deps
	store  *memory.Manager
	guard  *risk.Guard
	agent  *agentapi.MockAgent
	notify *captureNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := memory.NewManager(path, model.DefaultSettings(), zap.NewNop())
	require.NoError(t, err)

	cfg := safety.DefaultConfig()
	cfg.Backoff = map[safety.ErrorType]time.Duration{
		safety.ErrorNetwork:   time.Millisecond,
		safety.ErrorRateLimit: time.Millisecond,
		safety.ErrorSystem:    time.Millisecond,
	}
	guard := risk.NewGuard(risk.DefaultLimits(), zap.NewNop())
	agent := &agentapi.MockAgent{}
	n := &captureNotifier{}

	return &harness{
		path: path,
		deps: Deps{
			Store:        store,
			Guard:        guard,
			Exec:         safety.NewExecutor(cfg, zap.NewNop(), nil, nil),
			Agent:        agent,
			Notifier:     n,
			Log:          zap.NewNop(),
			UserID:       "test",
			Chain:        "solana",
			PortfolioUSD: 100,
		},
		store:  store,
		guard:  guard,
		agent:  agent,
		notify: n,
	}
}

func (h *harness) settings(t *testing.T, auto bool, maxOpen int) {
	t.Helper()
	_, err := h.store.UpdateSettings(model.SettingsPatch{AutoTradeEnabled: &auto, MaxOpenPositions: &maxOpen})
	require.NoError(t, err)
}

func (h *harness) openTrade(t *testing.T, symbol string, price float64) model.TradeEntry {
	t.Helper()
	e, err := h.store.LogTrade(model.TradeEntry{
		Token: symbol, Symbol: symbol, Action: model.ActionBuy, Amount: "$5", Price: price, Status: model.StatusOpen,
	})
	require.NoError(t, err)
	return e
}
