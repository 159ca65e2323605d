package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"TradePilot/internal/agentapi"
	"TradePilot/internal/api"
	"TradePilot/internal/config"
	"TradePilot/internal/logger"
	"TradePilot/internal/memory"
	"TradePilot/internal/metrics"
	"TradePilot/internal/notifier"
	"TradePilot/internal/recorder"
	"TradePilot/internal/risk"
	"TradePilot/internal/safety"
	"TradePilot/internal/scheduler"
	"TradePilot/internal/trader"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Dir, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	if err := cfg.Validate(); err != nil {
		zl.Fatal("config validation", zap.Error(err))
	}
	zl.Info("TradePilot starting", zap.String("config", cfgPath), zap.String("chain", cfg.Trading.Chain))

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// State
	store, err := memory.NewManager(cfg.Memory.StateFile, cfg.Trading.Settings, zl)
	if err != nil {
		zl.Fatal("init memory", zap.Error(err))
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, zl)
		if err != nil {
			zl.Warn("init sqlite recorder failed, using noop", zap.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	guard := risk.NewGuard(risk.Limits{
		MaxTradesPerDay:       cfg.Risk.MaxTradesPerDay,
		MaxPositionPct:        cfg.Risk.MaxPositionPct,
		DrawdownKillSwitchPct: cfg.Risk.DrawdownKillSwitchPct,
		CooldownAfterLosses:   cfg.Risk.CooldownAfterLosses,
		Cooldown:              config.Minutes(cfg.Risk.CooldownMinutes),
	}, zl)
	exec := safety.NewExecutor(safety.DefaultConfig(), zl, m, rec)

	// Init agent
	var agent agentapi.Agent
	if cfg.AgentAPI.Mock {
		agent = &agentapi.MockAgent{Default: "SKIP: mock agent"}
	} else {
		agent = agentapi.NewHTTPAgent(cfg.AgentAPI.BaseURL, cfg.AgentAPI.APIKey, cfg.Proxy,
			config.Seconds(cfg.AgentAPI.PollIntervalSec), config.Seconds(cfg.AgentAPI.JobTimeoutSec), zl)
	}
	zl.Info("agent api", zap.String("agent", agent.Name()))

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, zl)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := trader.Deps{
		Store:        store,
		Guard:        guard,
		Exec:         exec,
		Agent:        agent,
		Notifier:     tn,
		Recorder:     rec,
		Metrics:      m,
		Log:          zl,
		UserID:       cfg.Trading.UserID,
		Chain:        cfg.Trading.Chain,
		PortfolioUSD: cfg.Trading.PortfolioUSD,
	}
	scanner := trader.NewScanner(deps)
	monitor := trader.NewMonitor(deps, config.Seconds(cfg.Schedule.PositionPauseSec))
	predictor := trader.NewPredictor(deps, trader.PredictorConfig{
		SettlementChain: cfg.Polymarket.SettlementChain,
		BetTimeout:      config.Seconds(cfg.Polymarket.BetTimeoutSec),
		BalanceTTL:      config.Seconds(cfg.Polymarket.BalanceTTLSec),
	})

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, scheduler.Config{
		MonitorInterval:    config.Minutes(cfg.Schedule.MonitorIntervalMin),
		PredictionInterval: config.Minutes(cfg.Polymarket.IntervalMin),
	}, scanner, monitor, predictor, store, guard, tn, zl)
	if cfg.Schedule.AutoStart {
		sched.Start()
	}

	// Start Telegram polling
	if cfg.Telegram.BotToken != "" {
		go tn.StartPolling(ctx, sched.HandleCommand)
		zl.Info("telegram polling started")
	}

	// HTTP control API
	srv := api.NewServer(sched, store, guard, reg, zl)
	go func() {
		if err := srv.Run(ctx, cfg.HTTP.Addr); err != nil {
			zl.Error("http api stopped", zap.Error(err))
		}
	}()

	zl.Info("TradePilot is running. Press Ctrl+C to stop.", zap.Bool("timers", sched.Running()))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zl.Info("shutdown signal received, stopping...")
	cancel()
	sched.Stop()
	tn.Wait()
	zl.Info("TradePilot stopped")
}
