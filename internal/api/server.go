// Package api exposes the operator control surface over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"TradePilot/internal/memory"
	"TradePilot/internal/model"
	"TradePilot/internal/risk"
	"TradePilot/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the HTTP control API.
type Server struct {
	router *gin.Engine
	sched  *scheduler.Scheduler
	store  *memory.Manager
	guard  *risk.Guard
	log    *zap.Logger
}

// NewServer creates the API server. Metrics are served from gatherer.
func NewServer(sched *scheduler.Scheduler, store *memory.Manager, guard *risk.Guard, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		sched:  sched,
		store:  store,
		guard:  guard,
		log:    log.With(zap.String("module", "api")),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes(gatherer)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s.router.GET("/status", s.handleStatus)
	s.router.GET("/settings", s.handleGetSettings)
	s.router.PATCH("/settings", s.handlePatchSettings)
	s.router.GET("/positions", s.handlePositions)

	s.router.POST("/scan", s.handleScan)
	s.router.POST("/monitor", s.handleMonitor)
	s.router.POST("/scheduler/start", s.handleStart)
	s.router.POST("/scheduler/stop", s.handleStop)

	pm := s.router.Group("/polymarket")
	{
		pm.POST("/strategy", s.handleSetStrategy)
		pm.DELETE("/strategy", s.handleClearStrategy)
		pm.POST("/run", s.handleRunPrediction)
		pm.GET("/bets", s.handleBets)
		pm.POST("/bets/:id/settle", s.handleSettle)
	}

	s.router.POST("/risk/reset", s.handleRiskReset)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found: " + c.Request.Method + " " + c.Request.URL.Path})
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleStatus(c *gin.Context) {
	view := s.sched.Status()
	mem := view.Memory
	c.JSON(http.StatusOK, gin.H{
		"running":         view.Running,
		"strategy":        view.Strategy,
		"openPositions":   view.OpenPositions,
		"totalTrades":     mem.TotalTrades,
		"winRate":         mem.WinRate,
		"totalPnl":        mem.TotalPnL,
		"lastScanTime":    mem.LastScanTime,
		"polymarketStats": mem.PolymarketStats,
		"risk":            s.guard.Status(),
	})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Settings())
}

func (s *Server) handlePatchSettings(c *gin.Context) {
	var patch model.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings, err := s.sched.UpdateSettings(patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handlePositions(c *gin.Context) {
	open := s.store.OpenTrades()
	if open == nil {
		open = []model.TradeEntry{}
	}
	c.JSON(http.StatusOK, open)
}

func (s *Server) handleScan(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"result": s.sched.RunScanNow(c.Request.Context())})
}

func (s *Server) handleMonitor(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"result": s.sched.RunMonitorNow(c.Request.Context())})
}

func (s *Server) handleStart(c *gin.Context) {
	s.sched.Start()
	c.JSON(http.StatusOK, gin.H{"running": s.sched.Running()})
}

func (s *Server) handleStop(c *gin.Context) {
	s.sched.Stop()
	c.JSON(http.StatusOK, gin.H{"running": s.sched.Running()})
}

type strategyRequest struct {
	Strategy string `json:"strategy" binding:"required"`
}

func (s *Server) handleSetStrategy(c *gin.Context) {
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.sched.SetStrategy(req.Strategy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategy": req.Strategy, "running": s.sched.Running()})
}

func (s *Server) handleClearStrategy(c *gin.Context) {
	s.sched.ClearStrategy()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRunPrediction(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"result": s.sched.RunPredictionNow(c.Request.Context())})
}

func (s *Server) handleBets(c *gin.Context) {
	bets := s.store.RecentBets(50)
	if bets == nil {
		bets = []model.PolymarketTrade{}
	}
	c.JSON(http.StatusOK, bets)
}

type settleRequest struct {
	Result model.BetResult `json:"result" binding:"required"`
	PnL    float64         `json:"pnl"`
}

func (s *Server) handleSettle(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bet, err := s.sched.SettleBet(c.Param("id"), req.Result, req.PnL)
	switch {
	case errors.Is(err, memory.ErrBetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, memory.ErrBetSettled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, memory.ErrInvalidResult):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, bet)
	}
}

func (s *Server) handleRiskReset(c *gin.Context) {
	s.sched.ResetKillSwitch()
	c.JSON(http.StatusOK, s.guard.Status())
}
