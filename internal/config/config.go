package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"TradePilot/internal/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	AgentAPI struct {
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
		JobTimeoutSec   int    `yaml:"job_timeout_sec"`
		Mock            bool   `yaml:"mock"`
	} `yaml:"agent_api"`
	Trading struct {
		Settings     model.Settings `yaml:"settings"`
		Chain        string         `yaml:"chain"`
		PortfolioUSD float64        `yaml:"portfolio_usd"`
		UserID       string         `yaml:"user_id"`
	} `yaml:"trading"`
	Risk struct {
		MaxTradesPerDay       int     `yaml:"max_trades_per_day"`
		MaxPositionPct        float64 `yaml:"max_position_pct"`
		DrawdownKillSwitchPct float64 `yaml:"drawdown_kill_switch_pct"`
		CooldownAfterLosses   int     `yaml:"cooldown_after_losses"`
		CooldownMinutes       int     `yaml:"cooldown_minutes"`
	} `yaml:"risk"`
	Polymarket struct {
		IntervalMin     int    `yaml:"interval_min"`
		SettlementChain string `yaml:"settlement_chain"`
		BetTimeoutSec   int    `yaml:"bet_timeout_sec"`
		BalanceTTLSec   int    `yaml:"balance_ttl_sec"`
	} `yaml:"polymarket"`
	Schedule struct {
		MonitorIntervalMin int  `yaml:"monitor_interval_min"`
		PositionPauseSec   int  `yaml:"position_pause_sec"`
		AutoStart          bool `yaml:"auto_start"`
	} `yaml:"schedule"`
	Memory struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"memory"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Dir   string `yaml:"dir"`
		Debug bool   `yaml:"debug"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads an optional .env file and the YAML config, then applies environment
// variable overrides and defaults. Priority: env > YAML > defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Trading.Settings = model.DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	setString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&cfg.AgentAPI.BaseURL, "AGENT_API_URL")
	setString(&cfg.AgentAPI.APIKey, "AGENT_API_KEY")
	setBool(&cfg.AgentAPI.Mock, "AGENT_API_MOCK")
	setString(&cfg.Proxy, "HTTPS_PROXY")
	setString(&cfg.Memory.StateFile, "STATE_FILE")
	setString(&cfg.Database.SQLitePath, "SQLITE_PATH")
	setString(&cfg.HTTP.Addr, "HTTP_ADDR")
	setString(&cfg.Log.Dir, "LOG_DIR")
	setBool(&cfg.Log.Debug, "DEBUG")
	setString(&cfg.Trading.Chain, "TRADING_CHAIN")
	setFloat(&cfg.Trading.PortfolioUSD, "PORTFOLIO_USD")
	setBool(&cfg.Trading.Settings.AutoTradeEnabled, "AUTO_TRADE")
	setBool(&cfg.Schedule.AutoStart, "AUTO_START")

	// Defaults
	defInt(&cfg.AgentAPI.PollIntervalSec, 3)
	defInt(&cfg.AgentAPI.JobTimeoutSec, 300)
	defString(&cfg.Trading.Chain, "solana")
	defString(&cfg.Trading.UserID, "owner")
	defFloat(&cfg.Trading.PortfolioUSD, 100)
	defInt(&cfg.Risk.MaxTradesPerDay, 10)
	defFloat(&cfg.Risk.MaxPositionPct, 10)
	defFloat(&cfg.Risk.DrawdownKillSwitchPct, 50)
	defInt(&cfg.Risk.CooldownAfterLosses, 3)
	defInt(&cfg.Risk.CooldownMinutes, 60)
	defInt(&cfg.Polymarket.IntervalMin, 30)
	defString(&cfg.Polymarket.SettlementChain, "Polygon")
	defInt(&cfg.Polymarket.BetTimeoutSec, 180)
	defInt(&cfg.Polymarket.BalanceTTLSec, 300)
	defInt(&cfg.Schedule.MonitorIntervalMin, 5)
	defInt(&cfg.Schedule.PositionPauseSec, 3)
	defString(&cfg.Memory.StateFile, "data/agent_memory.json")
	defString(&cfg.Database.SQLitePath, "data/tradepilot.db")
	defString(&cfg.HTTP.Addr, ":8080")
	defString(&cfg.Log.Dir, "logs")

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if !c.AgentAPI.Mock {
		if c.AgentAPI.BaseURL == "" {
			return fmt.Errorf("agent_api.base_url is required")
		}
		if c.AgentAPI.APIKey == "" {
			return fmt.Errorf("agent_api.api_key is required")
		}
	}
	if c.Trading.PortfolioUSD <= 0 {
		return fmt.Errorf("trading.portfolio_usd must be positive")
	}
	if c.Trading.Settings.ScanIntervalMin < 1 {
		return fmt.Errorf("trading.settings.scan_interval_min must be at least 1")
	}
	if c.Risk.MaxTradesPerDay < 1 {
		return fmt.Errorf("risk.max_trades_per_day must be at least 1")
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 100 {
		return fmt.Errorf("risk.max_position_pct must be in (0, 100]")
	}
	if c.Risk.DrawdownKillSwitchPct <= 0 {
		return fmt.Errorf("risk.drawdown_kill_switch_pct must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Seconds converts a whole-second config value to a duration.
func Seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Minutes converts a whole-minute config value to a duration.
func Minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func defString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func defInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func defFloat(dst *float64, v float64) {
	if *dst == 0 {
		*dst = v
	}
}
