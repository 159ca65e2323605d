package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical events to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the control API read while the loops write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With(zap.String("module", "recorder"))}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trade_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			trade_id   TEXT,
			symbol     TEXT,
			event_type TEXT,
			amount     TEXT,
			price      REAL,
			pnl_pct    REAL,
			note       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_events_ts ON trade_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_events_trade ON trade_events(trade_id)`,

		`CREATE TABLE IF NOT EXISTS bet_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			bet_id      TEXT,
			event_type  TEXT,
			market      TEXT,
			outcome     TEXT,
			amount      REAL,
			win_rate    REAL,
			risk_factor REAL,
			note        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bet_events_ts ON bet_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS executions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			request_id  TEXT,
			action      TEXT,
			outcome     TEXT,
			error_type  TEXT,
			retry_count INTEGER,
			duration_ms INTEGER,
			message     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_ts ON executions(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTradeEvent(evt *TradeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO trade_events
		(timestamp, trade_id, symbol, event_type, amount, price, pnl_pct, note)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.TradeID, evt.Symbol, evt.EventType,
		evt.Amount, evt.Price, evt.PnLPct, evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecordBetEvent(evt *BetEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO bet_events
		(timestamp, bet_id, event_type, market, outcome, amount, win_rate, risk_factor, note)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.BetID, evt.EventType, evt.Market, evt.Outcome,
		evt.Amount, evt.WinRate, evt.RiskFactor, evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecordExecution(evt *ExecutionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO executions
		(timestamp, request_id, action, outcome, error_type, retry_count, duration_ms, message)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.RequestID, evt.Action, evt.Outcome,
		evt.ErrorType, evt.RetryCount, evt.DurationMs, evt.Message,
	)
	return err
}

// CountTradeEvents returns how many events of eventType were recorded; empty matches all.
func (r *SQLiteRecorder) CountTradeEvents(eventType string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	var err error
	if eventType == "" {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM trade_events`).Scan(&n)
	} else {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM trade_events WHERE event_type = ?`, eventType).Scan(&n)
	}
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
