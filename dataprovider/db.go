// File: dataprovider/db.go
package dataprovider

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// SQLiteStore persists ledger and broker state across restarts: open
// positions, per-symbol realized PnL, and re-entry cooldowns. The wallet
// balance deliberately lives in its own plain-text file, not here.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the state database and its schema.
func NewSQLiteStore(cfg utilities.DatabaseConfig) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db %s: %w", cfg.DBPath, err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS open_positions (
		symbol TEXT PRIMARY KEY,
		entry_price REAL NOT NULL,
		quantity REAL NOT NULL,
		peak_price REAL NOT NULL,
		stop_price REAL NOT NULL,
		stop_armed INTEGER NOT NULL,
		stop_state INTEGER NOT NULL,
		take_profit REAL NOT NULL,
		opened_at INTEGER NOT NULL,
		flagged INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS symbol_pnl (
		symbol TEXT PRIMARY KEY,
		realized REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cooldowns (
		symbol TEXT PRIMARY KEY,
		until INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state db schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// --- Position Persistence ---

func (s *SQLiteStore) SavePosition(pos *utilities.Position) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO open_positions
		(symbol, entry_price, quantity, peak_price, stop_price, stop_armed, stop_state, take_profit, opened_at, flagged)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.Symbol, pos.EntryPrice, pos.Quantity, pos.PeakPrice, pos.StopPrice,
		boolToInt(pos.StopArmed), pos.StopState, pos.TakeProfit, pos.OpenedAt.Unix(), boolToInt(pos.Flagged))
	return err
}

func (s *SQLiteStore) DeletePosition(symbol string) error {
	_, err := s.db.Exec(`DELETE FROM open_positions WHERE symbol = ?`, symbol)
	return err
}

func (s *SQLiteStore) LoadPositions() (map[string]*utilities.Position, error) {
	rows, err := s.db.Query(`SELECT symbol, entry_price, quantity, peak_price, stop_price, stop_armed, stop_state, take_profit, opened_at, flagged FROM open_positions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	positions := make(map[string]*utilities.Position)
	for rows.Next() {
		var pos utilities.Position
		var openedAt int64
		var armed, flagged int
		if err := rows.Scan(&pos.Symbol, &pos.EntryPrice, &pos.Quantity, &pos.PeakPrice, &pos.StopPrice, &armed, &pos.StopState, &pos.TakeProfit, &openedAt, &flagged); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		pos.StopArmed = armed != 0
		pos.Flagged = flagged != 0
		pos.OpenedAt = time.Unix(openedAt, 0)
		positions[pos.Symbol] = &pos
	}
	return positions, rows.Err()
}

// --- PnL Records ---

func (s *SQLiteStore) SaveRealizedPnL(symbol string, realized float64) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO symbol_pnl (symbol, realized) VALUES (?, ?)`, symbol, realized)
	return err
}

func (s *SQLiteStore) LoadRealizedPnL() (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT symbol, realized FROM symbol_pnl`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pnl records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var realized float64
		if err := rows.Scan(&symbol, &realized); err != nil {
			return nil, fmt.Errorf("failed to scan pnl row: %w", err)
		}
		records[symbol] = realized
	}
	return records, rows.Err()
}

// --- Cooldowns ---

func (s *SQLiteStore) SaveCooldown(symbol string, until time.Time) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO cooldowns (symbol, until) VALUES (?, ?)`, symbol, until.Unix())
	return err
}

func (s *SQLiteStore) LoadCooldowns() (map[string]time.Time, error) {
	rows, err := s.db.Query(`SELECT symbol, until FROM cooldowns`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cooldowns: %w", err)
	}
	defer rows.Close()

	cooldowns := make(map[string]time.Time)
	for rows.Next() {
		var symbol string
		var until int64
		if err := rows.Scan(&symbol, &until); err != nil {
			return nil, fmt.Errorf("failed to scan cooldown row: %w", err)
		}
		cooldowns[symbol] = time.Unix(until, 0)
	}
	return cooldowns, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
