package utilities

import (
	"log"
	"time"
)

// Logging levels.
const (
	Debug LogLevel = iota
	Info
	Warn
	Error
	Fatal
)

// --- Types (Alphabetized) ---

// AppConfig is the root configuration structure, holding all other config sections.
type AppConfig struct {
	AppName      string             `mapstructure:"app_name"`
	Version      string             `mapstructure:"version"`
	Environment  string             `mapstructure:"environment"`
	DB           DatabaseConfig     `mapstructure:"database"`
	Discord      DiscordConfig      `mapstructure:"discord"`
	Exits        ExitsConfig        `mapstructure:"exits"`
	Feed         FeedConfig         `mapstructure:"feed"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Reconcile    ReconcileConfig    `mapstructure:"reconcile"`
	Risk         RiskConfig         `mapstructure:"risk"`
	TrailingStop TrailingStopConfig `mapstructure:"trailing_stop"`
	Universe     UniverseConfig     `mapstructure:"universe"`
	Wallet       WalletConfig       `mapstructure:"wallet"`
	Web          WebConfig          `mapstructure:"web"`
}

// DatabaseConfig holds settings for the SQLite state store.
type DatabaseConfig struct {
	DBPath string `mapstructure:"database_path"`
}

// DiscordConfig holds settings for sending notifications via Discord.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// ExitsConfig holds the hard take-profit and initial stop-loss levels applied
// when a position opens. A zero value disables the corresponding exit.
type ExitsConfig struct {
	TakeProfitPct float64 `mapstructure:"take_profit_pct"`
	StopLossPct   float64 `mapstructure:"stop_loss_pct"`
}

// FeedConfig holds settings for the price update source. DataDir points at a
// directory of per-symbol OHLCV csv files replayed as the tick stream.
type FeedConfig struct {
	DataDir        string `mapstructure:"data_dir"`
	ATRPeriod      int    `mapstructure:"atr_period"`
	TickIntervalMs int    `mapstructure:"tick_interval_ms"`
}

// Logger provides a structured logger with different levels.
type Logger struct {
	Level  LogLevel
	Logger *log.Logger
}

// LoggingConfig holds settings related to logging.
type LoggingConfig struct {
	Level                string `mapstructure:"level"`
	HeartbeatIntervalSec int    `mapstructure:"heartbeat_interval_sec"`
}

// LogLevel defines the severity of a log message.
type LogLevel int

// OHLCVBar represents a single Open, High, Low, Close, Volume data point.
type OHLCVBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Position holds the state of an active trade. It is owned exclusively by the
// ledger; one position per symbol at most. StopState values are defined in
// pkg/ledger alongside the trailing engine.
type Position struct {
	Symbol       string    `json:"symbol"`
	EntryPrice   float64   `json:"entry_price"`
	Quantity     float64   `json:"quantity"`
	PeakPrice    float64   `json:"peak_price"`
	StopPrice    float64   `json:"stop_price"`
	StopArmed    bool      `json:"stop_armed"`
	StopState    int       `json:"stop_state"`
	TakeProfit   float64   `json:"take_profit"`
	OpenedAt     time.Time `json:"opened_at"`
	Flagged      bool      `json:"flagged"`
	UnrealizedPL float64   `json:"-"`
}

// ReconcileConfig controls the periodic equity audit.
type ReconcileConfig struct {
	IntervalHours int     `mapstructure:"interval_hours"`
	Tolerance     float64 `mapstructure:"tolerance"`
}

// RiskConfig holds wallet initialization and position sizing parameters.
type RiskConfig struct {
	ResetBalance         bool    `mapstructure:"reset_balance"`
	DryRunWallet         float64 `mapstructure:"dry_run_wallet"`
	MaxOpenTrades        int     `mapstructure:"max_open_trades"`
	TradableBalanceRatio float64 `mapstructure:"tradable_balance_ratio"`
	StakePerTradeRatio   float64 `mapstructure:"stake_per_trade_ratio"`
	CooldownMinutes      int     `mapstructure:"cooldown_minutes"`
}

// TrailingStopConfig holds the trailing stop engine parameters. Immutable per
// run; the engine reads it, never writes it.
type TrailingStopConfig struct {
	Enable             bool    `mapstructure:"enable"`
	ActivateProfitPct  float64 `mapstructure:"activate_profit_pct"`
	BreakevenPct       float64 `mapstructure:"breakeven_pct"`
	TrailPct           float64 `mapstructure:"trail_pct"`
	ATRTrailMultiplier float64 `mapstructure:"atr_trail_multiplier"`
}

// UniverseConfig holds settings for the tradeable symbol refresher.
type UniverseConfig struct {
	RefreshMinutes    int      `mapstructure:"refresh_minutes"`
	MaxSymbols        int      `mapstructure:"max_symbols"`
	WhitelistPath     string   `mapstructure:"whitelist_path"`
	QuoteCurrency     string   `mapstructure:"quote_currency"`
	RedditSubs        []string `mapstructure:"reddit_subs"`
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec"`
	MaxRetries        int      `mapstructure:"max_retries"`
	RetryDelaySec     int      `mapstructure:"retry_delay_sec"`
	RateLimitPerSec   int      `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst    int      `mapstructure:"rate_limit_burst"`
}

// WalletConfig holds settings for the durable balance file.
type WalletConfig struct {
	BalancePath string `mapstructure:"balance_path"`
}

// WebConfig holds settings for the status HTTP server.
type WebConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}
