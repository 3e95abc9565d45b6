package web

import (
	"time"

	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// StatusData is the payload served by /status.
type StatusData struct {
	Balance           float64                       `json:"balance"`
	OpenPositions     map[string]utilities.Position `json:"open_positions"`
	TotalUnrealizedPL float64                       `json:"total_unrealized_pl"`
	TotalRealizedPL   float64                       `json:"total_realized_pl"`
	Uptime            string                        `json:"uptime"`
	GeneratedAt       time.Time                     `json:"generated_at"`
}

// PnLData is the payload served by /pnl.
type PnLData struct {
	PerSymbol map[string]float64 `json:"per_symbol"`
	Total     float64            `json:"total"`
}

// UniverseData is the payload served by /universe.
type UniverseData struct {
	Symbols   []string  `json:"symbols"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetched_at"`
}

// AppController defines the interface the web package needs to read the
// application's state. All methods must be safe for concurrent use.
type AppController interface {
	GetStatusData() StatusData
	GetPnLData() PnLData
	GetUniverseData() UniverseData
	GetConfig() utilities.AppConfig
	Logger() *utilities.Logger
}
