// File: pkg/broker/brokers.go
package broker

import (
	"context"
	"time"
)

// Sides of a fill.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Broker defines the execution interface the core depends on. The core never
// talks to an exchange directly; it hands close intents to a Broker and
// consumes the resulting fills.
type Broker interface {
	// OpenPosition attempts to open exposure in the given symbol at the given
	// price. Sizing and risk checks are the broker's concern; a nil fill with
	// a nil error means the broker declined (cooldown, cap, no stake).
	OpenPosition(ctx context.Context, symbol string, price float64) (*Fill, error)

	// SubmitClose submits a close intent for the full remaining quantity of a
	// position. Resubmitting an intent with the same ID must be a no-op until
	// the resulting fill has been consumed.
	SubmitClose(ctx context.Context, intent CloseIntent) error

	// Fills returns the ordered stream of executed fills.
	Fills() <-chan Fill
}

// CloseIntent asks the broker to flatten a position. The ID is stable across
// re-emissions for the same trigger, so delivery is at-most-once per trigger.
type CloseIntent struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Reason   string  `json:"reason"`
}

// Fill represents one executed trade.
type Fill struct {
	ID        string    `json:"id"`
	IntentID  string    `json:"intent_id,omitempty"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceUpdate is one already-parsed market tick. ATRPct is the average true
// range expressed as a fraction of price; zero or negative means unavailable.
type PriceUpdate struct {
	Symbol    string
	Price     float64
	ATRPct    float64
	Timestamp time.Time
}

// PriceFeed supplies the ordered stream of price updates the core consumes.
type PriceFeed interface {
	Updates() <-chan PriceUpdate
}
