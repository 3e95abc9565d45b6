// File: pkg/broker/paper.go
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// WalletView is the read-only slice of the wallet the broker needs for sizing.
type WalletView interface {
	Balance() float64
}

// PositionView is the read-only slice of the ledger the broker needs for its
// risk checks.
type PositionView interface {
	OpenCount() int
	Has(symbol string) bool
}

// UniverseView gates entries to the currently tradeable symbol set.
type UniverseView interface {
	Contains(symbol string) bool
}

// CooldownStore persists per-symbol re-entry cooldowns across restarts.
type CooldownStore interface {
	SaveCooldown(symbol string, until time.Time) error
	LoadCooldowns() (map[string]time.Time, error)
}

// Paper simulates execution against the ledger's own state: close intents are
// filled immediately at the intent price and entries are sized from the
// wallet. It never performs network I/O.
type Paper struct {
	cfg      utilities.RiskConfig
	wallet   WalletView
	ledger   PositionView
	universe UniverseView
	store    CooldownStore
	logger   *utilities.Logger

	mu        sync.Mutex
	cooldowns map[string]time.Time
	pending   map[string]bool // symbols with a buy fill queued but not yet applied
	filled    map[string]bool // intent IDs already converted to fills
	fills     chan Fill
}

// NewPaper builds a paper broker. The universe and cooldown store may be nil,
// which disables universe gating and cooldown persistence respectively.
func NewPaper(cfg utilities.RiskConfig, wallet WalletView, ledger PositionView, universe UniverseView, store CooldownStore, logger *utilities.Logger) (*Paper, error) {
	p := &Paper{
		cfg:       cfg,
		wallet:    wallet,
		ledger:    ledger,
		universe:  universe,
		store:     store,
		logger:    logger,
		cooldowns: make(map[string]time.Time),
		pending:   make(map[string]bool),
		filled:    make(map[string]bool),
		fills:     make(chan Fill, 256),
	}
	if store != nil {
		cds, err := store.LoadCooldowns()
		if err != nil {
			return nil, fmt.Errorf("paper broker: failed to load cooldowns: %w", err)
		}
		for sym, until := range cds {
			if time.Now().Before(until) {
				p.cooldowns[sym] = until
			}
		}
	}
	return p, nil
}

// Fills returns the stream of executed paper fills.
func (p *Paper) Fills() <-chan Fill {
	return p.fills
}

// StakeAmount returns the quote-currency stake a new position would tie up.
func (p *Paper) StakeAmount() float64 {
	stake := p.wallet.Balance() * p.cfg.TradableBalanceRatio * p.cfg.StakePerTradeRatio
	if bal := p.wallet.Balance(); stake > bal {
		stake = bal
	}
	return stake
}

// OpenPosition sizes and fills a new entry, or declines it. Declines are not
// errors: a full position slot, an active cooldown, an out-of-universe symbol
// or a zero stake all return (nil, nil).
func (p *Paper) OpenPosition(ctx context.Context, symbol string, price float64) (*Fill, error) {
	if price <= 0 {
		return nil, fmt.Errorf("paper broker: invalid entry price %.8f for %s", price, symbol)
	}
	if p.ledger.Has(symbol) {
		return nil, nil
	}
	if p.universe != nil && !p.universe.Contains(symbol) {
		p.logger.LogDebug("PaperBroker [%s]: declining entry, symbol not in current universe.", symbol)
		return nil, nil
	}

	stake := p.StakeAmount()
	if stake <= 0 {
		return nil, nil
	}

	// A queued buy fill holds its position slot until the consumer confirms
	// it, so a second tick for the same symbol (or another symbol racing for
	// the last slot) cannot double-enter.
	p.mu.Lock()
	if p.pending[symbol] {
		p.mu.Unlock()
		return nil, nil
	}
	if until, ok := p.cooldowns[symbol]; ok && time.Now().Before(until) {
		p.mu.Unlock()
		p.logger.LogDebug("PaperBroker [%s]: declining entry, symbol on cooldown.", symbol)
		return nil, nil
	}
	open := p.ledger.OpenCount() + len(p.pending)
	if p.cfg.MaxOpenTrades > 0 && open >= p.cfg.MaxOpenTrades {
		p.mu.Unlock()
		p.logger.LogDebug("PaperBroker [%s]: declining entry, %d positions already open or in flight.", symbol, open)
		return nil, nil
	}
	p.pending[symbol] = true
	p.mu.Unlock()

	fill := Fill{
		ID:        ulid.Make().String(),
		Symbol:    symbol,
		Side:      SideBuy,
		Quantity:  stake / price,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}
	select {
	case p.fills <- fill:
	case <-ctx.Done():
		p.mu.Lock()
		delete(p.pending, symbol)
		p.mu.Unlock()
		return nil, ctx.Err()
	}
	p.logger.LogInfo("PaperBroker: BUY %s qty %.8f @ %.4f (stake %.2f)", symbol, fill.Quantity, price, stake)
	return &fill, nil
}

// ConfirmFill tells the broker a fill it emitted has been applied. Confirming
// a buy releases the symbol's in-flight entry slot; confirming a sell drops
// the intent's dedupe entry, keeping the filled map bounded by the number of
// closes still in flight.
func (p *Paper) ConfirmFill(fill Fill) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch fill.Side {
	case SideBuy:
		delete(p.pending, fill.Symbol)
	case SideSell:
		delete(p.filled, fill.IntentID)
	}
}

// SubmitClose converts a close intent into a sell fill at the intent price.
// Intents already filled are dropped, so the ledger can re-emit the same
// intent every tick until the fill comes back around.
func (p *Paper) SubmitClose(ctx context.Context, intent CloseIntent) error {
	if intent.Quantity <= 0 || intent.Price <= 0 {
		return fmt.Errorf("paper broker: invalid close intent for %s (qty %.8f, price %.8f)", intent.Symbol, intent.Quantity, intent.Price)
	}

	p.mu.Lock()
	if p.filled[intent.ID] {
		p.mu.Unlock()
		return nil
	}
	p.filled[intent.ID] = true
	p.mu.Unlock()

	fill := Fill{
		ID:        ulid.Make().String(),
		IntentID:  intent.ID,
		Symbol:    intent.Symbol,
		Side:      SideSell,
		Quantity:  intent.Quantity,
		Price:     intent.Price,
		Reason:    intent.Reason,
		Timestamp: time.Now().UTC(),
	}
	select {
	case p.fills <- fill:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.startCooldown(intent.Symbol)
	p.logger.LogInfo("PaperBroker: SELL %s qty %.8f @ %.4f (%s)", intent.Symbol, intent.Quantity, intent.Price, intent.Reason)
	return nil
}

func (p *Paper) startCooldown(symbol string) {
	if p.cfg.CooldownMinutes <= 0 {
		return
	}
	until := time.Now().Add(time.Duration(p.cfg.CooldownMinutes) * time.Minute)
	p.mu.Lock()
	p.cooldowns[symbol] = until
	p.mu.Unlock()
	if p.store != nil {
		if err := p.store.SaveCooldown(symbol, until); err != nil {
			p.logger.LogError("PaperBroker [%s]: failed to persist cooldown: %v", symbol, err)
		}
	}
}
