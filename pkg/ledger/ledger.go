// File: pkg/ledger/ledger.go
package ledger

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/Quaser41/Autonomous-Trader/pkg/broker"
	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// Quantities below this are treated as fully closed.
const dustQuantity = 1e-8

// Close intent reasons.
const (
	ReasonTakeProfit   = "take_profit"
	ReasonTrailingStop = "trailing_stop"
	ReasonStopLoss     = "stop_loss"
)

// Store persists ledger state across restarts.
type Store interface {
	SavePosition(pos *utilities.Position) error
	DeletePosition(symbol string) error
	LoadPositions() (map[string]*utilities.Position, error)
	SaveRealizedPnL(symbol string, realized float64) error
	LoadRealizedPnL() (map[string]float64, error)
}

// WalletStore is the slice of the wallet the ledger needs. Only closing and
// opening fills ever move money through it.
type WalletStore interface {
	ApplyDelta(amount float64) (float64, error)
	Balance() float64
}

// managed pairs a position with its own lock, so ticks for unrelated symbols
// never contend, and with the ID of the active close intent if one is out.
type managed struct {
	mu       sync.Mutex
	pos      *utilities.Position
	intentID string
}

// Ledger owns all open positions, applies fills, and drives the trailing
// stop engine from price updates. All mutations to a given position are
// serialized on that position's lock.
type Ledger struct {
	engine *StopEngine
	exits  utilities.ExitsConfig
	wallet WalletStore
	store  Store
	logger *utilities.Logger

	mu        sync.RWMutex
	positions map[string]*managed
	pnl       *pnlBook
}

// New builds a ledger over the given wallet and persistence store.
func New(trailing utilities.TrailingStopConfig, exits utilities.ExitsConfig, wallet WalletStore, store Store, logger *utilities.Logger) *Ledger {
	return &Ledger{
		engine:    NewStopEngine(trailing),
		exits:     exits,
		wallet:    wallet,
		store:     store,
		logger:    logger,
		positions: make(map[string]*managed),
		pnl:       newPnLBook(),
	}
}

// Restore loads persisted open positions and PnL records. Call once before
// processing any ticks or fills.
func (l *Ledger) Restore() error {
	positions, err := l.store.LoadPositions()
	if err != nil {
		return fmt.Errorf("ledger: failed to load open positions: %w", err)
	}
	records, err := l.store.LoadRealizedPnL()
	if err != nil {
		return fmt.Errorf("ledger: failed to load pnl records: %w", err)
	}

	l.mu.Lock()
	for sym, pos := range positions {
		l.positions[sym] = &managed{pos: pos}
	}
	l.mu.Unlock()
	l.pnl.load(records)

	l.logger.LogInfo("Ledger: restored %d open position(s) and %d pnl record(s).", len(positions), len(records))
	return nil
}

// OnFill applies one executed fill: a buy opens or extends a position, a sell
// realizes PnL and forwards the proceeds to the wallet. This is the only path
// that moves money.
func (l *Ledger) OnFill(fill broker.Fill) error {
	if fill.Symbol == "" || fill.Quantity <= 0 || fill.Price <= 0 {
		return fmt.Errorf("ledger: malformed fill %q (symbol %q, qty %.8f, price %.8f)", fill.ID, fill.Symbol, fill.Quantity, fill.Price)
	}

	switch fill.Side {
	case broker.SideBuy:
		return l.applyBuy(fill)
	case broker.SideSell:
		return l.applySell(fill)
	default:
		return fmt.Errorf("ledger: unknown fill side %q for %s", fill.Side, fill.Symbol)
	}
}

func (l *Ledger) applyBuy(fill broker.Fill) error {
	l.mu.Lock()
	m, exists := l.positions[fill.Symbol]
	if !exists {
		m = &managed{}
		l.positions[fill.Symbol] = m
	}
	l.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	stake := fill.Quantity * fill.Price
	if _, err := l.wallet.ApplyDelta(-stake); err != nil {
		if !exists {
			l.mu.Lock()
			delete(l.positions, fill.Symbol)
			l.mu.Unlock()
		}
		return fmt.Errorf("ledger [%s]: buy fill refused: %w", fill.Symbol, err)
	}

	if m.pos == nil {
		pos := &utilities.Position{
			Symbol:     fill.Symbol,
			EntryPrice: fill.Price,
			Quantity:   fill.Quantity,
			PeakPrice:  fill.Price,
			StopState:  StopInactive,
			OpenedAt:   fill.Timestamp,
		}
		if l.exits.StopLossPct > 0 {
			pos.StopPrice = fill.Price * (1 - l.exits.StopLossPct)
		}
		if l.exits.TakeProfitPct > 0 {
			pos.TakeProfit = fill.Price * (1 + l.exits.TakeProfitPct)
		}
		m.pos = pos
		l.logger.LogInfo("Ledger: opened %s qty %.8f @ %.4f (stop %.4f, tp %.4f)", pos.Symbol, pos.Quantity, pos.EntryPrice, pos.StopPrice, pos.TakeProfit)
	} else {
		pos := m.pos
		oldQty := pos.Quantity
		pos.Quantity += fill.Quantity
		pos.EntryPrice = (pos.EntryPrice*oldQty + fill.Price*fill.Quantity) / pos.Quantity
		if fill.Price > pos.PeakPrice {
			pos.PeakPrice = fill.Price
		}
		if l.exits.TakeProfitPct > 0 {
			pos.TakeProfit = pos.EntryPrice * (1 + l.exits.TakeProfitPct)
		}
		if pos.StopState == StopInactive && l.exits.StopLossPct > 0 {
			pos.StopPrice = pos.EntryPrice * (1 - l.exits.StopLossPct)
		}
		l.logger.LogInfo("Ledger: extended %s to qty %.8f, new avg entry %.4f", pos.Symbol, pos.Quantity, pos.EntryPrice)
	}

	if err := l.store.SavePosition(m.pos); err != nil {
		return fmt.Errorf("ledger [%s]: failed to persist position: %w", fill.Symbol, err)
	}
	return nil
}

func (l *Ledger) applySell(fill broker.Fill) error {
	l.mu.RLock()
	m, exists := l.positions[fill.Symbol]
	l.mu.RUnlock()
	if !exists || m.pos == nil {
		return fmt.Errorf("ledger: sell fill %q for %s has no open position", fill.ID, fill.Symbol)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.pos
	closedQty := fill.Quantity
	if closedQty > pos.Quantity {
		l.logger.LogWarn("Ledger [%s]: sell fill qty %.8f exceeds position qty %.8f, clamping.", fill.Symbol, fill.Quantity, pos.Quantity)
		closedQty = pos.Quantity
	}

	realized := (fill.Price - pos.EntryPrice) * closedQty
	proceeds := closedQty * fill.Price

	if _, err := l.wallet.ApplyDelta(proceeds); err != nil {
		return fmt.Errorf("ledger [%s]: failed to credit proceeds: %w", fill.Symbol, err)
	}
	cumulative := l.pnl.add(fill.Symbol, realized)
	if err := l.store.SaveRealizedPnL(fill.Symbol, cumulative); err != nil {
		return fmt.Errorf("ledger [%s]: failed to persist pnl record: %w", fill.Symbol, err)
	}

	if fill.IntentID != "" && fill.IntentID == m.intentID {
		m.intentID = ""
	}

	pos.Quantity -= closedQty
	if pos.Quantity <= dustQuantity {
		l.mu.Lock()
		delete(l.positions, fill.Symbol)
		l.mu.Unlock()
		if err := l.store.DeletePosition(fill.Symbol); err != nil {
			return fmt.Errorf("ledger [%s]: failed to delete closed position: %w", fill.Symbol, err)
		}
		l.logger.LogInfo("Ledger: closed %s @ %.4f, realized %.2f (cumulative %.2f)", fill.Symbol, fill.Price, realized, cumulative)
		return nil
	}

	if err := l.store.SavePosition(pos); err != nil {
		return fmt.Errorf("ledger [%s]: failed to persist reduced position: %w", fill.Symbol, err)
	}
	l.logger.LogInfo("Ledger: reduced %s by %.8f @ %.4f, realized %.2f, remaining %.8f", fill.Symbol, closedQty, fill.Price, realized, pos.Quantity)
	return nil
}

// OnPriceUpdate advances the trailing stop for the symbol's position, if any.
// It returns a close intent when the stop or a hard exit has triggered; the
// same intent (same ID) is returned on every subsequent tick until a fill
// clears it. Price updates never move money, only stop levels.
func (l *Ledger) OnPriceUpdate(symbol string, price, atrPct float64) (*broker.CloseIntent, error) {
	l.mu.RLock()
	m, exists := l.positions[symbol]
	l.mu.RUnlock()
	if !exists || m.pos == nil {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.pos
	if price <= 0 || pos.EntryPrice <= 0 {
		pos.Flagged = true
		return nil, fmt.Errorf("ledger [%s]: bad tick (price %.8f, entry %.8f), position flagged", symbol, price, pos.EntryPrice)
	}

	pos.UnrealizedPL = (price - pos.EntryPrice) * pos.Quantity

	prevStop, prevPeak, prevState := pos.StopPrice, pos.PeakPrice, pos.StopState

	reason := ""
	triggered := false
	if pos.TakeProfit > 0 && price >= pos.TakeProfit {
		pos.StopState = StopTriggered
		triggered = true
		reason = ReasonTakeProfit
	} else {
		var err error
		triggered, err = l.engine.Advance(pos, price, atrPct)
		if err != nil {
			pos.Flagged = true
			return nil, err
		}
		if triggered {
			reason = ReasonTrailingStop
			if !pos.StopArmed {
				reason = ReasonStopLoss
			}
		}
	}

	if pos.StopPrice != prevStop || pos.PeakPrice != prevPeak || pos.StopState != prevState {
		if err := l.store.SavePosition(pos); err != nil {
			l.logger.LogError("Ledger [%s]: failed to persist stop advance: %v", symbol, err)
		}
	}

	if !triggered {
		return nil, nil
	}

	if m.intentID == "" {
		m.intentID = ulid.Make().String()
		l.logger.LogWarn("Ledger [%s]: %s triggered at %.4f (stop %.4f, peak %.4f), emitting close intent.", symbol, reason, price, pos.StopPrice, pos.PeakPrice)
	}
	return &broker.CloseIntent{
		ID:       m.intentID,
		Symbol:   symbol,
		Quantity: pos.Quantity,
		Price:    price,
		Reason:   reason,
	}, nil
}

// Has reports whether a position is open for the symbol.
func (l *Ledger) Has(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.positions[symbol]
	return ok
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// Position returns a copy of the symbol's position.
func (l *Ledger) Position(symbol string) (utilities.Position, bool) {
	l.mu.RLock()
	m, ok := l.positions[symbol]
	l.mu.RUnlock()
	if !ok || m.pos == nil {
		return utilities.Position{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.pos, true
}

// Positions returns copies of all open positions.
func (l *Ledger) Positions() []utilities.Position {
	l.mu.RLock()
	managedList := make([]*managed, 0, len(l.positions))
	for _, m := range l.positions {
		managedList = append(managedList, m)
	}
	l.mu.RUnlock()

	out := make([]utilities.Position, 0, len(managedList))
	for _, m := range managedList {
		m.mu.Lock()
		if m.pos != nil {
			out = append(out, *m.pos)
		}
		m.mu.Unlock()
	}
	return out
}

// RealizedPnL returns a copy of the per-symbol cumulative realized profit.
func (l *Ledger) RealizedPnL() map[string]float64 {
	return l.pnl.snapshot()
}

// TotalRealizedPnL returns the sum of all realized PnL records.
func (l *Ledger) TotalRealizedPnL() float64 {
	return l.pnl.total()
}

// OpenCostBasis returns the entry cost tied up in open positions, the amount
// debited from the wallet that sells have not yet returned.
func (l *Ledger) OpenCostBasis() float64 {
	var sum float64
	for _, pos := range l.Positions() {
		sum += pos.EntryPrice * pos.Quantity
	}
	return sum
}

// TotalUnrealizedPnL sums the last computed unrealized PnL of open positions.
func (l *Ledger) TotalUnrealizedPnL() float64 {
	var sum float64
	for _, pos := range l.Positions() {
		sum += pos.UnrealizedPL
	}
	return sum
}
