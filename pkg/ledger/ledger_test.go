package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quaser41/Autonomous-Trader/pkg/broker"
	"github.com/Quaser41/Autonomous-Trader/utilities"
)

type fakeWallet struct {
	balance float64
	deltas  []float64
}

func (w *fakeWallet) ApplyDelta(amount float64) (float64, error) {
	if w.balance+amount < 0 {
		return w.balance, fmt.Errorf("wallet: delta %.2f would leave balance negative", amount)
	}
	w.balance += amount
	w.deltas = append(w.deltas, amount)
	return w.balance, nil
}

func (w *fakeWallet) Balance() float64 { return w.balance }

type memStore struct {
	positions map[string]*utilities.Position
	pnl       map[string]float64
}

func newMemStore() *memStore {
	return &memStore{
		positions: make(map[string]*utilities.Position),
		pnl:       make(map[string]float64),
	}
}

func (s *memStore) SavePosition(pos *utilities.Position) error {
	cp := *pos
	s.positions[pos.Symbol] = &cp
	return nil
}

func (s *memStore) DeletePosition(symbol string) error {
	delete(s.positions, symbol)
	return nil
}

func (s *memStore) LoadPositions() (map[string]*utilities.Position, error) {
	out := make(map[string]*utilities.Position, len(s.positions))
	for sym, pos := range s.positions {
		cp := *pos
		out[sym] = &cp
	}
	return out, nil
}

func (s *memStore) SaveRealizedPnL(symbol string, realized float64) error {
	s.pnl[symbol] = realized
	return nil
}

func (s *memStore) LoadRealizedPnL() (map[string]float64, error) {
	out := make(map[string]float64, len(s.pnl))
	for sym, v := range s.pnl {
		out[sym] = v
	}
	return out, nil
}

func testLedger(t *testing.T, balance float64) (*Ledger, *fakeWallet, *memStore) {
	t.Helper()
	w := &fakeWallet{balance: balance}
	s := newMemStore()
	l := New(trailingConfig(), utilities.ExitsConfig{}, w, s, utilities.NewLogger(utilities.Error))
	require.NoError(t, l.Restore())
	return l, w, s
}

func buyFill(symbol string, qty, price float64) broker.Fill {
	return broker.Fill{
		ID:        "fill-" + symbol,
		Symbol:    symbol,
		Side:      broker.SideBuy,
		Quantity:  qty,
		Price:     price,
		Timestamp: time.Now(),
	}
}

func TestOnFillOpensPosition(t *testing.T) {
	t.Parallel()

	l, w, s := testLedger(t, 1000)

	require.NoError(t, l.OnFill(buyFill("BTC", 2, 100)))

	pos, ok := l.Position("BTC")
	require.True(t, ok)
	assert.Equal(t, 100.0, pos.EntryPrice)
	assert.Equal(t, 100.0, pos.PeakPrice)
	assert.Equal(t, 2.0, pos.Quantity)
	assert.Equal(t, StopInactive, pos.StopState)
	assert.False(t, pos.StopArmed)

	// Stake left the wallet and the position was persisted.
	assert.Equal(t, 800.0, w.Balance())
	assert.Contains(t, s.positions, "BTC")
}

func TestOnFillAveragesIn(t *testing.T) {
	t.Parallel()

	l, w, _ := testLedger(t, 1000)

	require.NoError(t, l.OnFill(buyFill("ETH", 1, 100)))
	require.NoError(t, l.OnFill(buyFill("ETH", 1, 110)))

	pos, ok := l.Position("ETH")
	require.True(t, ok)
	assert.Equal(t, 2.0, pos.Quantity)
	assert.InDelta(t, 105.0, pos.EntryPrice, 1e-9)
	assert.Equal(t, 110.0, pos.PeakPrice)
	assert.Equal(t, 790.0, w.Balance())
	assert.Equal(t, 1, l.OpenCount())
}

func TestSellFillRealizesPnL(t *testing.T) {
	t.Parallel()

	l, w, s := testLedger(t, 1000)
	require.NoError(t, l.OnFill(buyFill("BTC", 2, 100)))

	sell := broker.Fill{
		ID:       "sell-1",
		Symbol:   "BTC",
		Side:     broker.SideSell,
		Quantity: 2,
		Price:    110,
	}
	require.NoError(t, l.OnFill(sell))

	assert.False(t, l.Has("BTC"))
	assert.NotContains(t, s.positions, "BTC")
	// (110-100)*2 realized; wallet got the full proceeds back.
	assert.InDelta(t, 20.0, l.RealizedPnL()["BTC"], 1e-9)
	assert.InDelta(t, 1020.0, w.Balance(), 1e-9)
	assert.InDelta(t, 20.0, s.pnl["BTC"], 1e-9)
}

func TestPartialSellKeepsPosition(t *testing.T) {
	t.Parallel()

	l, w, _ := testLedger(t, 1000)
	require.NoError(t, l.OnFill(buyFill("BTC", 2, 100)))

	sell := broker.Fill{Symbol: "BTC", Side: broker.SideSell, Quantity: 1, Price: 120}
	require.NoError(t, l.OnFill(sell))

	pos, ok := l.Position("BTC")
	require.True(t, ok)
	assert.Equal(t, 1.0, pos.Quantity)
	assert.Equal(t, 100.0, pos.EntryPrice)
	assert.InDelta(t, 20.0, l.TotalRealizedPnL(), 1e-9)
	assert.InDelta(t, 920.0, w.Balance(), 1e-9)
}

func TestPriceUpdatesNeverMoveMoney(t *testing.T) {
	t.Parallel()

	l, w, _ := testLedger(t, 1000)
	require.NoError(t, l.OnFill(buyFill("BTC", 1, 100)))
	deltasAfterBuy := len(w.deltas)

	for _, price := range []float64{100.4, 100.7, 100.5, 99.6, 99.6} {
		_, err := l.OnPriceUpdate("BTC", price, 0)
		require.NoError(t, err)
	}

	assert.Equal(t, deltasAfterBuy, len(w.deltas), "ticks must not touch the wallet")
	assert.InDelta(t, 900.0, w.Balance(), 1e-9)
}

func TestTriggeredIntentIsStableAcrossTicks(t *testing.T) {
	t.Parallel()

	l, _, _ := testLedger(t, 1000)
	require.NoError(t, l.OnFill(buyFill("BTC", 1, 100)))

	_, err := l.OnPriceUpdate("BTC", 101, 0)
	require.NoError(t, err)
	intent, err := l.OnPriceUpdate("BTC", 90, 0)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Equal(t, ReasonTrailingStop, intent.Reason)
	assert.Equal(t, 1.0, intent.Quantity)

	// Until a fill acknowledges it, every subsequent tick re-emits the same
	// intent ID.
	again, err := l.OnPriceUpdate("BTC", 91, 0)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, intent.ID, again.ID)

	// The acknowledging sell fill clears the intent and the position.
	sell := broker.Fill{Symbol: "BTC", IntentID: intent.ID, Side: broker.SideSell, Quantity: 1, Price: 90}
	require.NoError(t, l.OnFill(sell))
	assert.False(t, l.Has("BTC"))
}

func TestBadTickFlagsPosition(t *testing.T) {
	t.Parallel()

	l, w, _ := testLedger(t, 1000)
	require.NoError(t, l.OnFill(buyFill("BTC", 1, 100)))
	require.NoError(t, l.OnFill(buyFill("ETH", 1, 50)))
	balance := w.Balance()

	_, err := l.OnPriceUpdate("BTC", -5, 0)
	assert.Error(t, err)

	pos, ok := l.Position("BTC")
	require.True(t, ok)
	assert.True(t, pos.Flagged)

	// Other symbols keep trading and no money moved.
	_, err = l.OnPriceUpdate("ETH", 51, 0)
	assert.NoError(t, err)
	assert.Equal(t, balance, w.Balance())
}

func TestHardTakeProfitTriggers(t *testing.T) {
	t.Parallel()

	w := &fakeWallet{balance: 1000}
	s := newMemStore()
	exits := utilities.ExitsConfig{TakeProfitPct: 0.05}
	l := New(trailingConfig(), exits, w, s, utilities.NewLogger(utilities.Error))
	require.NoError(t, l.Restore())

	require.NoError(t, l.OnFill(buyFill("BTC", 1, 100)))
	pos, _ := l.Position("BTC")
	assert.InDelta(t, 105.0, pos.TakeProfit, 1e-9)

	intent, err := l.OnPriceUpdate("BTC", 105.5, 0)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Equal(t, ReasonTakeProfit, intent.Reason)
}

func TestMalformedFillRejected(t *testing.T) {
	t.Parallel()

	l, w, _ := testLedger(t, 1000)

	assert.Error(t, l.OnFill(broker.Fill{Symbol: "BTC", Side: broker.SideBuy, Quantity: 0, Price: 100}))
	assert.Error(t, l.OnFill(broker.Fill{Symbol: "BTC", Side: broker.SideBuy, Quantity: 1, Price: 0}))
	assert.Error(t, l.OnFill(broker.Fill{Symbol: "", Side: broker.SideBuy, Quantity: 1, Price: 100}))
	assert.Error(t, l.OnFill(broker.Fill{Symbol: "BTC", Side: "hold", Quantity: 1, Price: 100}))
	assert.Error(t, l.OnFill(broker.Fill{Symbol: "BTC", Side: broker.SideSell, Quantity: 1, Price: 100}))

	assert.Equal(t, 1000.0, w.Balance())
	assert.Equal(t, 0, l.OpenCount())
}

func TestRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	w := &fakeWallet{balance: 1000}
	s := newMemStore()
	logger := utilities.NewLogger(utilities.Error)

	first := New(trailingConfig(), utilities.ExitsConfig{}, w, s, logger)
	require.NoError(t, first.Restore())
	require.NoError(t, first.OnFill(buyFill("BTC", 1, 100)))
	require.NoError(t, first.OnFill(buyFill("ETH", 2, 50)))
	sell := broker.Fill{Symbol: "ETH", Side: broker.SideSell, Quantity: 2, Price: 55}
	require.NoError(t, first.OnFill(sell))

	// A fresh ledger over the same store sees the same world.
	second := New(trailingConfig(), utilities.ExitsConfig{}, w, s, logger)
	require.NoError(t, second.Restore())
	assert.Equal(t, 1, second.OpenCount())
	assert.True(t, second.Has("BTC"))
	assert.InDelta(t, 10.0, second.RealizedPnL()["ETH"], 1e-9)
}
