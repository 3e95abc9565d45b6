package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quaser41/Autonomous-Trader/notification/discord"
	"github.com/Quaser41/Autonomous-Trader/pkg/broker"
	"github.com/Quaser41/Autonomous-Trader/pkg/ledger"
	"github.com/Quaser41/Autonomous-Trader/pkg/wallet"
	"github.com/Quaser41/Autonomous-Trader/utilities"
)

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
	return s.positions, nil
}

func (s *memStore) SaveRealizedPnL(symbol string, realized float64) error {
	s.pnl[symbol] = realized
	return nil
}

func (s *memStore) LoadRealizedPnL() (map[string]float64, error) {
	return s.pnl, nil
}

func testState(t *testing.T, risk utilities.RiskConfig) *TradingState {
	t.Helper()
	logger := utilities.NewLogger(utilities.Error)

	walletStore, err := wallet.Load(
		utilities.WalletConfig{BalancePath: filepath.Join(t.TempDir(), "balance.txt")},
		risk,
		logger,
	)
	require.NoError(t, err)

	book := ledger.New(utilities.TrailingStopConfig{}, utilities.ExitsConfig{}, walletStore, newMemStore(), logger)
	paper, err := broker.NewPaper(risk, walletStore, book, nil, nil, logger)
	require.NoError(t, err)

	return &TradingState{
		config:  &utilities.AppConfig{},
		logger:  logger,
		discord: discord.NewClient("", logger),
		wallet:  walletStore,
		ledger:  book,
		paper:   paper,
	}
}

// A burst of ticks for a flat symbol must open exactly one position, no
// matter how the loop interleaves the ticks with the opening fill still
// sitting on the fills channel.
func TestLoopOpensSingleEntryPerSymbol(t *testing.T) {
	t.Parallel()

	risk := utilities.RiskConfig{
		DryRunWallet:         1000,
		MaxOpenTrades:        3,
		TradableBalanceRatio: 0.5,
		StakePerTradeRatio:   0.2,
	}
	state := testState(t, risk)

	updates := make(chan broker.PriceUpdate, 8)
	for i := 0; i < 5; i++ {
		updates <- broker.PriceUpdate{Symbol: "BTC", Price: 50}
	}
	close(updates)

	require.NoError(t, state.loop(context.Background(), updates, nil))

	// One stake of 1000 * 0.5 * 0.2 = 100 debited, once.
	assert.InDelta(t, 900.0, state.wallet.Balance(), 1e-9)
	assert.Equal(t, 1, state.ledger.OpenCount())
	pos, ok := state.ledger.Position("BTC")
	require.True(t, ok)
	assert.InDelta(t, 2.0, pos.Quantity, 1e-9)
}

// Queued entry fills count toward max_open_trades, so a tick burst across
// symbols cannot open more positions than the limit allows.
func TestLoopHonorsMaxOpenTradesAcrossSymbols(t *testing.T) {
	t.Parallel()

	risk := utilities.RiskConfig{
		DryRunWallet:         1000,
		MaxOpenTrades:        1,
		TradableBalanceRatio: 0.5,
		StakePerTradeRatio:   0.2,
	}
	state := testState(t, risk)

	updates := make(chan broker.PriceUpdate, 8)
	updates <- broker.PriceUpdate{Symbol: "BTC", Price: 50}
	updates <- broker.PriceUpdate{Symbol: "ETH", Price: 20}
	updates <- broker.PriceUpdate{Symbol: "SOL", Price: 10}
	close(updates)

	require.NoError(t, state.loop(context.Background(), updates, nil))

	assert.Equal(t, 1, state.ledger.OpenCount())
	assert.InDelta(t, 900.0, state.wallet.Balance(), 1e-9)
}
