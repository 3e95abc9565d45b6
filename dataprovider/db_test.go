package dataprovider

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quaser41/Autonomous-Trader/utilities"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	cfg := utilities.DatabaseConfig{DBPath: filepath.Join(t.TempDir(), "trader.db")}
	store, err := NewSQLiteStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPositionRoundTrip(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	pos := &utilities.Position{
		Symbol:     "BTC",
		EntryPrice: 100.5,
		Quantity:   0.25,
		PeakPrice:  104.2,
		StopPrice:  101.1,
		StopArmed:  true,
		StopState:  2,
		TakeProfit: 110.0,
		OpenedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SavePosition(pos))

	loaded, err := store.LoadPositions()
	require.NoError(t, err)
	require.Contains(t, loaded, "BTC")
	got := loaded["BTC"]
	assert.Equal(t, pos.EntryPrice, got.EntryPrice)
	assert.Equal(t, pos.Quantity, got.Quantity)
	assert.Equal(t, pos.PeakPrice, got.PeakPrice)
	assert.Equal(t, pos.StopPrice, got.StopPrice)
	assert.True(t, got.StopArmed)
	assert.Equal(t, pos.StopState, got.StopState)
	assert.Equal(t, pos.TakeProfit, got.TakeProfit)
}

func TestSavePositionUpserts(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	pos := &utilities.Position{Symbol: "ETH", EntryPrice: 50, Quantity: 1, PeakPrice: 50}
	require.NoError(t, store.SavePosition(pos))

	pos.PeakPrice = 55
	pos.StopPrice = 52
	require.NoError(t, store.SavePosition(pos))

	loaded, err := store.LoadPositions()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 55.0, loaded["ETH"].PeakPrice)
	assert.Equal(t, 52.0, loaded["ETH"].StopPrice)
}

func TestDeletePosition(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	require.NoError(t, store.SavePosition(&utilities.Position{Symbol: "SOL", EntryPrice: 20, Quantity: 5, PeakPrice: 20}))
	require.NoError(t, store.DeletePosition("SOL"))

	loaded, err := store.LoadPositions()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestRealizedPnLRoundTrip(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	require.NoError(t, store.SaveRealizedPnL("BTC", 12.5))
	require.NoError(t, store.SaveRealizedPnL("ETH", -3.25))
	require.NoError(t, store.SaveRealizedPnL("BTC", 20.0)) // cumulative overwrite

	records, err := store.LoadRealizedPnL()
	require.NoError(t, err)
	assert.Equal(t, 20.0, records["BTC"])
	assert.Equal(t, -3.25, records["ETH"])
}

func TestCooldownRoundTrip(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	until := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, store.SaveCooldown("DOGE", until))

	cds, err := store.LoadCooldowns()
	require.NoError(t, err)
	require.Contains(t, cds, "DOGE")
	assert.True(t, cds["DOGE"].Equal(until))
}
