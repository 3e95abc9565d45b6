package wallet

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quaser41/Autonomous-Trader/utilities"
)

func walletConfig(t *testing.T) utilities.WalletConfig {
	t.Helper()
	return utilities.WalletConfig{BalancePath: filepath.Join(t.TempDir(), "balance.txt")}
}

func readBalanceFile(t *testing.T, path string) float64 {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	require.NoError(t, err)
	return v
}

func TestLoadInitializesFromDryRunWallet(t *testing.T) {
	t.Parallel()

	cfg := walletConfig(t)
	risk := utilities.RiskConfig{DryRunWallet: 1000}

	s, err := Load(cfg, risk, utilities.NewLogger(utilities.Error))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, s.Balance())
	// Persisted immediately, not just in memory.
	assert.Equal(t, 1000.0, readBalanceFile(t, cfg.BalancePath))
}

func TestLoadRestartRecovery(t *testing.T) {
	t.Parallel()

	cfg := walletConfig(t)
	risk := utilities.RiskConfig{DryRunWallet: 1000}
	logger := utilities.NewLogger(utilities.Error)

	first, err := Load(cfg, risk, logger)
	require.NoError(t, err)
	_, err = first.ApplyDelta(-137.5)
	require.NoError(t, err)

	// A fresh process sees exactly the persisted balance, no drift.
	second, err := Load(cfg, risk, logger)
	require.NoError(t, err)
	assert.Equal(t, 862.5, second.Balance())
}

func TestLoadResetOverwritesPriorBalance(t *testing.T) {
	t.Parallel()

	cfg := walletConfig(t)
	require.NoError(t, os.WriteFile(cfg.BalancePath, []byte("42.0"), 0o644))

	risk := utilities.RiskConfig{ResetBalance: true, DryRunWallet: 1000}
	s, err := Load(cfg, risk, utilities.NewLogger(utilities.Error))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, s.Balance())
	assert.Equal(t, 1000.0, readBalanceFile(t, cfg.BalancePath))
}

func TestLoadCorruptBalanceIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"non_numeric", "not-a-number"},
		{"empty", ""},
		{"negative", "-10"},
		{"garbage_bytes", "\x00\x01\x02"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := walletConfig(t)
			require.NoError(t, os.WriteFile(cfg.BalancePath, []byte(tt.content), 0o644))

			// reset_balance=false: the corrupt file must surface as an error,
			// never a silent re-initialization.
			_, err := Load(cfg, utilities.RiskConfig{DryRunWallet: 1000}, utilities.NewLogger(utilities.Error))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptBalance)
		})
	}
}

func TestApplyDeltaPersistsBeforeReturning(t *testing.T) {
	t.Parallel()

	cfg := walletConfig(t)
	s, err := Load(cfg, utilities.RiskConfig{DryRunWallet: 500}, utilities.NewLogger(utilities.Error))
	require.NoError(t, err)

	next, err := s.ApplyDelta(250)
	require.NoError(t, err)
	assert.Equal(t, 750.0, next)
	assert.Equal(t, 750.0, s.Balance())
	assert.Equal(t, 750.0, readBalanceFile(t, cfg.BalancePath))

	next, err = s.ApplyDelta(-750)
	require.NoError(t, err)
	assert.Equal(t, 0.0, next)
	assert.Equal(t, 0.0, readBalanceFile(t, cfg.BalancePath))
}

func TestApplyDeltaRefusesNegativeBalance(t *testing.T) {
	t.Parallel()

	cfg := walletConfig(t)
	s, err := Load(cfg, utilities.RiskConfig{DryRunWallet: 100}, utilities.NewLogger(utilities.Error))
	require.NoError(t, err)

	_, err = s.ApplyDelta(-100.01)
	require.Error(t, err)
	// Both in-memory and on-disk values are untouched after the refusal.
	assert.Equal(t, 100.0, s.Balance())
	assert.Equal(t, 100.0, readBalanceFile(t, cfg.BalancePath))
}
