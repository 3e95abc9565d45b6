// File: pkg/wallet/wallet.go
package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// ErrCorruptBalance is returned by Load when the balance file exists but does
// not hold a single decimal value. Continuing with an unknown balance risks
// real loss, so startup must abort rather than silently reset.
var ErrCorruptBalance = errors.New("wallet: stored balance is corrupt")

// Store is the durable single-value balance. It is the sole source of truth
// for available capital: every mutation writes through to disk before it
// returns, using a temp file plus rename so the value is never observed torn.
type Store struct {
	mu      sync.Mutex
	path    string
	balance float64
	logger  *utilities.Logger
}

// Load reads the persisted balance, or initializes it from the configured
// dry-run wallet when no file exists or a reset is requested. A file that
// exists but cannot be parsed surfaces ErrCorruptBalance.
func Load(cfg utilities.WalletConfig, risk utilities.RiskConfig, logger *utilities.Logger) (*Store, error) {
	s := &Store{path: cfg.BalancePath, logger: logger}

	if risk.ResetBalance {
		logger.LogWarn("Wallet: reset_balance is set, initializing balance to %.2f.", risk.DryRunWallet)
		if err := s.Reset(risk.DryRunWallet); err != nil {
			return nil, err
		}
		return s, nil
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		logger.LogInfo("Wallet: no balance file at %s, starting from dry_run_wallet %.2f.", s.path, risk.DryRunWallet)
		if err := s.Reset(risk.DryRunWallet); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to read balance file %s: %w", s.path, err)
	}

	bal, parseErr := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %s is not numeric: %v", ErrCorruptBalance, s.path, parseErr)
	}
	if bal < 0 {
		return nil, fmt.Errorf("%w: %s holds negative balance %.8f", ErrCorruptBalance, s.path, bal)
	}

	s.balance = bal
	logger.LogInfo("Wallet: loaded persisted balance %.2f from %s.", bal, s.path)
	return s, nil
}

// Balance returns the current in-memory balance.
func (s *Store) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// ApplyDelta atomically adds the signed amount and persists the new value
// before returning. A delta that would drive the balance negative is refused
// and leaves both the in-memory and on-disk values untouched.
func (s *Store) ApplyDelta(amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.balance + amount
	if next < 0 {
		return s.balance, fmt.Errorf("wallet: delta %.2f would drive balance %.2f negative", amount, s.balance)
	}
	if err := s.persist(next); err != nil {
		return s.balance, err
	}
	s.balance = next
	return next, nil
}

// Reset overwrites the balance, used only at startup when configured.
func (s *Store) Reset(to float64) error {
	if to < 0 {
		return fmt.Errorf("wallet: cannot reset to negative balance %.2f", to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(to); err != nil {
		return err
	}
	s.balance = to
	return nil
}

// persist writes the value to a temp file in the same directory and renames
// it over the balance file. Callers must hold s.mu.
func (s *Store) persist(value float64) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("wallet: failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "balance-*.tmp")
	if err != nil {
		return fmt.Errorf("wallet: failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strconv.FormatFloat(value, 'f', -1, 64)); err != nil {
		tmp.Close()
		return fmt.Errorf("wallet: failed to write balance: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("wallet: failed to sync balance: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("wallet: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("wallet: failed to replace balance file: %w", err)
	}
	return nil
}
