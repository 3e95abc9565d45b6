// File: pkg/universe/universe.go
package universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Quaser41/Autonomous-Trader/dataprovider"
	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// Snapshot is an immutable view of the tradeable symbol set. Consumers read
// whole snapshots; a refresh swaps in a new one by reference, so a reader
// never observes a partially-updated set.
type Snapshot struct {
	symbols   []string
	set       map[string]struct{}
	FetchedAt time.Time
}

// NewSnapshot builds a snapshot, deduplicating while preserving order.
func NewSnapshot(symbols []string, at time.Time) *Snapshot {
	s := &Snapshot{set: make(map[string]struct{}, len(symbols)), FetchedAt: at}
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, seen := s.set[sym]; seen {
			continue
		}
		s.set[sym] = struct{}{}
		s.symbols = append(s.symbols, sym)
	}
	return s
}

// Symbols returns the snapshot's symbols in merge order.
func (s *Snapshot) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Contains reports whether the symbol is in the snapshot.
func (s *Snapshot) Contains(symbol string) bool {
	_, ok := s.set[strings.ToUpper(symbol)]
	return ok
}

// Len returns the number of symbols in the snapshot.
func (s *Snapshot) Len() int { return len(s.symbols) }

// Refresher periodically republishes the tradeable symbol set from its
// sources. It only supplies candidate symbols; it never touches money state.
type Refresher struct {
	sources []dataprovider.SymbolSource
	cfg     utilities.UniverseConfig
	logger  *utilities.Logger
	current atomic.Pointer[Snapshot]
}

// NewRefresher builds a refresher over the given sources. The initial
// snapshot is empty until the first refresh completes.
func NewRefresher(cfg utilities.UniverseConfig, sources []dataprovider.SymbolSource, logger *utilities.Logger) *Refresher {
	r := &Refresher{sources: sources, cfg: cfg, logger: logger}
	r.current.Store(NewSnapshot(nil, time.Time{}))
	return r
}

// Snapshot returns the latest published symbol set. Never nil.
func (r *Refresher) Snapshot() *Snapshot {
	return r.current.Load()
}

// Contains reports whether the symbol is in the current snapshot.
func (r *Refresher) Contains(symbol string) bool {
	return r.current.Load().Contains(symbol)
}

// Refresh fetches all sources, merges and dedupes preserving source order,
// caps the result, and atomically publishes the new snapshot. A cycle where
// every source fails keeps the previous snapshot and returns the error.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	var merged []string
	var failures []error
	for _, src := range r.sources {
		symbols, err := src.FetchSymbols(ctx)
		if err != nil {
			r.logger.LogWarn("Universe: source %s failed this cycle: %v", src.Name(), err)
			failures = append(failures, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		r.logger.LogDebug("Universe: source %s returned %d symbols.", src.Name(), len(symbols))
		merged = append(merged, symbols...)
	}

	if len(merged) == 0 && len(failures) > 0 {
		return r.Snapshot(), fmt.Errorf("universe: all sources failed: %w", errors.Join(failures...))
	}

	snap := NewSnapshot(merged, time.Now().UTC())
	if r.cfg.MaxSymbols > 0 && snap.Len() > r.cfg.MaxSymbols {
		snap = NewSnapshot(snap.symbols[:r.cfg.MaxSymbols], snap.FetchedAt)
	}
	r.current.Store(snap)
	r.logger.LogInfo("Universe: published %d tradeable symbols.", snap.Len())

	if r.cfg.WhitelistPath != "" {
		if err := r.persistWhitelist(snap); err != nil {
			r.logger.LogError("Universe: failed to persist whitelist: %v", err)
		}
	}
	return snap, nil
}

// Start runs an immediate refresh and then one per configured interval until
// the context is done. Failed cycles are retried on the next interval.
func (r *Refresher) Start(ctx context.Context) {
	interval := time.Duration(r.cfg.RefreshMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	go func() {
		if _, err := r.Refresh(ctx); err != nil {
			r.logger.LogWarn("Universe: initial refresh failed: %v", err)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Refresh(ctx); err != nil {
					r.logger.LogWarn("Universe: refresh cycle failed, retrying next interval: %v", err)
				}
			}
		}
	}()
}

// persistWhitelist mirrors the snapshot to the runtime whitelist file so the
// external signal generator can pick it up.
func (r *Refresher) persistWhitelist(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(r.cfg.WhitelistPath), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(snap.Symbols(), "", "  ")
	if err != nil {
		return err
	}
	tmp := r.cfg.WhitelistPath + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.cfg.WhitelistPath)
}
