// File: pkg/reconcile/reconcile.go
package reconcile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Quaser41/Autonomous-Trader/internal/metrics"
	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// DefaultTolerance absorbs float rounding when no tolerance is configured.
const DefaultTolerance = 1e-6

// WalletView is the read side of the wallet store.
type WalletView interface {
	Balance() float64
}

// PnLView exposes the cumulative realized profit per symbol and the entry
// cost currently tied up in open positions.
type PnLView interface {
	RealizedPnL() map[string]float64
	OpenCostBasis() float64
}

// Notifier delivers reconciliation findings; delivery is an external concern.
type Notifier interface {
	SendMessage(message string) error
}

// Result is one reconciliation finding. Matched is false when the absolute
// difference between stored and expected balance exceeds the tolerance.
type Result struct {
	Balance   float64            `json:"balance"`
	Expected  float64            `json:"expected"`
	Diff      float64            `json:"diff"`
	OpenCost  float64            `json:"open_cost"`
	PerSymbol map[string]float64 `json:"per_symbol"`
	Matched   bool               `json:"matched"`
	CheckedAt time.Time          `json:"checked_at"`
}

// Reconciler audits the wallet balance against the starting wallet plus
// cumulative realized PnL. It reports drift; it never corrects the wallet.
type Reconciler struct {
	wallet    WalletView
	pnl       PnLView
	notifier  Notifier
	logger    *utilities.Logger
	initial   float64
	tolerance float64
}

// New builds a reconciler. initial is the configured starting wallet value
// (risk.dry_run_wallet); tolerance <= 0 falls back to DefaultTolerance.
func New(wallet WalletView, pnl PnLView, notifier Notifier, logger *utilities.Logger, initial, tolerance float64) *Reconciler {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Reconciler{
		wallet:    wallet,
		pnl:       pnl,
		notifier:  notifier,
		logger:    logger,
		initial:   initial,
		tolerance: tolerance,
	}
}

// Reconcile compares the stored balance to initial + sum of realized PnL and
// reports a mismatch through the notifier. Calling it twice with no
// intervening fills yields the same result.
func (r *Reconciler) Reconcile() Result {
	perSymbol := r.pnl.RealizedPnL()
	var totalPnL float64
	for _, v := range perSymbol {
		totalPnL += v
	}

	balance := r.wallet.Balance()
	expected := r.initial + totalPnL
	diff := balance - expected

	res := Result{
		Balance:   balance,
		Expected:  expected,
		Diff:      diff,
		OpenCost:  r.pnl.OpenCostBasis(),
		PerSymbol: perSymbol,
		Matched:   math.Abs(diff) <= r.tolerance,
		CheckedAt: time.Now().UTC(),
	}

	if res.Matched {
		metrics.Observer.IncrementReconciliation("match")
		r.logger.LogInfo("Reconcile: equity matches cumulative PnL: %.2f", balance)
		return res
	}

	metrics.Observer.IncrementReconciliation("mismatch")
	r.logger.LogError("Reconcile: equity mismatch: balance %.2f, expected %.2f, diff %.2f (open cost basis %.2f)", balance, expected, diff, res.OpenCost)
	if r.notifier != nil {
		if err := r.notifier.SendMessage(formatMismatch(res)); err != nil {
			r.logger.LogError("Reconcile: failed to deliver mismatch alert: %v", err)
		}
	}
	return res
}

// Start runs reconciliation on the given interval until the context is done.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Reconcile()
			}
		}
	}()
}

func formatMismatch(res Result) string {
	symbols := make([]string, 0, len(res.PerSymbol))
	for sym := range res.PerSymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ **Equity mismatch**: balance `%.2f`, expected `%.2f`, diff `%.2f`", res.Balance, res.Expected, res.Diff)
	// Buys debit the full stake up front, so open exposure shows up as a
	// negative diff. Net of open cost tells an operator whether this is
	// real drift.
	fmt.Fprintf(&b, "\nOpen position cost basis: `%.2f` (diff net of open exposure: `%.2f`)", res.OpenCost, res.Diff+res.OpenCost)
	for _, sym := range symbols {
		fmt.Fprintf(&b, "\n%s: `%.2f`", sym, res.PerSymbol[sym])
	}
	return b.String()
}
