// File: pkg/ledger/trailing.go
package ledger

import (
	"fmt"

	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// Trailing stop states. A stop moves INACTIVE -> ARMED_BREAKEVEN -> TRAILING
// -> TRIGGERED; a single tick may skip ARMED_BREAKEVEN when price gapped past
// both thresholds. TRIGGERED is terminal.
const (
	StopInactive = iota
	StopArmedBreakeven
	StopTrailing
	StopTriggered
)

// StopStateName returns a readable name for a stop state, for logs and the
// status endpoint.
func StopStateName(state int) string {
	switch state {
	case StopInactive:
		return "inactive"
	case StopArmedBreakeven:
		return "armed_breakeven"
	case StopTrailing:
		return "trailing"
	case StopTriggered:
		return "triggered"
	default:
		return "unknown"
	}
}

// StopEngine advances a position's trailing stop from price/ATR updates. It
// mutates only peak/stop/state fields and never touches quantity or money.
type StopEngine struct {
	cfg utilities.TrailingStopConfig
}

// NewStopEngine builds an engine over an immutable per-run config.
func NewStopEngine(cfg utilities.TrailingStopConfig) *StopEngine {
	return &StopEngine{cfg: cfg}
}

// Advance evaluates one tick against the position and reports whether the
// stop is (still) triggered. Once TRIGGERED it keeps reporting true without
// re-evaluating trailing logic, so the caller can re-emit the close intent
// until a fill acknowledges it.
func (e *StopEngine) Advance(pos *utilities.Position, price, atrPct float64) (bool, error) {
	if !e.cfg.Enable {
		return false, nil
	}
	if pos.EntryPrice <= 0 {
		return false, fmt.Errorf("trailing stop [%s]: entry price %.8f is not positive", pos.Symbol, pos.EntryPrice)
	}
	if price <= 0 {
		return false, fmt.Errorf("trailing stop [%s]: price %.8f is not positive", pos.Symbol, price)
	}

	if pos.StopState == StopTriggered {
		return true, nil
	}

	profitRatio := (price - pos.EntryPrice) / pos.EntryPrice

	if pos.StopState == StopInactive {
		// Initial hard stop, if one was set at entry, fires before the stop
		// ever arms.
		if pos.StopPrice > 0 && price <= pos.StopPrice {
			pos.StopState = StopTriggered
			return true, nil
		}
		if profitRatio < e.cfg.ActivateProfitPct {
			return false, nil
		}
		pos.StopState = StopArmedBreakeven
		pos.StopArmed = true
		if pos.EntryPrice > pos.StopPrice {
			pos.StopPrice = pos.EntryPrice
		}
	}

	entering := false
	if pos.StopState == StopArmedBreakeven {
		if profitRatio < e.cfg.BreakevenPct {
			if price <= pos.StopPrice {
				pos.StopState = StopTriggered
				return true, nil
			}
			return false, nil
		}
		pos.StopState = StopTrailing
		entering = true
	}

	// TRAILING: track the peak and ratchet the stop toward it. On the tick
	// that enters TRAILING the stop re-bases to peak minus distance, which may
	// sit below the breakeven level; from then on it only ever moves up.
	if price > pos.PeakPrice {
		pos.PeakPrice = price
	}
	distance := pos.PeakPrice * e.cfg.TrailPct
	if atrPct > 0 && e.cfg.ATRTrailMultiplier > 0 {
		distance = pos.PeakPrice * atrPct * e.cfg.ATRTrailMultiplier
	}
	if candidate := pos.PeakPrice - distance; entering || candidate > pos.StopPrice {
		pos.StopPrice = candidate
	}

	if price <= pos.StopPrice {
		pos.StopState = StopTriggered
		return true, nil
	}
	return false, nil
}
