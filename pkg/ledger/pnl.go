// File: pkg/ledger/pnl.go
package ledger

import "sync"

// pnlBook accumulates realized profit per symbol for the lifetime of the
// process. It outlives the positions that produced it so the reconciler can
// audit the wallet independently of what is currently open.
type pnlBook struct {
	mu       sync.RWMutex
	realized map[string]float64
}

func newPnLBook() *pnlBook {
	return &pnlBook{realized: make(map[string]float64)}
}

func (b *pnlBook) load(records map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sym, v := range records {
		b.realized[sym] = v
	}
}

// add accumulates a realized delta and returns the symbol's new cumulative
// total.
func (b *pnlBook) add(symbol string, delta float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.realized[symbol] += delta
	return b.realized[symbol]
}

func (b *pnlBook) snapshot() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.realized))
	for sym, v := range b.realized {
		out[sym] = v
	}
	return out
}

func (b *pnlBook) total() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var sum float64
	for _, v := range b.realized {
		sum += v
	}
	return sum
}
