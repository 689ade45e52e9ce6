package realtime

import (
	"sync"
	"time"
)

// RateWindow counts blocks and distinct transactions over a sliding window
type RateWindow struct {
	mu     sync.Mutex
	window time.Duration
	blocks []time.Time
	txs    map[string]time.Time
}

// NewRateWindow creates a window of the given width
func NewRateWindow(window time.Duration) *RateWindow {
	return &RateWindow{
		window: window,
		txs:    make(map[string]time.Time),
	}
}

// RecordBlock records a block seen at t
func (w *RateWindow) RecordBlock(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blocks = append(w.blocks, t)
}

// RecordTx records a transaction hash seen at t. Repeated hashes count once.
func (w *RateWindow) RecordTx(hash string, t time.Time) {
	if hash == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.txs[hash]; !ok {
		w.txs[hash] = t
	}
}

// Prune drops entries older than the window and returns how many were removed
func (w *RateWindow) Prune(now time.Time) int {
	cutoff := now.Add(-w.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	kept := w.blocks[:0]
	for _, t := range w.blocks {
		if t.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	w.blocks = kept

	for hash, t := range w.txs {
		if t.Before(cutoff) {
			delete(w.txs, hash)
			removed++
		}
	}

	return removed
}

// Rates returns blocks per second and transactions per second over the window ending at now
func (w *RateWindow) Rates(now time.Time) (blocksPerSecond, txPerSecond float64) {
	seconds := w.window.Seconds()
	if seconds <= 0 {
		return 0, 0
	}
	cutoff := now.Add(-w.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	var blocks, txs int
	for _, t := range w.blocks {
		if !t.Before(cutoff) {
			blocks++
		}
	}
	for _, t := range w.txs {
		if !t.Before(cutoff) {
			txs++
		}
	}

	return float64(blocks) / seconds, float64(txs) / seconds
}
