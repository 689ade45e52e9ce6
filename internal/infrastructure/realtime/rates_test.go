package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateWindow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	w := NewRateWindow(60 * time.Second)

	w.RecordBlock(now.Add(-90 * time.Second))
	for i := 0; i < 30; i++ {
		w.RecordBlock(now.Add(-time.Duration(i) * time.Second))
	}

	w.RecordTx("0xaa", now.Add(-10*time.Second))
	w.RecordTx("0xaa", now.Add(-5*time.Second))
	w.RecordTx("0xbb", now.Add(-5*time.Second))
	w.RecordTx("0xcc", now.Add(-120*time.Second))
	w.RecordTx("", now)

	blocks, txs := w.Rates(now)
	assert.InDelta(t, 0.5, blocks, 1e-9)
	assert.InDelta(t, 2.0/60.0, txs, 1e-9, "repeated hashes count once")

	removed := w.Prune(now)
	assert.Equal(t, 2, removed)

	blocks, txs = w.Rates(now)
	assert.InDelta(t, 0.5, blocks, 1e-9)
	assert.InDelta(t, 2.0/60.0, txs, 1e-9)
}

func TestRateWindow_Empty(t *testing.T) {
	w := NewRateWindow(60 * time.Second)
	blocks, txs := w.Rates(time.Now())
	assert.Zero(t, blocks)
	assert.Zero(t, txs)

	zero := NewRateWindow(0)
	zero.RecordBlock(time.Now())
	blocks, _ = zero.Rates(time.Now())
	assert.Zero(t, blocks)
}
