package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedBlocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_blocks_total",
			Help: "Total number of block headers received by the feed",
		},
	)

	feedLogsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_logs_total",
			Help: "Total number of contract logs received by the feed",
		},
		[]string{"kind"},
	)

	feedReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_reconnects_total",
			Help: "Total number of feed reconnect attempts",
		},
	)

	feedConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_connected",
			Help: "Whether the feed websocket is connected (1) or not (0)",
		},
	)
)
