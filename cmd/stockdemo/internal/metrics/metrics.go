package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TradesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockdemo_trades_published_total",
		Help: "Synthetic trades written to the broker topic.",
	})

	TradesRelayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockdemo_trades_relayed_total",
		Help: "Materialized trades relayed to subscribers.",
	})

	RowErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdemo_row_errors_total",
		Help: "Rows skipped because they could not be decoded or relayed.",
	}, []string{"source", "reason"})

	Watermark = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stockdemo_poller_watermark",
		Help: "Highest trade id relayed so far.",
	})

	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stockdemo_ws_clients",
		Help: "Browsers currently connected to the trade feed.",
	})

	SessionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stockdemo_session_state",
		Help: "1 for the current state of the demo session, 0 otherwise.",
	}, []string{"state"})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(TradesPublished, TradesRelayed, RowErrors, Watermark, ConnectedClients, SessionState)
}
