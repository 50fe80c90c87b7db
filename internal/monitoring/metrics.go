// Package monitoring exposes Prometheus metrics for the browser shell:
// tab lifecycle, history writes, download states, and bridge traffic.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Tab metrics
	TabsOpen    prometheus.Gauge
	TabsCreated prometheus.Counter
	TabsClosed  prometheus.Counter
	TabSwitches prometheus.Counter

	// Persistence metrics
	HistoryWrites prometheus.Counter
	SessionSaves  prometheus.Counter
	StoreErrors   *prometheus.CounterVec

	// Download metrics
	DownloadsByState *prometheus.CounterVec

	// Bridge metrics
	WSConnections prometheus.Gauge
	EventsPushed  *prometheus.CounterVec

	startTime time.Time
}

// New creates a metrics collector registered on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates a metrics collector registered on reg. Tests pass a
// fresh registry so repeated construction cannot collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		startTime: time.Now(),

		TabsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lumen_tabs_open",
			Help: "Number of currently open tabs",
		}),
		TabsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "lumen_tabs_created_total",
			Help: "Total number of tabs created",
		}),
		TabsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "lumen_tabs_closed_total",
			Help: "Total number of tabs closed",
		}),
		TabSwitches: factory.NewCounter(prometheus.CounterOpts{
			Name: "lumen_tab_switches_total",
			Help: "Total number of tab activations",
		}),

		HistoryWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "lumen_history_writes_total",
			Help: "Total number of history visit writes",
		}),
		SessionSaves: factory.NewCounter(prometheus.CounterOpts{
			Name: "lumen_session_saves_total",
			Help: "Total number of tab-set persistence checkpoints",
		}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lumen_store_errors_total",
			Help: "Persistence gateway errors by operation",
		}, []string{"op"}),

		DownloadsByState: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lumen_downloads_total",
			Help: "Download state transitions by reported state",
		}, []string{"state"}),

		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lumen_ws_connections",
			Help: "Number of connected chrome UI clients",
		}),
		EventsPushed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lumen_events_pushed_total",
			Help: "UI events pushed by type",
		}, []string{"type"}),
	}
}

// Uptime returns time since the collector was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
