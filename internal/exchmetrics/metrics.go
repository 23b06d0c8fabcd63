// Package exchmetrics wires the matching core's Metrics interface to
// Prometheus, kept separate so internal/matching never imports a metrics
// library directly.
package exchmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"vantage/internal/matching"
)

// Prometheus implements matching.Metrics against a set of registered
// collectors, one set per instrument so dashboards can slice by symbol.
type Prometheus struct {
	trades    prometheus.Counter
	volume    prometheus.Counter
	rejects   *prometheus.CounterVec
	accepted  prometheus.Counter
	depth     *prometheus.GaugeVec
}

// NewPrometheus registers a fresh set of collectors labeled with
// instrumentLabel (typically the instrument's UUID or ticker) against reg.
func NewPrometheus(reg prometheus.Registerer, instrumentLabel string) *Prometheus {
	constLabels := prometheus.Labels{"instrument": instrumentLabel}

	p := &Prometheus{
		trades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "vantage",
			Subsystem:   "matching",
			Name:        "trades_total",
			Help:        "Number of trades executed by this instrument's engine.",
			ConstLabels: constLabels,
		}),
		volume: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "vantage",
			Subsystem:   "matching",
			Name:        "base_volume_total",
			Help:        "Total base-asset volume traded, in fixed-point units.",
			ConstLabels: constLabels,
		}),
		rejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "vantage",
			Subsystem:   "matching",
			Name:        "orders_rejected_total",
			Help:        "Number of orders rejected, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "vantage",
			Subsystem:   "matching",
			Name:        "orders_accepted_total",
			Help:        "Number of orders accepted (resting or immediately filled).",
			ConstLabels: constLabels,
		}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "vantage",
			Subsystem:   "matching",
			Name:        "depth_levels",
			Help:        "Number of distinct price levels currently resting, by side.",
			ConstLabels: constLabels,
		}, []string{"side"}),
	}

	reg.MustRegister(p.trades, p.volume, p.rejects, p.accepted, p.depth)
	return p
}

func (p *Prometheus) TradeExecuted(baseAmount uint64, _ int64) {
	p.trades.Inc()
	p.volume.Add(float64(baseAmount))
}

func (p *Prometheus) OrderRejected(reason error) {
	label := "unknown"
	if reason != nil {
		label = reason.Error()
	}
	p.rejects.WithLabelValues(label).Inc()
}

func (p *Prometheus) OrderAccepted() {
	p.accepted.Inc()
}

func (p *Prometheus) DepthLevelCount(side matching.Side, count int) {
	p.depth.WithLabelValues(sideLabel(side)).Set(float64(count))
}

func sideLabel(side matching.Side) string {
	if side == matching.Bid {
		return "bid"
	}
	return "ask"
}
