package matching

// Metrics is the engine's hook for observability. A no-op implementation is
// the default; internal/exchmetrics provides a Prometheus-backed one.
type Metrics interface {
	TradeExecuted(baseAmount uint64, price int64)
	OrderRejected(reason error)
	OrderAccepted()
	DepthLevelCount(side Side, count int)
}

// NoopMetrics discards everything. Used when no Metrics is installed.
type NoopMetrics struct{}

func (NoopMetrics) TradeExecuted(uint64, int64)    {}
func (NoopMetrics) OrderRejected(error)            {}
func (NoopMetrics) OrderAccepted()                 {}
func (NoopMetrics) DepthLevelCount(Side, int)       {}
