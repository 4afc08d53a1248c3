package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	EventsApplied    = "battery_sync_events_applied_total"
	EventsRejected   = "battery_sync_events_rejected_total"
	HistoryLength    = "battery_sync_history_length"
	SyncMode         = "battery_sync_mode"
	DemoFallbacks    = "battery_sync_demo_fallbacks_total"
	DialFailures     = "battery_channel_dial_failures_total"
	ChannelState     = "battery_channel_state"
	RequestDurations = "battery_rest_request_duration_seconds"
)

// Prom holds the collectors of the sync layer. The zero value is not usable;
// a nil *Prom is, and records nothing.
type Prom struct {
	applied     prometheus.Counter
	rejected    prometheus.Counter
	historyLen  prometheus.Gauge
	mode        *prometheus.GaugeVec
	fallbacks   prometheus.Counter
	dialFails   *prometheus.CounterVec
	chanState   *prometheus.GaugeVec
	reqDuration *prometheus.HistogramVec
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Prom {
	p := &Prom{
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: EventsApplied,
			Help: "Live telemetry samples applied to the history buffer.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: EventsRejected,
			Help: "Live telemetry events dropped because they failed decoding or validation.",
		}),
		historyLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: HistoryLength,
			Help: "Current number of samples in the history buffer.",
		}),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: SyncMode,
			Help: "1 for the connection mode currently displayed, 0 otherwise.",
		}, []string{"mode"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: DemoFallbacks,
			Help: "Initial loads that fell back to demo data.",
		}),
		dialFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: DialFailures,
			Help: "Failed push channel dial attempts by failure class.",
		}, []string{"class"}),
		chanState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: ChannelState,
			Help: "1 for the current push channel state, 0 otherwise.",
		}, []string{"state"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    RequestDurations,
			Help:    "Latency of REST calls to the monitoring backend.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"endpoint", "outcome"}),
	}
	reg.MustRegister(p.applied, p.rejected, p.historyLen, p.mode, p.fallbacks, p.dialFails, p.chanState, p.reqDuration)
	return p
}

func (p *Prom) SampleApplied(historyLen int) {
	if p == nil {
		return
	}
	p.applied.Inc()
	p.historyLen.Set(float64(historyLen))
}

func (p *Prom) SampleRejected() {
	if p == nil {
		return
	}
	p.rejected.Inc()
}

func (p *Prom) HistoryReplaced(historyLen int) {
	if p == nil {
		return
	}
	p.historyLen.Set(float64(historyLen))
}

func (p *Prom) DemoFallback() {
	if p == nil {
		return
	}
	p.fallbacks.Inc()
}

// ModeChanged flips the one-hot mode gauge.
func (p *Prom) ModeChanged(from, to string) {
	if p == nil {
		return
	}
	if from != "" {
		p.mode.WithLabelValues(from).Set(0)
	}
	p.mode.WithLabelValues(to).Set(1)
}

func (p *Prom) DialFailed(class string) {
	if p == nil {
		return
	}
	p.dialFails.WithLabelValues(class).Inc()
}

// ChannelStateChanged flips the one-hot channel state gauge.
func (p *Prom) ChannelStateChanged(from, to string) {
	if p == nil {
		return
	}
	if from != "" {
		p.chanState.WithLabelValues(from).Set(0)
	}
	p.chanState.WithLabelValues(to).Set(1)
}

func (p *Prom) ObserveRequest(endpoint, outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.reqDuration.WithLabelValues(endpoint, outcome).Observe(d.Seconds())
}
