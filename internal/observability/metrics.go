package observability

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

type moduleMetrics struct {
	keysBuiltTotal          *prometheus.CounterVec
	keyParseFailuresTotal   prometheus.Counter
	identityLinkResolutions *prometheus.CounterVec

	runtimeStateEntries prometheus.Gauge
	runtimeStateOps     *prometheus.CounterVec

	routeResolutions *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics

	// Recording is on unless disabled, so library callers get metrics
	// without configuration.
	recordingOff atomic.Bool
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			keysBuiltTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "session_keys_built_total",
					Help: "Total session keys built by shape.",
				},
				[]string{"kind"},
			),
			keyParseFailuresTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "session_key_parse_failures_total",
					Help: "Total keys that did not parse as agent session keys.",
				},
			),
			identityLinkResolutions: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "identity_link_resolutions_total",
					Help: "Total identity link lookups by outcome.",
				},
				[]string{"outcome"},
			),
			runtimeStateEntries: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "runtime_state_entries",
					Help: "Current number of sessions holding runtime state.",
				},
			),
			runtimeStateOps: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "runtime_state_operations_total",
					Help: "Total runtime state mutations by operation.",
				},
				[]string{"op"},
			),
			routeResolutions: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "route_resolutions_total",
					Help: "Total inbound route resolutions by matched binding.",
				},
				[]string{"matched_by"},
			),
		}

		prometheus.MustRegister(
			m.keysBuiltTotal,
			m.keyParseFailuresTotal,
			m.identityLinkResolutions,
			m.runtimeStateEntries,
			m.runtimeStateOps,
			m.routeResolutions,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// SetEnabled turns recording on or off. Call it before any state is
// recorded; the entries gauge is not reconciled after a toggle.
func SetEnabled(enabled bool) {
	recordingOff.Store(!enabled)
}

// Enabled reports whether Record* calls are counted.
func Enabled() bool {
	return !recordingOff.Load()
}

func recorder() (*moduleMetrics, bool) {
	if recordingOff.Load() {
		return nil, false
	}
	return getMetrics(), true
}

// WriteMetrics writes every registered metric in the text exposition format
func WriteMetrics(w io.Writer) error {
	EnsureRegistered()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func RecordSessionKeyBuilt(kind string) {
	if m, ok := recorder(); ok {
		m.keysBuiltTotal.WithLabelValues(kind).Inc()
	}
}

func RecordSessionKeyParseFailure() {
	if m, ok := recorder(); ok {
		m.keyParseFailuresTotal.Inc()
	}
}

func RecordIdentityLinkResolution(matched bool) {
	m, ok := recorder()
	if !ok {
		return
	}
	outcome := "miss"
	if matched {
		outcome = "hit"
	}
	m.identityLinkResolutions.WithLabelValues(outcome).Inc()
}

// AddRuntimeStateEntries adjusts the entry gauge by delta. Several stores may
// share the gauge, so it is maintained incrementally rather than set.
func AddRuntimeStateEntries(delta int) {
	if delta == 0 {
		return
	}
	if m, ok := recorder(); ok {
		m.runtimeStateEntries.Add(float64(delta))
	}
}

func RecordRuntimeStateOp(op string) {
	if m, ok := recorder(); ok {
		m.runtimeStateOps.WithLabelValues(op).Inc()
	}
}

func RecordRouteResolution(matchedBy string) {
	if m, ok := recorder(); ok {
		m.routeResolutions.WithLabelValues(matchedBy).Inc()
	}
}
