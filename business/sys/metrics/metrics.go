// Package metrics exposes the node's prometheus collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledger"

var (
	requestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of handled requests.",
	})

	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "Count of requests that returned an error.",
	})

	panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Count of recovered handler panics.",
	})

	miningTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mining",
		Name:      "operations_total",
		Help:      "Count of mining operations by outcome.",
	}, []string{"status"})

	miningDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "mining",
		Name:      "duration_seconds",
		Help:      "Duration of mining operations.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms..262s
	}, []string{"status"})

	blockTxs = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "mining",
		Name:      "block_transactions",
		Help:      "Number of transactions per mined block.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1..512
	})
)

// AddRequest counts a handled request.
func AddRequest() {
	requestsTotal.Inc()
}

// AddError counts a request that returned an error.
func AddError() {
	errorsTotal.Inc()
}

// AddPanic counts a recovered panic.
func AddPanic() {
	panicsTotal.Inc()
}

// ObserveMining records the outcome of a mining operation.
func ObserveMining(trans int, err error, duration time.Duration) {
	status := miningStatus(err)

	miningTotal.WithLabelValues(status).Inc()
	miningDuration.WithLabelValues(status).Observe(duration.Seconds())

	if err == nil {
		blockTxs.Observe(float64(trans))
	}
}

// miningStatus maps a mining error onto a label value.
func miningStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, pow.ErrTimeout):
		return "timeout"
	case errors.Is(err, pow.ErrCancelled):
		return "cancelled"
	case errors.Is(err, pow.ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, state.ErrChainLinkage):
		return "linkage"
	}
	return "error"
}

// =============================================================================

// NewChainCollector returns a collector reporting the chain height and the
// mempool length of the specified state when scraped.
func NewChainCollector(st *state.State) prometheus.Collector {
	return &chainCollector{
		state: st,
		height: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "chain", "height"),
			"Number of the latest block.",
			nil, nil,
		),
		mempool: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mempool", "length"),
			"Number of pending transactions.",
			nil, nil,
		),
	}
}

type chainCollector struct {
	state   *state.State
	height  *prometheus.Desc
	mempool *prometheus.Desc
}

// Describe implements prometheus.Collector.
func (cc *chainCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cc.height
	ch <- cc.mempool
}

// Collect implements prometheus.Collector. An empty chain reports no height.
func (cc *chainCollector) Collect(ch chan<- prometheus.Metric) {
	if height, err := cc.state.QueryHeight(); err == nil {
		ch <- prometheus.MustNewConstMetric(cc.height, prometheus.GaugeValue, float64(height))
	}
	ch <- prometheus.MustNewConstMetric(cc.mempool, prometheus.GaugeValue, float64(cc.state.QueryMempoolLength()))
}

// =============================================================================

// NewEventsCollector returns a collector reporting the subscribers of the
// event feed and the events dropped for slow subscribers.
func NewEventsCollector(evts *events.Events) prometheus.Collector {
	return &eventsCollector{
		evts: evts,
		subscribers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "events", "subscribers"),
			"Number of connected event subscribers.",
			nil, nil,
		),
		dropped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "events", "dropped_total"),
			"Count of events dropped for subscribers that fell behind.",
			nil, nil,
		),
	}
}

type eventsCollector struct {
	evts        *events.Events
	subscribers *prometheus.Desc
	dropped     *prometheus.Desc
}

// Describe implements prometheus.Collector.
func (ec *eventsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- ec.subscribers
	ch <- ec.dropped
}

// Collect implements prometheus.Collector.
func (ec *eventsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(ec.subscribers, prometheus.GaugeValue, float64(ec.evts.Count()))
	ch <- prometheus.MustNewConstMetric(ec.dropped, prometheus.CounterValue, float64(ec.evts.Dropped()))
}
