package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/webindex/internal/model"
)

const namespace = "webindex"

// Recorder collects metrics for one process.
// It satisfies crawler.OutcomeRecorder and search.Observer.
type Recorder struct {
	registry *prometheus.Registry

	outcomes      *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	indexTerms    prometheus.Gauge
	indexDocs     prometheus.Gauge
	searches      prometheus.Counter
	searchResults prometheus.Histogram
	searchLatency prometheus.Histogram
}

// NewRecorder registers every metric on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "outcomes_total",
			Help:      "Frontier entries by terminal state.",
		}, []string{"state"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of page fetches by terminal state.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"state"}),
		indexTerms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "terms",
			Help:      "Distinct terms in the last built index.",
		}),
		indexDocs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "documents",
			Help:      "Documents in the last built index.",
		}),
		searches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Queries that reached the index.",
		}),
		searchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Results returned per query.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),
		searchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Time spent scoring and ranking a query.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordOutcome counts o by state and, for fetched pages, observes the
// fetch duration.
func (r *Recorder) RecordOutcome(o model.Outcome) {
	r.outcomes.WithLabelValues(string(o.State)).Inc()
	if o.State.Fetched() && o.Duration > 0 {
		r.fetchDuration.WithLabelValues(string(o.State)).Observe(o.Duration.Seconds())
	}
}

// ObserveIndex records the size of a freshly built index.
func (r *Recorder) ObserveIndex(terms, documents int) {
	r.indexTerms.Set(float64(terms))
	r.indexDocs.Set(float64(documents))
}

// ObserveSearch records one query.
func (r *Recorder) ObserveSearch(d time.Duration, results int) {
	r.searches.Inc()
	r.searchResults.Observe(float64(results))
	r.searchLatency.Observe(d.Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
