package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks ingestion and search activity for the store.
type Metrics struct {
	ChunksIndexed      prometheus.Counter
	ChunksDeduplicated prometheus.Counter
	ChunksTruncated    prometheus.Counter
	Searches           prometheus.Counter
	SearchDuration     prometheus.Histogram
}

// NewMetrics registers store metrics with the given registerer. A nil
// registerer yields unregistered (but usable) collectors, which tests rely
// on to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ChunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clio",
			Subsystem: "rag",
			Name:      "chunks_indexed_total",
			Help:      "Chunks embedded and added to the vector index.",
		}),
		ChunksDeduplicated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clio",
			Subsystem: "rag",
			Name:      "chunks_deduplicated_total",
			Help:      "Chunks skipped because their fingerprint was already indexed.",
		}),
		ChunksTruncated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clio",
			Subsystem: "rag",
			Name:      "chunks_truncated_total",
			Help:      "Chunks dropped because the index reached its document cap.",
		}),
		Searches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clio",
			Subsystem: "rag",
			Name:      "searches_total",
			Help:      "Similarity searches served.",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clio",
			Subsystem: "rag",
			Name:      "search_duration_seconds",
			Help:      "Similarity search latency including query embedding.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
