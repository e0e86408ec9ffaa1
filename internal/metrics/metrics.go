// Package metrics collects the Prometheus instrumentation shared by the
// backing store and the trie engine: node I/O volume, cache effectiveness,
// and commit size. All instruments are registered against the default
// registry at package init and are safe to reference even when nothing ever scrapes
// them — a library caller who doesn't run a Prometheus exporter pays only
// the cost of a counter increment.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// StoreReads counts Store.Get calls, labeled by outcome ("hit" or
	// "miss") so a cache's effectiveness is visible without a separate
	// dashboard panel.
	StoreReads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fftrie",
		Subsystem: "store",
		Name:      "reads_total",
		Help:      "Number of Store.Get calls, by outcome.",
	}, []string{"outcome"})

	// StoreWrites counts Store.Put calls.
	StoreWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fftrie",
		Subsystem: "store",
		Name:      "writes_total",
		Help:      "Number of Store.Put calls.",
	})

	// StoreBytesWritten tracks the framed payload size written by the file
	// store, including the 2-byte length prefix and trailing hash.
	StoreBytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fftrie",
		Subsystem: "store",
		Name:      "bytes_written_total",
		Help:      "Bytes appended to the file store's write buffer.",
	})

	// CommitNodes observes how many dirty nodes a single commit writes out.
	CommitNodes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fftrie",
		Subsystem: "trie",
		Name:      "commit_nodes",
		Help:      "Number of nodes persisted per commit.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})
)

func init() {
	prometheus.MustRegister(StoreReads, StoreWrites, StoreBytesWritten, CommitNodes)
}
