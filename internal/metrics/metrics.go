// Package metrics defines the Prometheus instruments for searching and ingestion.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusNoIndex = "no_index"
	StatusInvalid = "invalid"

	StatusIndexed = "indexed"
	StatusFailed  = "failed"

	StatusExtracted   = "extracted"
	StatusSkipped     = "skipped"
	StatusUnsupported = "unsupported"
)

// FileTypeOther labels extraction attempts for unsupported file types.
const FileTypeOther = "other"

// Auth rejection reasons.
const (
	AuthReasonMissing = "missing"
	AuthReasonInvalid = "invalid"
)

var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docindex",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"engine", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docindex",
			Name:      "search_duration_seconds",
			Help:      "Search round-trip duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"engine"},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docindex",
			Name:      "search_results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 500},
		},
	)

	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docindex",
			Name:      "ingest_documents_total",
			Help:      "Documents written to the index, by outcome",
		},
		[]string{"engine", "status"},
	)

	ExtractFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docindex",
			Name:      "extract_files_total",
			Help:      "Files visited by the extractor, by type and outcome",
		},
		[]string{"file_type", "status"},
	)

	AuthRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docindex",
			Name:      "auth_rejections_total",
			Help:      "Requests rejected by the SSE server authentication",
		},
		[]string{"auth_type", "reason"},
	)
)

func init() {
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(ExtractFilesTotal)
	prometheus.MustRegister(AuthRejectionsTotal)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
