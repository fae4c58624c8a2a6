package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	queriesTotal    atomic.Int64
	queriesSuccess  atomic.Int64
	queriesNoData   atomic.Int64
	queriesError    atomic.Int64
	queriesFallback atomic.Int64
	queryLatencyMS  atomic.Int64
)

// ObserveQuery records one completed query: its outcome status, whether the
// fallback path produced the answer, and its latency in milliseconds.
func ObserveQuery(status string, fallback bool, latencyMS int64) {
	queriesTotal.Add(1)
	switch status {
	case "success":
		queriesSuccess.Add(1)
	case "no_data":
		queriesNoData.Add(1)
	case "error":
		queriesError.Add(1)
	}
	if fallback {
		queriesFallback.Add(1)
	}
	queryLatencyMS.Add(latencyMS)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP smarthealth_queries_total Number of clinical queries processed.\n")
	fmt.Fprintf(w, "# TYPE smarthealth_queries_total counter\n")
	fmt.Fprintf(w, "smarthealth_queries_total %d\n", queriesTotal.Load())

	fmt.Fprintf(w, "# HELP smarthealth_queries_success_total Number of queries answered with status success.\n")
	fmt.Fprintf(w, "# TYPE smarthealth_queries_success_total counter\n")
	fmt.Fprintf(w, "smarthealth_queries_success_total %d\n", queriesSuccess.Load())

	fmt.Fprintf(w, "# HELP smarthealth_queries_no_data_total Number of queries answered with status no_data.\n")
	fmt.Fprintf(w, "# TYPE smarthealth_queries_no_data_total counter\n")
	fmt.Fprintf(w, "smarthealth_queries_no_data_total %d\n", queriesNoData.Load())

	fmt.Fprintf(w, "# HELP smarthealth_queries_error_total Number of queries answered with status error.\n")
	fmt.Fprintf(w, "# TYPE smarthealth_queries_error_total counter\n")
	fmt.Fprintf(w, "smarthealth_queries_error_total %d\n", queriesError.Load())

	fmt.Fprintf(w, "# HELP smarthealth_queries_fallback_total Number of queries answered by the extractive fallback.\n")
	fmt.Fprintf(w, "# TYPE smarthealth_queries_fallback_total counter\n")
	fmt.Fprintf(w, "smarthealth_queries_fallback_total %d\n", queriesFallback.Load())

	fmt.Fprintf(w, "# HELP smarthealth_query_latency_ms_total Cumulative query latency in milliseconds.\n")
	fmt.Fprintf(w, "# TYPE smarthealth_query_latency_ms_total counter\n")
	fmt.Fprintf(w, "smarthealth_query_latency_ms_total %d\n", queryLatencyMS.Load())
}
