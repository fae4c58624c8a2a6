package ragcontext

import (
	"time"

	"github.com/smarthealth/platform/pkg/clinical"
	"github.com/smarthealth/platform/pkg/retrieval"
)

// Metadata summarizes one query for the outward response.
type Metadata struct {
	TotalRecordsAnalyzed int   `json:"total_records_analyzed"`
	VectorResults        int   `json:"vector_results"`
	QueryTimeMS          int64 `json:"query_time_ms"`
	ContextTokens        int   `json:"context_tokens"`
	SourcesUsed          int   `json:"sources_used"`
	FallbackMode         bool  `json:"fallback_mode,omitempty"`
}

// BuildMetadata is pure given its inputs: record counts from the bundle,
// fragment count, elapsed time rounded to whole milliseconds, and the token
// count produced by composition.
func BuildMetadata(bundle *clinical.RecordBundle, fragments []retrieval.Fragment, elapsed time.Duration, contextTokens int) Metadata {
	appointments := 0
	if bundle != nil {
		appointments = len(bundle.Appointments)
	}

	return Metadata{
		TotalRecordsAnalyzed: bundle.TotalRecords(),
		VectorResults:        len(fragments),
		QueryTimeMS:          elapsed.Round(time.Millisecond).Milliseconds(),
		ContextTokens:        contextTokens,
		SourcesUsed:          len(fragments) + appointments,
	}
}
