package retrieval

import "time"

// Fragment source types. Retrieval queries all four symmetrically so no
// single table biases the ranking.
const (
	SourceAppointment   = "appointment"
	SourceDiagnosis     = "diagnosis"
	SourceMedicalRecord = "medical_record"
	SourcePrescription  = "prescription"
)

var SourceTypes = []string{
	SourceAppointment,
	SourceDiagnosis,
	SourceMedicalRecord,
	SourcePrescription,
}

// Fragment is one scored free-text hit from the similarity index. The score
// is nominally in [0,1] but the distance function can emit out-of-range
// values; they are tolerated, not clamped.
type Fragment struct {
	SourceType     string     `json:"source_type"`
	SourceID       int64      `json:"source_id"`
	PatientID      int64      `json:"patient_id"`
	Text           string     `json:"chunk_text"`
	Date           *time.Time `json:"date,omitempty"`
	RelevanceScore float64    `json:"relevance_score"`
}

// SearchOptions tunes one similarity search. Zero values fall back to the
// package defaults.
type SearchOptions struct {
	TopK           int
	PerSourceLimit int
	MinScore       float64
	YearsBack      int
	AllowedSources []string
}

const (
	DefaultTopK           = 15
	DefaultPerSourceLimit = 10
	DefaultMinScore       = 0.3
	DefaultYearsBack      = 5
)

func (o SearchOptions) withDefaults() SearchOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.PerSourceLimit <= 0 {
		o.PerSourceLimit = DefaultPerSourceLimit
	}
	if o.MinScore == 0 {
		o.MinScore = DefaultMinScore
	}
	if o.YearsBack <= 0 {
		o.YearsBack = DefaultYearsBack
	}
	return o
}
