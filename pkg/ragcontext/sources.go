package ragcontext

import (
	"time"

	"github.com/smarthealth/platform/pkg/clinical"
	"github.com/smarthealth/platform/pkg/retrieval"
)

const snippetMaxChars = 250

// Source kinds.
const (
	SourceKindVector   = "vector_search"
	SourceKindClinical = "clinical_record"
)

// SourceRecord is one provenance entry in the outward response. The ID is a
// display-order counter, not a stable key.
type SourceRecord struct {
	ID             int        `json:"id"`
	Type           string     `json:"type"`
	SourceType     string     `json:"source_type"`
	SourceID       int64      `json:"source_id"`
	PatientID      int64      `json:"patient_id,omitempty"`
	RelevanceScore *float64   `json:"relevance_score,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
	Snippet        string     `json:"snippet,omitempty"`
}

// BuildSources emits one vector_search entry per fragment, in the order
// given, followed by one clinical_record entry per appointment. Shape and
// order are stable for identical inputs.
func BuildSources(fragments []retrieval.Fragment, bundle *clinical.RecordBundle) []SourceRecord {
	sources := make([]SourceRecord, 0, len(fragments))
	next := 1

	for _, f := range fragments {
		score := f.RelevanceScore
		sources = append(sources, SourceRecord{
			ID:             next,
			Type:           SourceKindVector,
			SourceType:     f.SourceType,
			SourceID:       f.SourceID,
			PatientID:      f.PatientID,
			RelevanceScore: &score,
			Date:           f.Date,
			Snippet:        snippet(f.Text),
		})
		next++
	}

	if bundle != nil {
		for _, apt := range bundle.Appointments {
			date := apt.AppointmentDate
			reason := ""
			if apt.Reason != nil {
				reason = *apt.Reason
			}
			sources = append(sources, SourceRecord{
				ID:         next,
				Type:       SourceKindClinical,
				SourceType: retrieval.SourceAppointment,
				SourceID:   apt.AppointmentID,
				PatientID:  apt.PatientID,
				Date:       &date,
				Snippet:    snippet(reason),
			})
			next++
		}
	}

	return sources
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetMaxChars {
		return text
	}
	return string(runes[:snippetMaxChars])
}
