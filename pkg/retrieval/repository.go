package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// tableQuery describes the per-source-type similarity SQL. relevance_score
// is 1 - L2 distance, which is why out-of-range scores can appear.
type tableQuery struct {
	sourceType string
	sql        string
}

var tableQueries = map[string]tableQuery{
	SourceAppointment: {
		sourceType: SourceAppointment,
		sql: `
			SELECT
				a.appointment_id   AS source_id,
				a.patient_id       AS patient_id,
				a.reason           AS text,
				a.appointment_date AS date,
				1 - (a.reason_embedding <-> ?) AS relevance_score
			FROM smart_health.appointments a
			WHERE a.patient_id = ?
				AND a.reason_embedding IS NOT NULL
				AND a.appointment_date >= NOW() - CAST(? AS interval)
			ORDER BY a.reason_embedding <-> ?
			LIMIT ?`,
	},
	SourceDiagnosis: {
		sourceType: SourceDiagnosis,
		sql: `
			SELECT
				d.diagnosis_id            AS source_id,
				mr.patient_id             AS patient_id,
				COALESCE(d.icd_code || ' - ', '') || COALESCE(d.description, '') AS text,
				mr.registration_datetime  AS date,
				1 - (d.description_embedding <-> ?) AS relevance_score
			FROM smart_health.diagnoses d
			JOIN smart_health.record_diagnoses rd ON rd.diagnosis_id = d.diagnosis_id
			JOIN smart_health.medical_records mr ON mr.medical_record_id = rd.medical_record_id
			WHERE mr.patient_id = ?
				AND d.description_embedding IS NOT NULL
				AND mr.registration_datetime >= NOW() - CAST(? AS interval)
			ORDER BY d.description_embedding <-> ?
			LIMIT ?`,
	},
	SourceMedicalRecord: {
		sourceType: SourceMedicalRecord,
		sql: `
			SELECT
				mr.medical_record_id     AS source_id,
				mr.patient_id            AS patient_id,
				mr.summary_text          AS text,
				mr.registration_datetime AS date,
				1 - (mr.summary_embedding <-> ?) AS relevance_score
			FROM smart_health.medical_records mr
			WHERE mr.patient_id = ?
				AND mr.summary_embedding IS NOT NULL
				AND mr.registration_datetime >= NOW() - CAST(? AS interval)
			ORDER BY mr.summary_embedding <-> ?
			LIMIT ?`,
	},
	SourcePrescription: {
		sourceType: SourcePrescription,
		sql: `
			SELECT
				p.prescription_id     AS source_id,
				mr.patient_id         AS patient_id,
				p.instruction         AS text,
				p.prescription_date   AS date,
				1 - (p.instruction_embedding <-> ?) AS relevance_score
			FROM smart_health.prescriptions p
			JOIN smart_health.medical_records mr ON mr.medical_record_id = p.medical_record_id
			WHERE mr.patient_id = ?
				AND p.instruction_embedding IS NOT NULL
				AND p.prescription_date >= NOW() - CAST(? AS interval)
			ORDER BY p.instruction_embedding <-> ?
			LIMIT ?`,
	},
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type fragmentRow struct {
	SourceID       int64      `gorm:"column:source_id"`
	PatientID      int64      `gorm:"column:patient_id"`
	Text           *string    `gorm:"column:text"`
	Date           *time.Time `gorm:"column:date"`
	RelevanceScore float64    `gorm:"column:relevance_score"`
}

// SimilarBySource runs the similarity query for one source type, scoped to
// the patient and the recency window.
func (r *Repository) SimilarBySource(ctx context.Context, sourceType string, patientID int64, queryVector []float32, limit, yearsBack int) ([]Fragment, error) {
	q, ok := tableQueries[sourceType]
	if !ok {
		return nil, fmt.Errorf("unknown source type %q", sourceType)
	}

	vec := pgvector.NewVector(queryVector)
	window := fmt.Sprintf("%d years", yearsBack)

	var rows []fragmentRow
	err := r.db.WithContext(ctx).
		Raw(q.sql, vec, patientID, window, vec, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	fragments := make([]Fragment, 0, len(rows))
	for _, row := range rows {
		if row.Text == nil || *row.Text == "" {
			continue
		}
		fragments = append(fragments, Fragment{
			SourceType:     q.sourceType,
			SourceID:       row.SourceID,
			PatientID:      row.PatientID,
			Text:           *row.Text,
			Date:           row.Date,
			RelevanceScore: row.RelevanceScore,
		})
	}

	return fragments, nil
}
