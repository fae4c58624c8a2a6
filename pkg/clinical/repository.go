package clinical

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindPatientByDocument resolves a patient by exact document match. An
// absent patient is (nil, nil), not an error.
func (r *Repository) FindPatientByDocument(ctx context.Context, documentTypeID int, documentNumber string) (*Patient, error) {
	var patient Patient
	err := r.db.WithContext(ctx).
		Where("document_type_id = ? AND document_number = ?", documentTypeID, documentNumber).
		First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *Repository) AppointmentsByPatient(ctx context.Context, patientID int64) ([]Appointment, error) {
	var appointments []Appointment
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("appointment_date DESC").
		Find(&appointments).Error
	return appointments, err
}

func (r *Repository) MedicalRecordsByPatient(ctx context.Context, patientID int64) ([]MedicalRecord, error) {
	var records []MedicalRecord
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("registration_datetime DESC").
		Find(&records).Error
	return records, err
}

// PrescriptionsByPatient scopes through medical_records: prescriptions carry
// no patient_id of their own.
func (r *Repository) PrescriptionsByPatient(ctx context.Context, patientID int64) ([]Prescription, error) {
	var prescriptions []Prescription
	err := r.db.WithContext(ctx).
		Model(&Prescription{}).
		Joins("JOIN smart_health.medical_records mr ON mr.medical_record_id = smart_health.prescriptions.medical_record_id").
		Where("mr.patient_id = ?", patientID).
		Order("smart_health.prescriptions.prescription_date DESC").
		Find(&prescriptions).Error
	return prescriptions, err
}

// DiagnosesByPatient runs the two-hop join diagnosis -> record_diagnosis ->
// medical_record and flattens both levels into DiagnosisRecord.
func (r *Repository) DiagnosesByPatient(ctx context.Context, patientID int64) ([]DiagnosisRecord, error) {
	var diagnoses []DiagnosisRecord
	err := r.db.WithContext(ctx).
		Table("smart_health.diagnoses d").
		Select("rd.record_diagnosis_id, d.diagnosis_id, d.icd_code, d.description, rd.diagnosis_type, rd.note").
		Joins("JOIN smart_health.record_diagnoses rd ON rd.diagnosis_id = d.diagnosis_id").
		Joins("JOIN smart_health.medical_records mr ON mr.medical_record_id = rd.medical_record_id").
		Where("mr.patient_id = ?", patientID).
		Scan(&diagnoses).Error
	return diagnoses, err
}
