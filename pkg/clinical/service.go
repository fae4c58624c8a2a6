package clinical

import (
	"context"
	"errors"
	"fmt"

	"github.com/smarthealth/platform/pkg/common/logger"
)

// ErrDatabase marks store faults so callers can distinguish them from an
// absent patient.
var ErrDatabase = errors.New("clinical store error")

// Store is the slice of the repository the aggregator needs; the concrete
// *Repository satisfies it.
type Store interface {
	FindPatientByDocument(ctx context.Context, documentTypeID int, documentNumber string) (*Patient, error)
	AppointmentsByPatient(ctx context.Context, patientID int64) ([]Appointment, error)
	MedicalRecordsByPatient(ctx context.Context, patientID int64) ([]MedicalRecord, error)
	PrescriptionsByPatient(ctx context.Context, patientID int64) ([]Prescription, error)
	DiagnosesByPatient(ctx context.Context, patientID int64) ([]DiagnosisRecord, error)
}

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Fetch resolves the patient and issues the four scoped record fetches.
// A missing patient returns (nil, empty bundle, nil); only store faults
// produce an error.
func (a *Aggregator) Fetch(ctx context.Context, documentTypeID int, documentNumber string) (*Patient, *RecordBundle, error) {
	patient, err := a.store.FindPatientByDocument(ctx, documentTypeID, documentNumber)
	if err != nil {
		return nil, &RecordBundle{}, fmt.Errorf("%w: finding patient: %v", ErrDatabase, err)
	}
	if patient == nil {
		return nil, &RecordBundle{}, nil
	}

	appointments, err := a.store.AppointmentsByPatient(ctx, patient.PatientID)
	if err != nil {
		return nil, &RecordBundle{}, fmt.Errorf("%w: fetching appointments: %v", ErrDatabase, err)
	}

	records, err := a.store.MedicalRecordsByPatient(ctx, patient.PatientID)
	if err != nil {
		return nil, &RecordBundle{}, fmt.Errorf("%w: fetching medical records: %v", ErrDatabase, err)
	}

	prescriptions, err := a.store.PrescriptionsByPatient(ctx, patient.PatientID)
	if err != nil {
		return nil, &RecordBundle{}, fmt.Errorf("%w: fetching prescriptions: %v", ErrDatabase, err)
	}

	diagnoses, err := a.store.DiagnosesByPatient(ctx, patient.PatientID)
	if err != nil {
		return nil, &RecordBundle{}, fmt.Errorf("%w: fetching diagnoses: %v", ErrDatabase, err)
	}

	bundle := &RecordBundle{
		Appointments:   appointments,
		MedicalRecords: records,
		Prescriptions:  prescriptions,
		Diagnoses:      diagnoses,
	}

	logger.Log.WithFields(map[string]interface{}{
		"patient_id":      patient.PatientID,
		"appointments":    len(appointments),
		"medical_records": len(records),
		"prescriptions":   len(prescriptions),
		"diagnoses":       len(diagnoses),
	}).Debug("Fetched clinical records")

	return patient, bundle, nil
}
