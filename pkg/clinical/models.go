package clinical

import (
	"strings"
	"time"
)

// Patient is an immutable per-query snapshot; it is never cached across
// queries.
type Patient struct {
	PatientID      int64      `gorm:"primaryKey;column:patient_id" json:"patient_id"`
	DocumentTypeID int        `gorm:"column:document_type_id" json:"document_type_id"`
	DocumentNumber string     `gorm:"column:document_number" json:"document_number"`
	FirstName      string     `gorm:"column:first_name" json:"first_name"`
	MiddleName     *string    `gorm:"column:middle_name" json:"middle_name,omitempty"`
	FirstSurname   string     `gorm:"column:first_surname" json:"first_surname"`
	SecondSurname  *string    `gorm:"column:second_surname" json:"second_surname,omitempty"`
	BirthDate      time.Time  `gorm:"column:birth_date" json:"birth_date"`
	Gender         string     `gorm:"column:gender" json:"gender"`
	Email          *string    `gorm:"column:email" json:"email,omitempty"`
	BloodType      *string    `gorm:"column:blood_type" json:"blood_type,omitempty"`
	RegistrationAt *time.Time `gorm:"column:registration_date" json:"registration_date,omitempty"`
	Active         *bool      `gorm:"column:active" json:"active,omitempty"`
}

func (Patient) TableName() string {
	return "smart_health.patients"
}

func (p *Patient) FullName() string {
	parts := []string{p.FirstName}
	if p.MiddleName != nil && *p.MiddleName != "" {
		parts = append(parts, *p.MiddleName)
	}
	parts = append(parts, p.FirstSurname)
	if p.SecondSurname != nil && *p.SecondSurname != "" {
		parts = append(parts, *p.SecondSurname)
	}
	return strings.Join(parts, " ")
}

type Appointment struct {
	AppointmentID   int64      `gorm:"primaryKey;column:appointment_id" json:"appointment_id"`
	PatientID       int64      `gorm:"column:patient_id" json:"patient_id"`
	DoctorID        *int64     `gorm:"column:doctor_id" json:"doctor_id,omitempty"`
	AppointmentDate time.Time  `gorm:"column:appointment_date" json:"appointment_date"`
	StartTime       *string    `gorm:"column:start_time" json:"start_time,omitempty"`
	EndTime         *string    `gorm:"column:end_time" json:"end_time,omitempty"`
	AppointmentType *string    `gorm:"column:appointment_type" json:"appointment_type,omitempty"`
	Status          *string    `gorm:"column:status" json:"status,omitempty"`
	Reason          *string    `gorm:"column:reason" json:"reason,omitempty"`
	CreationDate    *time.Time `gorm:"column:creation_date" json:"creation_date,omitempty"`
}

func (Appointment) TableName() string {
	return "smart_health.appointments"
}

type MedicalRecord struct {
	MedicalRecordID      int64      `gorm:"primaryKey;column:medical_record_id" json:"medical_record_id"`
	PatientID            int64      `gorm:"column:patient_id" json:"patient_id"`
	DoctorID             *int64     `gorm:"column:doctor_id" json:"doctor_id,omitempty"`
	PrimaryDiagnosisID   *int64     `gorm:"column:primary_diagnosis_id" json:"primary_diagnosis_id,omitempty"`
	RegistrationDatetime *time.Time `gorm:"column:registration_datetime" json:"registration_datetime,omitempty"`
	RecordType           *string    `gorm:"column:record_type" json:"record_type,omitempty"`
	SummaryText          *string    `gorm:"column:summary_text" json:"summary_text,omitempty"`
	VitalSigns           *string    `gorm:"column:vital_signs" json:"vital_signs,omitempty"`
}

func (MedicalRecord) TableName() string {
	return "smart_health.medical_records"
}

type Prescription struct {
	PrescriptionID   int64      `gorm:"primaryKey;column:prescription_id" json:"prescription_id"`
	MedicalRecordID  int64      `gorm:"column:medical_record_id" json:"medical_record_id"`
	MedicationID     int64      `gorm:"column:medication_id" json:"medication_id"`
	Dosage           *string    `gorm:"column:dosage" json:"dosage,omitempty"`
	Frequency        *string    `gorm:"column:frequency" json:"frequency,omitempty"`
	Duration         *string    `gorm:"column:duration" json:"duration,omitempty"`
	Instruction      *string    `gorm:"column:instruction" json:"instruction,omitempty"`
	PrescriptionDate *time.Time `gorm:"column:prescription_date" json:"prescription_date,omitempty"`
	AlertGenerated   *bool      `gorm:"column:alert_generated" json:"alert_generated,omitempty"`
}

func (Prescription) TableName() string {
	return "smart_health.prescriptions"
}

// Diagnosis and RecordDiagnosis exist only to drive the two-hop join; the
// flat DiagnosisRecord is what the rest of the pipeline consumes.
type Diagnosis struct {
	DiagnosisID int64   `gorm:"primaryKey;column:diagnosis_id"`
	ICDCode     *string `gorm:"column:icd_code"`
	Description *string `gorm:"column:description"`
}

func (Diagnosis) TableName() string {
	return "smart_health.diagnoses"
}

type RecordDiagnosis struct {
	RecordDiagnosisID int64   `gorm:"primaryKey;column:record_diagnosis_id"`
	MedicalRecordID   int64   `gorm:"column:medical_record_id"`
	DiagnosisID       int64   `gorm:"column:diagnosis_id"`
	DiagnosisType     *string `gorm:"column:diagnosis_type"`
	Note              *string `gorm:"column:note"`
}

func (RecordDiagnosis) TableName() string {
	return "smart_health.record_diagnoses"
}

// DiagnosisRecord merges diagnosis-level fields with the per-record
// annotation into one flat shape.
type DiagnosisRecord struct {
	RecordDiagnosisID int64   `gorm:"column:record_diagnosis_id" json:"record_diagnosis_id"`
	DiagnosisID       int64   `gorm:"column:diagnosis_id" json:"diagnosis_id"`
	ICDCode           *string `gorm:"column:icd_code" json:"icd_code,omitempty"`
	Description       *string `gorm:"column:description" json:"description,omitempty"`
	DiagnosisType     *string `gorm:"column:diagnosis_type" json:"diagnosis_type,omitempty"`
	Note              *string `gorm:"column:note" json:"note,omitempty"`
}

// RecordBundle holds all clinical records for one patient. Constructed
// fresh per query and never mutated after construction.
type RecordBundle struct {
	Appointments   []Appointment     `json:"appointments"`
	MedicalRecords []MedicalRecord   `json:"medical_records"`
	Prescriptions  []Prescription    `json:"prescriptions"`
	Diagnoses      []DiagnosisRecord `json:"diagnoses"`
}

func (b *RecordBundle) HasData() bool {
	if b == nil {
		return false
	}
	return len(b.Appointments) > 0 ||
		len(b.MedicalRecords) > 0 ||
		len(b.Prescriptions) > 0 ||
		len(b.Diagnoses) > 0
}

func (b *RecordBundle) TotalRecords() int {
	if b == nil {
		return 0
	}
	return len(b.Appointments) + len(b.MedicalRecords) + len(b.Prescriptions) + len(b.Diagnoses)
}
