package clinical

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestFullNameSkipsEmptyParts(t *testing.T) {
	patient := Patient{
		FirstName:    "Juan",
		FirstSurname: "García",
	}
	if got := patient.FullName(); got != "Juan García" {
		t.Fatalf("expected 'Juan García', got %q", got)
	}

	patient.MiddleName = strPtr("Andrés")
	patient.SecondSurname = strPtr("López")
	if got := patient.FullName(); got != "Juan Andrés García López" {
		t.Fatalf("expected full four-part name, got %q", got)
	}
}

func TestBundleHasData(t *testing.T) {
	var nilBundle *RecordBundle
	if nilBundle.HasData() {
		t.Fatal("nil bundle should not report data")
	}

	empty := &RecordBundle{}
	if empty.HasData() {
		t.Fatal("empty bundle should not report data")
	}
	if empty.TotalRecords() != 0 {
		t.Fatalf("empty bundle should count zero records, got %d", empty.TotalRecords())
	}

	cases := []RecordBundle{
		{Appointments: []Appointment{{AppointmentID: 1, AppointmentDate: time.Now()}}},
		{MedicalRecords: []MedicalRecord{{MedicalRecordID: 1}}},
		{Prescriptions: []Prescription{{PrescriptionID: 1}}},
		{Diagnoses: []DiagnosisRecord{{DiagnosisID: 1}}},
	}
	for i := range cases {
		if !cases[i].HasData() {
			t.Fatalf("bundle %d should report data", i)
		}
		if cases[i].TotalRecords() != 1 {
			t.Fatalf("bundle %d should count one record, got %d", i, cases[i].TotalRecords())
		}
	}
}
