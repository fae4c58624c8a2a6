package ragcontext

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smarthealth/platform/pkg/clinical"
	"github.com/smarthealth/platform/pkg/retrieval"
)

const maxAppointmentsInContext = 5

var ErrNoPatient = errors.New("cannot compose context without a patient")

// Compose merges the clinical bundle and the retrieved fragments into one
// bounded text block for the generative model. Section order is fixed:
// demographics, appointments, diagnoses, prescriptions, vector fragments.
// Sections with no data are omitted entirely. The output is deterministic
// for fixed inputs apart from the age, which depends on the current date.
func Compose(patient *clinical.Patient, bundle *clinical.RecordBundle, fragments []retrieval.Fragment, maxTokens int) (string, int, error) {
	return ComposeAt(patient, bundle, fragments, maxTokens, time.Now())
}

// ComposeAt is Compose with an explicit reference date for the age
// calculation, so callers and tests control the only wall-clock input.
func ComposeAt(patient *clinical.Patient, bundle *clinical.RecordBundle, fragments []retrieval.Fragment, maxTokens int, today time.Time) (string, int, error) {
	if patient == nil {
		return "", 0, ErrNoPatient
	}
	if bundle == nil {
		bundle = &clinical.RecordBundle{}
	}

	var b strings.Builder

	b.WriteString("INFORMACIÓN DEL PACIENTE:\n")
	fmt.Fprintf(&b, "Nombre: %s\n", patient.FullName())
	fmt.Fprintf(&b, "Edad: %d años\n", Age(patient.BirthDate, today))
	fmt.Fprintf(&b, "Género: %s\n", patient.Gender)
	fmt.Fprintf(&b, "Documento: %d-%s\n", patient.DocumentTypeID, patient.DocumentNumber)

	if len(bundle.Appointments) > 0 {
		b.WriteString("\nCITAS MÉDICAS RECIENTES:\n")
		limit := len(bundle.Appointments)
		if limit > maxAppointmentsInContext {
			limit = maxAppointmentsInContext
		}
		for _, apt := range bundle.Appointments[:limit] {
			fmt.Fprintf(&b, "- %s", apt.AppointmentDate.Format("2006-01-02"))
			if apt.StartTime != nil && *apt.StartTime != "" {
				fmt.Fprintf(&b, " %s", *apt.StartTime)
			}
			if apt.Reason != nil && *apt.Reason != "" {
				fmt.Fprintf(&b, ": %s", *apt.Reason)
			}
			b.WriteString("\n")
		}
	}

	if len(bundle.Diagnoses) > 0 {
		b.WriteString("\nDIAGNÓSTICOS:\n")
		for _, d := range bundle.Diagnoses {
			fmt.Fprintf(&b, "- %s", diagnosisLabel(d))
			if d.DiagnosisType != nil && *d.DiagnosisType != "" {
				fmt.Fprintf(&b, " (tipo: %s)", *d.DiagnosisType)
			}
			if d.Note != nil && *d.Note != "" {
				fmt.Fprintf(&b, ". Nota: %s", *d.Note)
			}
			b.WriteString("\n")
		}
	}

	if len(bundle.Prescriptions) > 0 {
		b.WriteString("\nPRESCRIPCIONES:\n")
		for _, p := range bundle.Prescriptions {
			fmt.Fprintf(&b, "- %s", prescriptionLabel(p))
			if p.PrescriptionDate != nil {
				fmt.Fprintf(&b, " (%s)", p.PrescriptionDate.Format("2006-01-02"))
			}
			b.WriteString("\n")
		}
	}

	if len(fragments) > 0 {
		b.WriteString("\nINFORMACIÓN RELEVANTE ADICIONAL:\n")
		for _, f := range fragments {
			fmt.Fprintf(&b, "- [%s", f.SourceType)
			if f.Date != nil {
				fmt.Fprintf(&b, " %s", f.Date.Format("2006-01-02"))
			}
			fmt.Fprintf(&b, ", relevancia %.2f] %s\n", f.RelevanceScore, f.Text)
		}
	}

	text, tokens := limitTokens(b.String(), maxTokens)
	return text, tokens, nil
}

// Age uses whole-year arithmetic with month/day comparison: a patient born
// on today's month/day turns a year older today, not tomorrow.
func Age(birthDate, today time.Time) int {
	years := today.Year() - birthDate.Year()
	if today.Month() < birthDate.Month() ||
		(today.Month() == birthDate.Month() && today.Day() < birthDate.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}

// diagnosisLabel prefers the description over the bare ICD code, resolved
// once here rather than probed downstream.
func diagnosisLabel(d clinical.DiagnosisRecord) string {
	if d.Description != nil && *d.Description != "" {
		return *d.Description
	}
	if d.ICDCode != nil && *d.ICDCode != "" {
		return *d.ICDCode
	}
	return fmt.Sprintf("Diagnóstico %d", d.DiagnosisID)
}

// prescriptionLabel prefers the instruction text and otherwise synthesizes
// a line from the medication id and dosage.
func prescriptionLabel(p clinical.Prescription) string {
	if p.Instruction != nil && *p.Instruction != "" {
		return *p.Instruction
	}
	label := fmt.Sprintf("Medicamento %d", p.MedicationID)
	if p.Dosage != nil && *p.Dosage != "" {
		label += ", dosis " + *p.Dosage
	}
	return label
}
