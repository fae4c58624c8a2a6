package llm

import (
	"fmt"
	"strings"

	"github.com/smarthealth/platform/pkg/clinical"
)

// FallbackModel marks answers produced by the extractive path instead of
// the generative model.
const FallbackModel = "fallback-extractive"

const fallbackItemsPerSection = 3

const fallbackDisclaimer = "Nota: esta respuesta fue generada en modo degradado a partir de los registros estructurados del paciente, sin asistencia del modelo de lenguaje."

// buildFallbackText assembles a deterministic extractive digest of the
// bundle: appointments, diagnoses, prescriptions, in that order, at most
// three items each, closed with the degraded-mode disclaimer.
func buildFallbackText(bundle *clinical.RecordBundle) string {
	var b strings.Builder

	if bundle != nil && len(bundle.Appointments) > 0 {
		b.WriteString("Citas recientes del paciente:\n")
		for i, apt := range bundle.Appointments {
			if i >= fallbackItemsPerSection {
				break
			}
			fmt.Fprintf(&b, "- %s", apt.AppointmentDate.Format("2006-01-02"))
			if apt.Reason != nil && *apt.Reason != "" {
				fmt.Fprintf(&b, ": %s", *apt.Reason)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if bundle != nil && len(bundle.Diagnoses) > 0 {
		b.WriteString("Diagnósticos registrados:\n")
		for i, d := range bundle.Diagnoses {
			if i >= fallbackItemsPerSection {
				break
			}
			label := ""
			if d.Description != nil && *d.Description != "" {
				label = *d.Description
			} else if d.ICDCode != nil && *d.ICDCode != "" {
				label = *d.ICDCode
			} else {
				label = fmt.Sprintf("Diagnóstico %d", d.DiagnosisID)
			}
			fmt.Fprintf(&b, "- %s\n", label)
		}
		b.WriteString("\n")
	}

	if bundle != nil && len(bundle.Prescriptions) > 0 {
		b.WriteString("Prescripciones registradas:\n")
		for i, p := range bundle.Prescriptions {
			if i >= fallbackItemsPerSection {
				break
			}
			if p.Instruction != nil && *p.Instruction != "" {
				fmt.Fprintf(&b, "- %s\n", *p.Instruction)
			} else {
				fmt.Fprintf(&b, "- Medicamento %d", p.MedicationID)
				if p.Dosage != nil && *p.Dosage != "" {
					fmt.Fprintf(&b, ", dosis %s", *p.Dosage)
				}
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		b.WriteString("No fue posible generar una respuesta y el paciente no tiene registros estructurados para resumir.\n\n")
	}

	b.WriteString(fallbackDisclaimer)
	return b.String()
}
