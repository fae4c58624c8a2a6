package ragcontext

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smarthealth/platform/pkg/clinical"
	"github.com/smarthealth/platform/pkg/common/logger"
	"github.com/smarthealth/platform/pkg/retrieval"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func strPtr(s string) *string { return &s }

func testPatient() *clinical.Patient {
	return &clinical.Patient{
		PatientID:      1,
		DocumentTypeID: 1,
		DocumentNumber: "123456",
		FirstName:      "Juan",
		FirstSurname:   "García",
		BirthDate:      time.Date(1995, 1, 15, 0, 0, 0, 0, time.UTC),
		Gender:         "M",
	}
}

func testBundle() *clinical.RecordBundle {
	return &clinical.RecordBundle{
		Appointments: []clinical.Appointment{
			{
				AppointmentID:   10,
				PatientID:       1,
				AppointmentDate: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
				Reason:          strPtr("Control de hipertensión"),
			},
		},
		Diagnoses: []clinical.DiagnosisRecord{
			{
				RecordDiagnosisID: 1,
				DiagnosisID:       5,
				ICDCode:           strPtr("I10"),
				Description:       strPtr("Hipertensión esencial"),
				DiagnosisType:     strPtr("primary"),
			},
		},
	}
}

func testFragments() []retrieval.Fragment {
	date := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	return []retrieval.Fragment{
		{
			SourceType:     retrieval.SourceAppointment,
			SourceID:       10,
			PatientID:      1,
			Text:           "Paciente controlado, presión estable",
			Date:           &date,
			RelevanceScore: 0.9,
		},
	}
}

func TestComposeContainsAllSections(t *testing.T) {
	today := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	text, tokens, err := ComposeAt(testPatient(), testBundle(), testFragments(), 0, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens <= 0 {
		t.Fatalf("expected positive token count, got %d", tokens)
	}

	for _, want := range []string{
		"Juan García",
		"Control de hipertensión",
		"Hipertensión esencial",
		"Paciente controlado, presión estable",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("context missing %q:\n%s", want, text)
		}
	}

	// Fixed section order.
	sections := []string{
		"INFORMACIÓN DEL PACIENTE:",
		"CITAS MÉDICAS RECIENTES:",
		"DIAGNÓSTICOS:",
		"INFORMACIÓN RELEVANTE ADICIONAL:",
	}
	last := -1
	for _, section := range sections {
		idx := strings.Index(text, section)
		if idx < 0 {
			t.Fatalf("context missing section %q", section)
		}
		if idx < last {
			t.Fatalf("section %q out of order", section)
		}
		last = idx
	}
}

func TestComposeOmitsEmptySections(t *testing.T) {
	today := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	text, _, err := ComposeAt(testPatient(), &clinical.RecordBundle{}, nil, 0, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, section := range []string{"CITAS MÉDICAS", "DIAGNÓSTICOS", "PRESCRIPCIONES", "INFORMACIÓN RELEVANTE"} {
		if strings.Contains(text, section) {
			t.Fatalf("empty section %q should be omitted", section)
		}
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	today := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	first, firstTokens, err := ComposeAt(testPatient(), testBundle(), testFragments(), 500, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		text, tokens, err := ComposeAt(testPatient(), testBundle(), testFragments(), 500, today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != first || tokens != firstTokens {
			t.Fatal("compose is not deterministic for fixed inputs")
		}
	}
}

func TestComposeHonorsTokenBudget(t *testing.T) {
	bundle := testBundle()
	for i := 0; i < 200; i++ {
		bundle.Diagnoses = append(bundle.Diagnoses, clinical.DiagnosisRecord{
			DiagnosisID: int64(i + 100),
			Description: strPtr(strings.Repeat("diagnóstico crónico detallado ", 5)),
		})
	}

	const max = 50
	today := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	text, tokens, err := ComposeAt(testPatient(), bundle, nil, max, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens > max {
		t.Fatalf("token count %d exceeds budget %d", tokens, max)
	}
	if tokens != max {
		t.Fatalf("oversized context should be cut to exactly %d tokens, got %d", max, tokens)
	}

	full, fullTokens, err := ComposeAt(testPatient(), bundle, nil, 1_000_000, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fullTokens <= max {
		t.Fatal("test bundle should exceed the small budget")
	}
	if !strings.HasPrefix(full, text[:20]) {
		t.Fatal("truncated text should be a prefix of the full text")
	}
}

func TestComposeRequiresPatient(t *testing.T) {
	if _, _, err := Compose(nil, &clinical.RecordBundle{}, nil, 0); err == nil {
		t.Fatal("expected error for nil patient")
	}
}

func TestComposeCapsAppointmentsAtFive(t *testing.T) {
	bundle := &clinical.RecordBundle{}
	for i := 0; i < 8; i++ {
		bundle.Appointments = append(bundle.Appointments, clinical.Appointment{
			AppointmentID:   int64(i + 1),
			AppointmentDate: time.Date(2025, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			Reason:          strPtr("Consulta"),
		})
	}

	today := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	text, _, err := ComposeAt(testPatient(), bundle, nil, 0, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(text, "Consulta"); got != 5 {
		t.Fatalf("expected 5 appointments in context, got %d", got)
	}
}

func TestAgeBoundary(t *testing.T) {
	birth := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)

	onBirthday := time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)
	if got := Age(birth, onBirthday); got != 30 {
		t.Fatalf("expected age 30 on the birthday, got %d", got)
	}

	dayBefore := time.Date(2020, 6, 14, 0, 0, 0, 0, time.UTC)
	if got := Age(birth, dayBefore); got != 29 {
		t.Fatalf("expected age 29 the day before, got %d", got)
	}

	dayAfter := time.Date(2020, 6, 16, 0, 0, 0, 0, time.UTC)
	if got := Age(birth, dayAfter); got != 30 {
		t.Fatalf("expected age 30 the day after, got %d", got)
	}
}
