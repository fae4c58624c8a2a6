package query

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smarthealth/platform/pkg/clinical"
	"github.com/smarthealth/platform/pkg/common/logger"
	"github.com/smarthealth/platform/pkg/llm"
	"github.com/smarthealth/platform/pkg/retrieval"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func strPtr(s string) *string { return &s }

type fakeAggregator struct {
	patient *clinical.Patient
	bundle  *clinical.RecordBundle
	err     error
	panics  bool
}

func (f *fakeAggregator) Fetch(ctx context.Context, documentTypeID int, documentNumber string) (*clinical.Patient, *clinical.RecordBundle, error) {
	if f.panics {
		panic("aggregator exploded")
	}
	bundle := f.bundle
	if bundle == nil {
		bundle = &clinical.RecordBundle{}
	}
	return f.patient, bundle, f.err
}

type fakeRetriever struct {
	fragments []retrieval.Fragment
	err       error
}

func (f *fakeRetriever) Search(ctx context.Context, patientID int64, question string, opts retrieval.SearchOptions) ([]retrieval.Fragment, error) {
	return f.fragments, f.err
}

type fakeGenerator struct {
	answer llm.Answer
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(ctx context.Context, question, contextText string, bundle *clinical.RecordBundle) (llm.Answer, error) {
	f.calls++
	return f.answer, f.err
}

type fakeAudit struct {
	saved []AuditLog
}

func (f *fakeAudit) Save(ctx context.Context, entry *AuditLog) error {
	f.saved = append(f.saved, *entry)
	return nil
}

func (f *fakeAudit) BySession(ctx context.Context, sessionID string) ([]AuditLog, error) {
	return f.saved, nil
}

type fakeSequencer struct{ next int64 }

func (f *fakeSequencer) Next(ctx context.Context, sessionID string) int64 {
	f.next++
	return f.next
}

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
			{AppointmentID: 10, PatientID: 1, AppointmentDate: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), Reason: strPtr("Control")},
		},
		Diagnoses: []clinical.DiagnosisRecord{
			{DiagnosisID: 5, Description: strPtr("Hipertensión esencial")},
		},
	}
}

func testFragments() []retrieval.Fragment {
	return []retrieval.Fragment{
		{SourceType: retrieval.SourceAppointment, SourceID: 10, PatientID: 1, Text: "Paciente controlado", RelevanceScore: 0.9},
	}
}

func goodAnswer() llm.Answer {
	return llm.Answer{
		Text:       "El paciente presenta hipertensión esencial controlada según la cita del 2025-12-01.",
		Confidence: 0.9,
		ModelUsed:  "gpt-4",
	}
}

func testRequest() Request {
	return Request{
		UserID:         1,
		SessionID:      "session-1",
		DocumentTypeID: 1,
		DocumentNumber: "123456",
		Question:       "¿Qué diagnósticos tiene el paciente?",
	}
}

func newTestService(agg Aggregator, ret Retriever, gen Generator) *Service {
	return NewService(agg, ret, gen, llm.NewClassifier(llm.DefaultRules()), Options{})
}

func TestAnswerQuerySuccess(t *testing.T) {
	gen := &fakeGenerator{answer: goodAnswer()}
	svc := newTestService(
		&fakeAggregator{patient: testPatient(), bundle: testBundle()},
		&fakeRetriever{fragments: testFragments()},
		gen,
	)

	outcome := svc.AnswerQuery(context.Background(), testRequest())
	success, ok := outcome.(Success)
	if !ok {
		t.Fatalf("expected Success, got %T: %+v", outcome, outcome)
	}
	if success.Status != "success" {
		t.Fatalf("expected status success, got %s", success.Status)
	}
	if success.PatientInfo.FullName != "Juan García" {
		t.Fatalf("unexpected patient info: %+v", success.PatientInfo)
	}
	if len(success.Sources) < 2 {
		t.Fatalf("expected at least 2 sources, got %d", len(success.Sources))
	}
	if success.Sources[0].Type != "vector_search" {
		t.Fatalf("first source should be vector_search, got %s", success.Sources[0].Type)
	}
	if success.Metadata.TotalRecordsAnalyzed != 2 {
		t.Fatalf("expected 2 records analyzed, got %d", success.Metadata.TotalRecordsAnalyzed)
	}
	if success.Metadata.FallbackMode {
		t.Fatal("fallback mode should be false for a generated answer")
	}
	if gen.calls != 1 {
		t.Fatalf("expected 1 generation call, got %d", gen.calls)
	}
}

func TestAnswerQueryPatientNotFound(t *testing.T) {
	svc := newTestService(&fakeAggregator{}, &fakeRetriever{}, &fakeGenerator{})

	req := testRequest()
	req.DocumentNumber = "000000"
	outcome := svc.AnswerQuery(context.Background(), req)

	errOutcome, ok := outcome.(Error)
	if !ok {
		t.Fatalf("expected Error, got %T", outcome)
	}
	if errOutcome.Error.Code != CodePatientNotFound {
		t.Fatalf("expected %s, got %s", CodePatientNotFound, errOutcome.Error.Code)
	}
}

func TestAnswerQueryDatabaseError(t *testing.T) {
	svc := newTestService(
		&fakeAggregator{err: clinical.ErrDatabase},
		&fakeRetriever{},
		&fakeGenerator{},
	)

	outcome := svc.AnswerQuery(context.Background(), testRequest())
	errOutcome, ok := outcome.(Error)
	if !ok {
		t.Fatalf("expected Error, got %T", outcome)
	}
	if errOutcome.Error.Code != CodeDatabaseError {
		t.Fatalf("expected %s, got %s", CodeDatabaseError, errOutcome.Error.Code)
	}
}

func TestAnswerQueryNoRecordsShortCircuit(t *testing.T) {
	gen := &fakeGenerator{answer: goodAnswer()}
	svc := newTestService(
		&fakeAggregator{patient: testPatient(), bundle: &clinical.RecordBundle{}},
		&fakeRetriever{},
		gen,
	)

	outcome := svc.AnswerQuery(context.Background(), testRequest())
	success, ok := outcome.(Success)
	if !ok {
		t.Fatalf("expected Success, got %T", outcome)
	}
	if gen.calls != 0 {
		t.Fatalf("generation must be skipped with no data, got %d calls", gen.calls)
	}
	if success.Answer.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %f", success.Answer.Confidence)
	}
	if success.Answer.ModelUsed != "system" {
		t.Fatalf("expected model 'system', got %s", success.Answer.ModelUsed)
	}
	if !strings.Contains(success.Answer.Text, "no tiene registros") {
		t.Fatalf("expected canned no-records answer, got %q", success.Answer.Text)
	}
}

func TestAnswerQueryRetrievalFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{answer: goodAnswer()}
	svc := newTestService(
		&fakeAggregator{patient: testPatient(), bundle: testBundle()},
		&fakeRetriever{err: errors.New("vector index down")},
		gen,
	)

	outcome := svc.AnswerQuery(context.Background(), testRequest())
	success, ok := outcome.(Success)
	if !ok {
		t.Fatalf("retrieval failure must not be terminal, got %T", outcome)
	}
	if success.Metadata.VectorResults != 0 {
		t.Fatalf("expected zero vector results, got %d", success.Metadata.VectorResults)
	}
	if gen.calls != 1 {
		t.Fatal("generation should still run on structured records alone")
	}
}

func TestAnswerQueryFallbackMode(t *testing.T) {
	fallbackAnswer := llm.Answer{
		Text:       "Citas recientes del paciente: 2025-12-01: Control. Nota: modo degradado.",
		Confidence: 0.65,
		ModelUsed:  llm.FallbackModel,
		Fallback:   true,
	}
	svc := newTestService(
		&fakeAggregator{patient: testPatient(), bundle: testBundle()},
		&fakeRetriever{fragments: testFragments()},
		&fakeGenerator{answer: fallbackAnswer},
	)

	outcome := svc.AnswerQuery(context.Background(), testRequest())
	success, ok := outcome.(Success)
	if !ok {
		t.Fatalf("fallback must still be a Success outcome, got %T", outcome)
	}
	if !success.Metadata.FallbackMode {
		t.Fatal("expected fallback_mode metadata marker")
	}
	if success.Answer.ModelUsed != llm.FallbackModel {
		t.Fatalf("expected fallback model marker, got %s", success.Answer.ModelUsed)
	}
	if success.Answer.Confidence != 0.65 {
		t.Fatalf("expected fallback confidence, got %f", success.Answer.Confidence)
	}
}

func TestAnswerQueryNoDataClassification(t *testing.T) {
	svc := newTestService(
		&fakeAggregator{patient: testPatient(), bundle: testBundle()},
		&fakeRetriever{fragments: testFragments()},
		&fakeGenerator{answer: llm.Answer{
			Text:       "No hay información disponible sobre alergias en los registros del paciente.",
			Confidence: 0.3,
			ModelUsed:  "gpt-4",
		}},
	)

	outcome := svc.AnswerQuery(context.Background(), testRequest())
	noData, ok := outcome.(NoData)
	if !ok {
		t.Fatalf("expected NoData, got %T", outcome)
	}
	if noData.Status != "no_data" {
		t.Fatalf("expected status no_data, got %s", noData.Status)
	}
	if !strings.Contains(noData.Message, "No hay información") {
		t.Fatalf("no_data message should carry the model's literal text, got %q", noData.Message)
	}
}

func TestAnswerQueryPanicIsInternalError(t *testing.T) {
	svc := newTestService(&fakeAggregator{panics: true}, &fakeRetriever{}, &fakeGenerator{})

	outcome := svc.AnswerQuery(context.Background(), testRequest())
	errOutcome, ok := outcome.(Error)
	if !ok {
		t.Fatalf("expected Error, got %T", outcome)
	}
	if errOutcome.Error.Code != CodeInternalError {
		t.Fatalf("expected %s, got %s", CodeInternalError, errOutcome.Error.Code)
	}
	if !strings.Contains(errOutcome.Error.Details, "aggregator exploded") {
		t.Fatalf("details should retain the panic message, got %q", errOutcome.Error.Details)
	}
}

func TestAnswerQuerySequenceAllocation(t *testing.T) {
	seq := &fakeSequencer{}
	svc := newTestService(
		&fakeAggregator{patient: testPatient(), bundle: testBundle()},
		&fakeRetriever{},
		&fakeGenerator{answer: goodAnswer()},
	).WithSequencer(seq)

	outcome := svc.AnswerQuery(context.Background(), testRequest())
	success := outcome.(Success)
	if success.SequenceChatID != 1 {
		t.Fatalf("expected allocated sequence 1, got %d", success.SequenceChatID)
	}

	req := testRequest()
	req.SequenceID = 7
	success = svc.AnswerQuery(context.Background(), req).(Success)
	if success.SequenceChatID != 7 {
		t.Fatalf("explicit sequence id must win, got %d", success.SequenceChatID)
	}
}

func TestAnswerQueryWritesAudit(t *testing.T) {
	audit := &fakeAudit{}
	svc := newTestService(
		&fakeAggregator{patient: testPatient(), bundle: testBundle()},
		&fakeRetriever{},
		&fakeGenerator{answer: goodAnswer()},
	).WithAudit(audit)

	svc.AnswerQuery(context.Background(), testRequest())
	if len(audit.saved) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audit.saved))
	}
	entry := audit.saved[0]
	if entry.SessionID != "session-1" || entry.Question == "" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.Response["status"] != "success" {
		t.Fatalf("audit payload should carry the outcome, got %v", entry.Response)
	}
}

func TestRequestValidate(t *testing.T) {
	valid := testRequest()
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tooShort := testRequest()
	tooShort.Question = "¿?"
	if err := tooShort.Validate(); err == nil {
		t.Fatal("expected error for short question")
	}

	noDocument := testRequest()
	noDocument.DocumentNumber = ""
	if err := noDocument.Validate(); err == nil {
		t.Fatal("expected error for missing document number")
	}
}
