package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smarthealth/platform/pkg/clinical"
	"github.com/smarthealth/platform/pkg/common/logger"
	"github.com/smarthealth/platform/pkg/llm"
	"github.com/smarthealth/platform/pkg/ragcontext"
	"github.com/smarthealth/platform/pkg/retrieval"
)

// Injected capabilities. Each is satisfied by the concrete service of its
// package and replaceable with a test double.
type (
	Aggregator interface {
		Fetch(ctx context.Context, documentTypeID int, documentNumber string) (*clinical.Patient, *clinical.RecordBundle, error)
	}

	Retriever interface {
		Search(ctx context.Context, patientID int64, question string, opts retrieval.SearchOptions) ([]retrieval.Fragment, error)
	}

	Generator interface {
		Generate(ctx context.Context, question, contextText string, bundle *clinical.RecordBundle) (llm.Answer, error)
	}

	AuditStore interface {
		Save(ctx context.Context, entry *AuditLog) error
		BySession(ctx context.Context, sessionID string) ([]AuditLog, error)
	}

	Sequencer interface {
		Next(ctx context.Context, sessionID string) int64
	}

	EventPublisher interface {
		PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
	}
)

// Answer used when the patient exists but has no clinical data at all;
// generation is skipped because there is nothing to ground against.
const (
	noRecordsAnswer     = "El paciente no tiene registros clínicos en el sistema. No es posible responder la pregunta."
	noRecordsModel      = "system"
	noRecordsConfidence = 1.0
)

// Options carries the retrieval and composition tuning for one service
// instance.
type Options struct {
	MaxContextTokens int
	Search           retrieval.SearchOptions
}

// Service sequences one query through the pipeline: patient lookup,
// retrieval, context build, data check, generation, classification,
// response assembly. audit, sequencer and events are optional; a nil value
// disables that concern.
type Service struct {
	aggregator Aggregator
	retriever  Retriever
	generator  Generator
	classifier *llm.Classifier
	audit      AuditStore
	sequencer  Sequencer
	events     EventPublisher
	opts       Options
}

func NewService(aggregator Aggregator, retriever Retriever, generator Generator, classifier *llm.Classifier, opts Options) *Service {
	return &Service{
		aggregator: aggregator,
		retriever:  retriever,
		generator:  generator,
		classifier: classifier,
		opts:       opts,
	}
}

func (s *Service) WithAudit(store AuditStore) *Service {
	s.audit = store
	return s
}

func (s *Service) WithSequencer(seq Sequencer) *Service {
	s.sequencer = seq
	return s
}

func (s *Service) WithEvents(pub EventPublisher) *Service {
	s.events = pub
	return s
}

// AnswerQuery never returns an error and never lets a panic escape: every
// failure is converted into the outward tagged variant here and nowhere
// else.
func (s *Service) AnswerQuery(ctx context.Context, req Request) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":    fmt.Sprintf("%v", r),
				"session":  req.SessionID,
				"document": req.DocumentNumber,
			}).Error("Panic during query processing")
			outcome = newError(CodeInternalError, "unexpected internal error", fmt.Sprintf("%v", r))
		}
	}()

	start := time.Now()

	// PatientLookup
	patient, bundle, err := s.aggregator.Fetch(ctx, req.DocumentTypeID, req.DocumentNumber)
	if err != nil {
		logger.Log.WithError(err).Error("Clinical data fetch failed")
		if errors.Is(err, clinical.ErrDatabase) {
			return newError(CodeDatabaseError, "error accessing clinical data store", err.Error())
		}
		return newError(CodeInternalError, "unexpected internal error", err.Error())
	}
	if patient == nil {
		return newError(CodePatientNotFound,
			fmt.Sprintf("no patient found for document type %d number %s", req.DocumentTypeID, req.DocumentNumber), "")
	}

	// Retrieval: failure degrades to zero fragments, never terminal.
	fragments, err := s.retriever.Search(ctx, patient.PatientID, req.Question, s.opts.Search)
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"patient_id": patient.PatientID,
		}).Warn("Similarity retrieval failed, continuing without fragments")
		fragments = nil
	}

	// ContextBuild
	contextText, contextTokens, err := ragcontext.Compose(patient, bundle, fragments, s.opts.MaxContextTokens)
	if err != nil {
		logger.Log.WithError(err).Error("Context composition failed")
		return newError(CodeContextBuildError, "error building model context", err.Error())
	}

	sequenceID := s.resolveSequence(ctx, req)

	// DataCheck: nothing to ground against, skip generation entirely.
	if bundle.TotalRecords()+len(fragments) == 0 {
		metadata := ragcontext.BuildMetadata(bundle, fragments, time.Since(start), contextTokens)
		success := s.assembleSuccess(req, sequenceID, patient, llm.Answer{
			Text:       noRecordsAnswer,
			Confidence: noRecordsConfidence,
			ModelUsed:  noRecordsModel,
		}, nil, metadata)
		s.record(ctx, req, sequenceID, success)
		return success
	}

	// Generation: never terminal, the facade falls back internally.
	answer, err := s.generator.Generate(ctx, req.Question, contextText, bundle)
	if err != nil {
		logger.Log.WithError(err).Error("Generation failed beyond fallback")
		return newError(CodeInternalError, "error generating answer", err.Error())
	}

	metadata := ragcontext.BuildMetadata(bundle, fragments, time.Since(start), contextTokens)
	metadata.FallbackMode = answer.Fallback

	// Classification
	if s.classifier.DetermineStatus(answer.Text, contextText) == llm.StatusNoData {
		noData := NoData{
			Status:         "no_data",
			SessionID:      req.SessionID,
			SequenceChatID: sequenceID,
			Timestamp:      formatTimestamp(time.Now()),
			Message:        answer.Text,
			Metadata:       &metadata,
		}
		s.record(ctx, req, sequenceID, noData)
		return noData
	}

	// ResponseAssembly
	sources := ragcontext.BuildSources(fragments, bundle)
	success := s.assembleSuccess(req, sequenceID, patient, answer, sources, metadata)
	s.record(ctx, req, sequenceID, success)
	return success
}

func (s *Service) assembleSuccess(req Request, sequenceID int64, patient *clinical.Patient, answer llm.Answer, sources []ragcontext.SourceRecord, metadata ragcontext.Metadata) Success {
	if sources == nil {
		sources = []ragcontext.SourceRecord{}
	}
	return Success{
		Status:         "success",
		SessionID:      req.SessionID,
		SequenceChatID: sequenceID,
		Timestamp:      formatTimestamp(time.Now()),
		PatientInfo: PatientInfo{
			PatientID:      patient.PatientID,
			FullName:       patient.FullName(),
			DocumentTypeID: patient.DocumentTypeID,
			DocumentNumber: patient.DocumentNumber,
			BirthDate:      patient.BirthDate.Format("2006-01-02"),
			Gender:         patient.Gender,
		},
		Answer: AnswerInfo{
			Text:       answer.Text,
			Confidence: answer.Confidence,
			ModelUsed:  answer.ModelUsed,
		},
		Sources:  sources,
		Metadata: metadata,
	}
}

func (s *Service) resolveSequence(ctx context.Context, req Request) int64 {
	if req.SequenceID > 0 {
		return req.SequenceID
	}
	if s.sequencer == nil || req.SessionID == "" {
		return 1
	}
	return s.sequencer.Next(ctx, req.SessionID)
}

// record persists the audit row and publishes the audit event. Both are
// best-effort: a failure is logged, never surfaced to the caller.
func (s *Service) record(ctx context.Context, req Request, sequenceID int64, outcome Outcome) {
	if s.audit != nil {
		entry := newAuditLog(req, sequenceID, outcome)
		if err := s.audit.Save(ctx, entry); err != nil {
			logger.Log.WithError(err).Warn("Failed to persist audit log")
		}
	}

	if s.events != nil {
		data := map[string]interface{}{
			"user_id":          req.UserID,
			"session_id":       req.SessionID,
			"sequence_chat_id": sequenceID,
			"document_type_id": req.DocumentTypeID,
			"question_length":  len(req.Question),
		}
		if err := s.events.PublishEvent(ctx, "query.answered", "query-service", data); err != nil {
			logger.Log.WithError(err).Warn("Failed to publish audit event")
		}
	}
}
