package query

import (
	"errors"
	"strings"
	"time"

	"github.com/smarthealth/platform/pkg/ragcontext"
)

// Timestamp layout of the outward response, e.g. 20251203T154210Z.
const timestampLayout = "20060102T150405Z"

// Error codes of the outward error envelope.
const (
	CodePatientNotFound   = "PATIENT_NOT_FOUND"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeContextBuildError = "CONTEXT_BUILD_ERROR"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeValidationError   = "VALIDATION_ERROR"
)

// Request is one clinical question about one patient.
type Request struct {
	UserID         int64  `json:"user_id"`
	SessionID      string `json:"session_id"`
	SequenceID     int64  `json:"sequence_id,omitempty"`
	DocumentTypeID int    `json:"document_type_id"`
	DocumentNumber string `json:"document_number"`
	Question       string `json:"question"`
}

func (r *Request) Validate() error {
	if r.DocumentNumber == "" {
		return errors.New("document_number is required")
	}
	if r.DocumentTypeID <= 0 {
		return errors.New("document_type_id is required")
	}
	if len(strings.TrimSpace(r.Question)) < 3 {
		return errors.New("question must be at least 3 characters")
	}
	return nil
}

// Outcome is the tagged response variant: exactly one of Success, NoData or
// Error per query.
type Outcome interface {
	outcome()
}

type PatientInfo struct {
	PatientID      int64  `json:"patient_id"`
	FullName       string `json:"full_name"`
	DocumentTypeID int    `json:"document_type_id"`
	DocumentNumber string `json:"document_number"`
	BirthDate      string `json:"birth_date"`
	Gender         string `json:"gender"`
}

type AnswerInfo struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	ModelUsed  string  `json:"model_used"`
}

type Success struct {
	Status         string                    `json:"status"`
	SessionID      string                    `json:"session_id"`
	SequenceChatID int64                     `json:"sequence_chat_id"`
	Timestamp      string                    `json:"timestamp"`
	PatientInfo    PatientInfo               `json:"patient_info"`
	Answer         AnswerInfo                `json:"answer"`
	Sources        []ragcontext.SourceRecord `json:"sources"`
	Metadata       ragcontext.Metadata       `json:"metadata"`
}

func (Success) outcome() {}

type NoData struct {
	Status         string               `json:"status"`
	SessionID      string               `json:"session_id"`
	SequenceChatID int64                `json:"sequence_chat_id"`
	Timestamp      string               `json:"timestamp"`
	Message        string               `json:"message"`
	Metadata       *ragcontext.Metadata `json:"metadata,omitempty"`
}

func (NoData) outcome() {}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Error struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

func (Error) outcome() {}

func newError(code, message, details string) Error {
	return Error{
		Status: "error",
		Error:  ErrorDetail{Code: code, Message: message, Details: details},
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
