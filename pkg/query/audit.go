package query

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records one answered query with the full outward response. One
// row per (session, sequence) turn.
type AuditLog struct {
	AuditID        int64             `gorm:"primaryKey;autoIncrement;column:audit_id" json:"audit_id"`
	UserID         int64             `gorm:"column:user_id" json:"user_id"`
	SessionID      string            `gorm:"column:session_id;index" json:"session_id"`
	SequenceChatID int64             `gorm:"column:sequence_chat_id" json:"sequence_chat_id"`
	DocumentTypeID int               `gorm:"column:document_type_id" json:"document_type_id"`
	DocumentNumber string            `gorm:"column:document_number" json:"document_number"`
	Question       string            `gorm:"column:question" json:"question"`
	Response       datatypes.JSONMap `gorm:"column:response_json" json:"response_json"`
	CreatedAt      time.Time         `gorm:"column:created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "smart_health.audit_logs"
}

func newAuditLog(req Request, sequenceID int64, outcome Outcome) *AuditLog {
	entry := &AuditLog{
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		SequenceChatID: sequenceID,
		DocumentTypeID: req.DocumentTypeID,
		DocumentNumber: req.DocumentNumber,
		Question:       req.Question,
		CreatedAt:      time.Now().UTC(),
	}

	// Round-trip through JSON to flatten the outcome into a generic map.
	if raw, err := json.Marshal(outcome); err == nil {
		var payload map[string]interface{}
		if err := json.Unmarshal(raw, &payload); err == nil {
			entry.Response = datatypes.JSONMap(payload)
		}
	}

	return entry
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&AuditLog{})
}

func (r *AuditRepository) Save(ctx context.Context, entry *AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepository) BySession(ctx context.Context, sessionID string) ([]AuditLog, error) {
	var entries []AuditLog
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence_chat_id ASC").
		Find(&entries).Error
	return entries, err
}
