package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatAuditRecord is one persisted chat interaction. Answer previews are
// truncated before persistence so the audit table stays bounded.
type ChatAuditRecord struct {
	ID            uuid.UUID `json:"id" db:"id"`
	RequestID     string    `json:"request_id" db:"request_id"`
	Question      string    `json:"question" db:"question"`
	AnswerPreview string    `json:"answer_preview" db:"answer_preview"`
	ModelUsed     string    `json:"model_used" db:"model_used"`
	Success       bool      `json:"success" db:"success"`
	Degraded      bool      `json:"degraded" db:"degraded"`
	ContextUsed   bool      `json:"context_used" db:"context_used"`
	DocumentCount int       `json:"document_count" db:"document_count"`
	LatencyMs     int       `json:"latency_ms" db:"latency_ms"`
	ErrorMessage  *string   `json:"error_message,omitempty" db:"error_message"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the ChatAuditRecord model
func (ChatAuditRecord) TableName() string {
	return "chat_interactions"
}

const answerPreviewLimit = 500

// NewChatAuditRecord creates a new ChatAuditRecord instance
func NewChatAuditRecord(requestID, question string) *ChatAuditRecord {
	return &ChatAuditRecord{
		ID:        uuid.New(),
		RequestID: requestID,
		Question:  question,
		Timestamp: time.Now(),
	}
}

// WithAnswer records the answer preview, truncated to a bounded length
func (r *ChatAuditRecord) WithAnswer(answer string) *ChatAuditRecord {
	if len(answer) > answerPreviewLimit {
		answer = answer[:answerPreviewLimit]
	}
	r.AnswerPreview = answer
	return r
}

// WithOutcome records the generation outcome flags
func (r *ChatAuditRecord) WithOutcome(success, degraded bool) *ChatAuditRecord {
	r.Success = success
	r.Degraded = degraded
	return r
}

// WithRetrieval records how much retrieved context backed the answer
func (r *ChatAuditRecord) WithRetrieval(documentCount int) *ChatAuditRecord {
	r.DocumentCount = documentCount
	r.ContextUsed = documentCount > 0
	return r
}

// WithModel records the model that served the request
func (r *ChatAuditRecord) WithModel(model string) *ChatAuditRecord {
	r.ModelUsed = model
	return r
}

// WithLatency records the end-to-end latency
func (r *ChatAuditRecord) WithLatency(latency time.Duration) *ChatAuditRecord {
	r.LatencyMs = int(latency.Milliseconds())
	return r
}

// WithError records the underlying failure message
func (r *ChatAuditRecord) WithError(message string) *ChatAuditRecord {
	r.ErrorMessage = &message
	return r
}
