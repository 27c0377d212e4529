package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/smotta/flow-rag-api/models"
	"github.com/smotta/flow-rag-api/repositories"
	"go.uber.org/zap"
)

// ChatAuditRepository implements the repositories.ChatAuditRepository interface
type ChatAuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewChatAuditRepository creates a new chat audit repository
func NewChatAuditRepository(db *DB, logger *zap.Logger) repositories.ChatAuditRepository {
	return &ChatAuditRepository{
		db:     db,
		logger: logger,
	}
}

const chatAuditColumns = `id, request_id, question, answer_preview, model_used,
	success, degraded, context_used, document_count, latency_ms, error_message, timestamp`

// Insert inserts a new chat interaction record
func (r *ChatAuditRepository) Insert(ctx context.Context, record *models.ChatAuditRecord) error {
	query := `
		INSERT INTO chat_interactions (
			id, request_id, question, answer_preview, model_used,
			success, degraded, context_used, document_count, latency_ms, error_message, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.RequestID,
		record.Question,
		record.AnswerPreview,
		record.ModelUsed,
		record.Success,
		record.Degraded,
		record.ContextUsed,
		record.DocumentCount,
		record.LatencyMs,
		record.ErrorMessage,
		record.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert chat interaction: %w", err)
	}

	r.logger.Debug("chat interaction inserted",
		zap.String("id", record.ID.String()),
		zap.String("model", record.ModelUsed))
	return nil
}

// GetRecent retrieves the most recent chat interaction records
func (r *ChatAuditRepository) GetRecent(ctx context.Context, limit int) ([]*models.ChatAuditRecord, error) {
	query := `
		SELECT ` + chatAuditColumns + `
		FROM chat_interactions
		ORDER BY timestamp DESC
		LIMIT $1
	`

	return r.queryRecords(ctx, query, limit)
}

// GetByRequestID retrieves records for a single request
func (r *ChatAuditRepository) GetByRequestID(ctx context.Context, requestID string) ([]*models.ChatAuditRecord, error) {
	query := `
		SELECT ` + chatAuditColumns + `
		FROM chat_interactions
		WHERE request_id = $1
		ORDER BY timestamp DESC
	`

	return r.queryRecords(ctx, query, requestID)
}

// CountSince counts interactions recorded at or after the given time
func (r *ChatAuditRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM chat_interactions WHERE timestamp >= $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chat interactions: %w", err)
	}
	return count, nil
}

// queryRecords is a helper method to query multiple chat interaction records
func (r *ChatAuditRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*models.ChatAuditRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat interactions: %w", err)
	}
	defer rows.Close()

	var records []*models.ChatAuditRecord
	for rows.Next() {
		record := &models.ChatAuditRecord{}
		err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.Question,
			&record.AnswerPreview,
			&record.ModelUsed,
			&record.Success,
			&record.Degraded,
			&record.ContextUsed,
			&record.DocumentCount,
			&record.LatencyMs,
			&record.ErrorMessage,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat interaction: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat interaction rows: %w", err)
	}

	return records, nil
}
