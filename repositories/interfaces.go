package repositories

import (
	"context"
	"time"

	"github.com/smotta/flow-rag-api/models"
)

// ChatAuditRepository handles persistence of chat interaction records
type ChatAuditRepository interface {
	// Insert inserts a new chat interaction record
	Insert(ctx context.Context, record *models.ChatAuditRecord) error

	// GetRecent retrieves the most recent chat interaction records
	GetRecent(ctx context.Context, limit int) ([]*models.ChatAuditRecord, error)

	// GetByRequestID retrieves records for a single request
	GetByRequestID(ctx context.Context, requestID string) ([]*models.ChatAuditRecord, error)

	// CountSince counts interactions recorded at or after the given time
	CountSince(ctx context.Context, since time.Time) (int, error)
}
