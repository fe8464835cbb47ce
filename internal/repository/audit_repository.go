package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sf10-api/internal/models"
)

// AuditRepository appends and queries immutable system log entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends a system log entry.
func (r *AuditRepository) Create(ctx context.Context, log *models.SystemLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO system_logs (id, account_id, path, method, authorized, status, message, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		log.ID, log.AccountID, log.Path, log.Method, log.Authorized, log.Status, log.Message, log.CreatedAt,
	); err != nil {
		return fmt.Errorf("create system log: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.SystemLog, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, account_id, path, method, authorized, status, message, created_at
        FROM system_logs ORDER BY created_at DESC LIMIT %d`, limit)
	var logs []models.SystemLog
	if err := r.db.SelectContext(ctx, &logs, query); err != nil {
		return nil, fmt.Errorf("list system logs: %w", err)
	}
	return logs, nil
}

// ListByAccount returns the newest entries of one account, newest first.
func (r *AuditRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]models.SystemLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, account_id, path, method, authorized, status, message, created_at
        FROM system_logs WHERE account_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var logs []models.SystemLog
	if err := r.db.SelectContext(ctx, &logs, query, accountID); err != nil {
		return nil, fmt.Errorf("list account system logs: %w", err)
	}
	return logs, nil
}
