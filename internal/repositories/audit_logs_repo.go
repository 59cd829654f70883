package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quartermaster/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the audit repository needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type AuditLogsRepository interface {
	// Create appends an audit log entry
	Create(ctx context.Context, auditLog *models.AuditLog) error

	// List audit logs for a tenant with optional filters, newest first
	List(ctx context.Context, tenantID string, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
}

type auditLogsRepo struct {
	db PgxPool
}

func NewAuditLogsRepo(db PgxPool) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	auditLog.CreatedAt = time.Now().UTC()
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, actor, action, subject, old_values, new_values, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var oldValuesBytes, newValuesBytes []byte
	var err error

	if auditLog.OldValues != nil {
		oldValuesBytes, err = json.Marshal(auditLog.OldValues)
		if err != nil {
			return fmt.Errorf("failed to marshal old_values: %w", err)
		}
	}
	if auditLog.NewValues != nil {
		newValuesBytes, err = json.Marshal(auditLog.NewValues)
		if err != nil {
			return fmt.Errorf("failed to marshal new_values: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, query,
		auditLog.ID, auditLog.TenantID, auditLog.Actor, auditLog.Action,
		auditLog.Subject, oldValuesBytes, newValuesBytes, auditLog.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func (r *auditLogsRepo) List(ctx context.Context, tenantID string, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	query := `
		SELECT id, tenant_id, actor, action, subject, old_values, new_values, created_at
		FROM audit_logs
		WHERE tenant_id = $1
	`
	args := []any{tenantID}

	if filters != nil && filters.Action != nil {
		args = append(args, *filters.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filters != nil && filters.Actor != nil {
		args = append(args, *filters.Actor)
		query += fmt.Sprintf(" AND actor = $%d", len(args))
	}

	limit, offset := 50, 0
	if filters != nil {
		if filters.Limit > 0 {
			limit = filters.Limit
		}
		if filters.Offset > 0 {
			offset = filters.Offset
		}
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		var oldValuesBytes, newValuesBytes []byte
		if err := rows.Scan(&log.ID, &log.TenantID, &log.Actor, &log.Action,
			&log.Subject, &oldValuesBytes, &newValuesBytes, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if len(oldValuesBytes) > 0 {
			if err := json.Unmarshal(oldValuesBytes, &log.OldValues); err != nil {
				return nil, fmt.Errorf("failed to unmarshal old_values: %w", err)
			}
		}
		if len(newValuesBytes) > 0 {
			if err := json.Unmarshal(newValuesBytes, &log.NewValues); err != nil {
				return nil, fmt.Errorf("failed to unmarshal new_values: %w", err)
			}
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
