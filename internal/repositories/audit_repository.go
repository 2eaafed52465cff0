package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

// AuditRepository defines the interface for audit trail database operations.
type AuditRepository interface {
	Record(executor SQLExecutor, event *models.AuditEvent) error
	GetForEntity(entityType string, entityID int64) ([]models.AuditEvent, error)
	GetRecent(limit int) ([]models.AuditEvent, error)
}

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Record(executor SQLExecutor, event *models.AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	query := `INSERT INTO audit_events (timestamp, user_id, action, entity_type, entity_id, details)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	err := executor.QueryRow(query,
		event.Timestamp, event.UserID, event.Action, event.EntityType, event.EntityID, event.Details,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("%w: recording audit event: %v", ErrDatabaseError, err)
	}
	return nil
}

const auditColumns = `id, timestamp, user_id, action, entity_type, entity_id, details`

func scanAuditEvent(s scanner, event *models.AuditEvent) error {
	return s.Scan(
		&event.ID, &event.Timestamp, &event.UserID, &event.Action,
		&event.EntityType, &event.EntityID, &event.Details,
	)
}

func (r *auditRepository) GetForEntity(entityType string, entityID int64) ([]models.AuditEvent, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_events
	          WHERE entity_type = $1 AND entity_id = $2
	          ORDER BY timestamp DESC, id DESC`
	rows, err := r.db.Query(query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting audit events: %v", ErrDatabaseError, err)
	}
	defer rows.Close()
	return collectAuditEvents(rows)
}

func (r *auditRepository) GetRecent(limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + auditColumns + ` FROM audit_events
	          ORDER BY timestamp DESC, id DESC
	          LIMIT $1`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: getting recent audit events: %v", ErrDatabaseError, err)
	}
	defer rows.Close()
	return collectAuditEvents(rows)
}

func collectAuditEvents(rows *sql.Rows) ([]models.AuditEvent, error) {
	events := []models.AuditEvent{}
	for rows.Next() {
		var event models.AuditEvent
		if err := scanAuditEvent(rows, &event); err != nil {
			return nil, fmt.Errorf("%w: scanning audit event: %v", ErrDatabaseError, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating audit events: %v", ErrDatabaseError, err)
	}
	return events, nil
}
