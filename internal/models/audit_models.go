package models

import "time"

// Audit actions.
const (
	AuditActionCreate     = "create"
	AuditActionUpdate     = "update"
	AuditActionDelete     = "delete"
	AuditActionActivate   = "activate"
	AuditActionDeactivate = "deactivate"
	AuditActionRevoke     = "revoke"
	AuditActionApprove    = "approve"
	AuditActionReject     = "reject"
)

// AuditEvent is the payload every mutating service emits. The core only
// produces these; persistence and any later review are the audit
// repository's concern.
type AuditEvent struct {
	ID         int64     `json:"id" db:"id"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	UserID     *int64    `json:"user_id,omitempty" db:"user_id"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   int64     `json:"entity_id" db:"entity_id"`
	Details    *string   `json:"details,omitempty" db:"details"`
}
