package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records one mutation of tenant state: a settings commit, a role
// change, or an ownership event.
type AuditLog struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	TenantID  string            `json:"tenant_id" db:"tenant_id"`
	Actor     string            `json:"actor" db:"actor"`
	Action    string            `json:"action" db:"action"`
	Subject   string            `json:"subject" db:"subject"`
	OldValues map[string]string `json:"old_values,omitempty" db:"old_values"`
	NewValues map[string]string `json:"new_values,omitempty" db:"new_values"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// Action constants for audit logs
const (
	ActionSettingsUpdate    = "settings.update"
	ActionRoleSet           = "role.set"
	ActionOwnershipRegister = "ownership.register"
	ActionOwnershipRecover  = "ownership.recover"
)

// AuditLogFilters narrows audit queries.
type AuditLogFilters struct {
	Action *string `json:"action"`
	Actor  *string `json:"actor"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
