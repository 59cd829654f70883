package models

import "time"

// OwnershipRecord names the canonical principal who may initiate onboarding
// for a tenant. One record per tenant per registering agent; RegisteredBy
// scopes lookups so that agent instances sharing a store never resolve each
// other's tenants.
type OwnershipRecord struct {
	TenantID     string    `json:"tenant_id"`
	OwnerID      string    `json:"owner_id"`
	RegisteredBy string    `json:"registered_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
