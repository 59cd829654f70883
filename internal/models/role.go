package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is a principal's authorization level within a tenant. The canonical
// model is OWNER > ADMIN > NONE; MEMBER exists as an assignable level below
// ADMIN for deployments that distinguish regular members from strangers.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
	RoleNone   Role = "NONE"
)

// Rank orders roles for privilege comparisons.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// ParseRole converts user input into a Role, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	case RoleNone, "":
		return RoleNone, nil
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}

// RoleRecord assigns one role to one principal within one tenant. Absence of
// a record implies NONE.
type RoleRecord struct {
	PrincipalID string    `json:"principal_id"`
	TenantID    string    `json:"tenant_id"`
	Role        Role      `json:"role"`
	AssignedBy  string    `json:"assigned_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleSet is the per-tenant role document stored in the KV backend, keyed by
// principal ID. It is mutated as a whole through read-modify-write.
type RoleSet struct {
	TenantID    string                `json:"tenant_id"`
	Assignments map[string]RoleRecord `json:"assignments"`
	UpdatedAt   time.Time             `json:"updated_at"`
}
