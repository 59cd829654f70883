package repositories

import "fmt"

// Key layout in the shared KV store. Every document is owned by exactly one
// tenant (or one agent for the owner index); no key crosses tenant
// boundaries.
const keyPrefix = "quartermaster"

func settingsKey(tenantID string) string {
	return fmt.Sprintf("%s:settings:%s", keyPrefix, tenantID)
}

func rolesKey(tenantID string) string {
	return fmt.Sprintf("%s:roles:%s", keyPrefix, tenantID)
}

func ownershipKey(tenantID string) string {
	return fmt.Sprintf("%s:ownership:%s", keyPrefix, tenantID)
}

func ownerIndexKey(agentID, ownerID string) string {
	return fmt.Sprintf("%s:owner:%s:%s", keyPrefix, agentID, ownerID)
}

func pendingKey(tenantID string) string {
	return fmt.Sprintf("%s:pending:%s", keyPrefix, tenantID)
}

// PendingKeyPattern matches every in-progress tenant marker; used by the
// reminder job.
func PendingKeyPattern() string {
	return fmt.Sprintf("%s:pending:*", keyPrefix)
}

// TenantIDFromPendingKey recovers the tenant ID from a pending marker key.
func TenantIDFromPendingKey(key string) string {
	prefix := fmt.Sprintf("%s:pending:", keyPrefix)
	if len(key) <= len(prefix) {
		return ""
	}
	return key[len(prefix):]
}
