package repositories

import (
	"context"
	"time"

	"quartermaster/internal/caching"
	"quartermaster/internal/common"

	"go.uber.org/zap"
)

const (
	defaultWriteRetries = 3
	defaultBackoffBase  = 50 * time.Millisecond
)

// setJSONWithRetry writes a document, retrying transient store failures with
// exponential backoff. The backing store has no conflict signal, so only
// write errors are retried; exhaustion surfaces as a PersistenceError.
func setJSONWithRetry(ctx context.Context, kv caching.KVStore, logger *zap.Logger, op, key string, value interface{}) error {
	var lastErr error
	backoff := defaultBackoffBase
	for attempt := 0; attempt < defaultWriteRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return &common.PersistenceError{Op: op, Key: key, Err: ctx.Err()}
			}
			backoff *= 2
		}
		lastErr = kv.SetJSON(ctx, key, value)
		if lastErr == nil {
			return nil
		}
		logger.Warn("store write failed, retrying",
			zap.String("op", op),
			zap.String("key", key),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}
	return &common.PersistenceError{Op: op, Key: key, Err: lastErr}
}
