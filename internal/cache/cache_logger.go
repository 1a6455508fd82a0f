package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern, logging failures instead
// of propagating them; cache invalidation never fails a workflow.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging failures.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateSessionCache drops the cached views touched by a session
// transition or an attendance write.
func InvalidateSessionCache(ctx context.Context, cm *CacheManager, sessionID, sabaqID uint) {
	SafeDelete(ctx, cm.Session, fmt.Sprintf("id:%d", sessionID))
	SafeDelete(ctx, cm.Attendance, fmt.Sprintf("session:%d", sessionID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("session:%d:*", sessionID))
	SafeInvalidatePattern(ctx, cm.Session, fmt.Sprintf("sabaq:%d:*", sabaqID))
}

// InvalidateSabaqCache drops cached sabaq views after definition or
// enrollment changes.
func InvalidateSabaqCache(ctx context.Context, cm *CacheManager, sabaqID uint) {
	SafeDelete(ctx, cm.Sabaq,
		fmt.Sprintf("id:%d", sabaqID),
		fmt.Sprintf("details:%d", sabaqID))
	SafeInvalidatePattern(ctx, cm.Sabaq, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("sabaq:%d:*", sabaqID))
}
