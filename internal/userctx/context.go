package userctx

import (
	"context"
	"strings"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// DefaultOwner is the owner id used when auth is disabled (single-user MVP).
const DefaultOwner = "default"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

// Owner returns the authenticated owner id, or DefaultOwner when no
// authenticated user is present on the context.
func Owner(ctx context.Context) string {
	userID, ok := GetUserID(ctx)
	if !ok || strings.TrimSpace(userID) == "" {
		return DefaultOwner
	}
	return strings.TrimSpace(userID)
}
