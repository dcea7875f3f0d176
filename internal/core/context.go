package core

import "context"

type contextKey string

const ctxKeyUserID contextKey = "user_id"

// ContextWithUserID records the caller that owns new batches and saved
// records.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext returns the caller recorded by ContextWithUserID, or "".
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return v
	}
	return ""
}
