package ctxutil

import "context"

type contextKey string

const userIDKey contextKey = "leafmark.userID"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the identity attached by the HTTP middleware, or "" when
// the request never passed through it.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}
