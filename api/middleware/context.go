package middleware

import "context"

type contextKey string

const (
	visitorIDKey    contextKey = "visitor_id"
	sessionTokenKey contextKey = "session_token"
)

func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorIDKey, visitorID)
}

// VisitorIDFromContext returns the visitor id the identity middleware
// resolved for this request, or "" outside of it.
func VisitorIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(visitorIDKey).(string); ok {
		return v
	}
	return ""
}

func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenKey, token)
}

// SessionTokenFromContext returns the upstream customer session token the
// request carried, or "" for anonymous shoppers.
func SessionTokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionTokenKey).(string); ok {
		return v
	}
	return ""
}
