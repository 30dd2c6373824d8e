package middleware

import (
	"context"
	"time"
)

type contextKey string

const (
	ctxUsername    contextKey = "operator"
	ctxRole        contextKey = "role"
	ctxAccessID    contextKey = "access_id"
	ctxTokenExpiry contextKey = "token_expiry"
	ctxLanguage    contextKey = "language"
)

func UsernameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUsername).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// AccessTokenFromContext returns the jti and expiry of the token that
// authenticated the request.
func AccessTokenFromContext(ctx context.Context) (string, time.Time) {
	if ctx == nil {
		return "", time.Time{}
	}
	id, _ := ctx.Value(ctxAccessID).(string)
	expiry, _ := ctx.Value(ctxTokenExpiry).(time.Time)
	return id, expiry
}

// LanguageFromContext returns the label language resolved for the request.
func LanguageFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxLanguage).(string); ok {
		return v
	}
	return ""
}

// WithOperator injects the operator identity into the context.
func WithOperator(ctx context.Context, username, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUsername, username)
	return context.WithValue(ctx, ctxRole, role)
}

// WithLanguage injects the label language into the context.
func WithLanguage(ctx context.Context, lang string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxLanguage, lang)
}

// WithAccessToken records the jti and expiry of the authenticating token.
func WithAccessToken(ctx context.Context, accessID string, expiresAt time.Time) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAccessID, accessID)
	return context.WithValue(ctx, ctxTokenExpiry, expiresAt)
}
