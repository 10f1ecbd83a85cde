package utils

import (
	"context"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	AdminKey     contextKey = "admin"
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(RequestIDKey)
	if val == nil {
		return "", false
	}

	requestID, ok := val.(string)
	return requestID, ok
}

// SetAdminContext marks the request as authenticated with the admin token.
func SetAdminContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, AdminKey, true)
}

func IsAdminFromContext(ctx context.Context) bool {
	admin, _ := ctx.Value(AdminKey).(bool)
	return admin
}
