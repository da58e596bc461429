package internal

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// WithRequestID attaches a fresh request identifier to the context unless
// one is already present. Handlers use it to correlate log lines of a
// single callback.
func WithRequestID(ctx context.Context) context.Context {
	if _, ok := ctx.Value(requestIDKey).(string); ok {
		return ctx
	}
	id := make([]byte, 8)
	if _, err := rand.Read(id); err != nil {
		return context.WithValue(ctx, requestIDKey, fmt.Sprintf("req-%d", time.Now().UnixNano()))
	}
	return context.WithValue(ctx, requestIDKey, hex.EncodeToString(id))
}

// GetRequestID retrieves the request identifier from the context, or an
// empty string when none is set.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
