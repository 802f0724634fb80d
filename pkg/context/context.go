package context

import (
	"context"

	"github.com/google/uuid"
)

type ContextKey string

var (
	RunIDKey     = ContextKey("X-Run-Id")
	PhaseKey     = ContextKey("X-Phase")
	DirectionKey = ContextKey("X-Direction")
	ModelKey     = ContextKey("X-Model")
	RequestIDKey = ContextKey("X-Request-Id")
	UserIDKey    = ContextKey("X-User-Id")
)

// NewRun stores a fresh run id on ctx.
func NewRun(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return SetRunID(ctx, id), id
}

func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

func GetRunID(ctx context.Context) string {
	return getString(ctx, RunIDKey)
}

func SetPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, PhaseKey, phase)
}

func GetPhase(ctx context.Context) string {
	return getString(ctx, PhaseKey)
}

func SetDirection(ctx context.Context, direction string) context.Context {
	return context.WithValue(ctx, DirectionKey, direction)
}

func GetDirection(ctx context.Context) string {
	return getString(ctx, DirectionKey)
}

func SetModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

func GetModel(ctx context.Context) string {
	return getString(ctx, ModelKey)
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	return getString(ctx, UserIDKey)
}

// Fields returns the run scoped values present on ctx, for log enrichment.
func Fields(ctx context.Context) map[string]any {
	fields := map[string]any{}
	for key, name := range map[ContextKey]string{
		RunIDKey:     "run_id",
		PhaseKey:     "phase",
		DirectionKey: "direction",
		ModelKey:     "model",
		RequestIDKey: "request_id",
	} {
		if v := getString(ctx, key); v != "" {
			fields[name] = v
		}
	}
	return fields
}

func getString(ctx context.Context, key ContextKey) string {
	value, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return value
}
